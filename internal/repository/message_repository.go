package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harbor-chat/internal/domain"
	harbor_errors "harbor-chat/pkg/errors"
)

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// ListBefore returns up to limit messages older than before (all
// messages when before is zero) in ascending creation order, plus whether
// older ones remain. Fetches limit+1 rows to learn the answer without a
// second query.
func (r *PgMessageRepository) ListBefore(ctx context.Context, threadID uuid.UUID, before time.Time, limit int) ([]domain.Message, bool, error) {
	if limit <= 0 {
		limit = 50
	}

	q := `SELECT id, thread_id, sender_id, content, reply_to_id, created_at
	      FROM messages
	      WHERE thread_id = $1 AND deleted_at IS NULL`
	args := []interface{}{threadID}
	if !before.IsZero() {
		q += ` AND created_at < $2`
		args = append(args, before)
	}
	q += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d`, limit+1)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var descending []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, false, err
		}
		descending = append(descending, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(descending) > limit
	if hasMore {
		descending = descending[:limit]
	}

	msgs := make([]domain.Message, len(descending))
	for i, m := range descending {
		msgs[len(descending)-1-i] = m
	}

	if err := r.loadAttachments(ctx, msgs); err != nil {
		return nil, false, err
	}
	if err := r.loadReceipts(ctx, msgs); err != nil {
		return nil, false, err
	}
	return msgs, hasMore, nil
}

// Insert persists a message. A retried send with the same client message
// id returns the already-persisted row instead of inserting a duplicate.
func (r *PgMessageRepository) Insert(ctx context.Context, params InsertMessageParams) (domain.Message, error) {
	var clientID interface{}
	if params.ClientMessageID != uuid.Nil {
		clientID = params.ClientMessageID
	}
	var replyTo interface{}
	if params.ReplyToID.Valid {
		replyTo = params.ReplyToID.UUID
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO messages (thread_id, sender_id, client_message_id, content, reply_to_id)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (thread_id, client_message_id) WHERE client_message_id IS NOT NULL
		 DO UPDATE SET content = messages.content
		 RETURNING id, thread_id, sender_id, content, reply_to_id, created_at`,
		params.ThreadID, params.SenderID, clientID, params.Content, replyTo)

	msg, err := scanMessage(row)
	if err != nil {
		return domain.Message{}, fmt.Errorf("insert message: %w", err)
	}
	return msg, nil
}

// SoftDelete hides a message. Only its sender may delete it.
func (r *PgMessageRepository) SoftDelete(ctx context.Context, threadID, messageID, senderID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE messages SET deleted_at = now()
		 WHERE id = $1 AND thread_id = $2 AND sender_id = $3 AND deleted_at IS NULL`,
		messageID, threadID, senderID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return harbor_errors.ErrNotFound
	}
	return nil
}

// InsertReceipts records read receipts for every message in the thread
// sent by someone else at or before upTo that the user has not receipted
// yet, returning only the newly inserted ones.
func (r *PgMessageRepository) InsertReceipts(ctx context.Context, threadID, userID uuid.UUID, upTo time.Time) ([]domain.ReadReceipt, error) {
	rows, err := r.pool.Query(ctx,
		`INSERT INTO read_receipts (message_id, user_id, read_at)
		 SELECT m.id, $2, $3
		 FROM messages m
		 WHERE m.thread_id = $1 AND m.sender_id <> $2
		   AND m.created_at <= $3 AND m.deleted_at IS NULL
		 ON CONFLICT (message_id, user_id) DO NOTHING
		 RETURNING message_id, user_id, read_at`,
		threadID, userID, upTo)
	if err != nil {
		return nil, fmt.Errorf("insert receipts: %w", err)
	}
	defer rows.Close()

	var receipts []domain.ReadReceipt
	for rows.Next() {
		var rec domain.ReadReceipt
		if err := rows.Scan(&rec.MessageID, &rec.UserID, &rec.ReadAt); err != nil {
			return nil, err
		}
		receipts = append(receipts, rec)
	}
	return receipts, rows.Err()
}

func (r *PgMessageRepository) loadAttachments(ctx context.Context, msgs []domain.Message) error {
	ids := messageIDs(msgs)
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT message_id, id, media_type, storage_path, mime_type, file_size, duration_seconds, file_name, status
		 FROM attachments WHERE message_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load attachments: %w", err)
	}
	defer rows.Close()

	byMessage := make(map[uuid.UUID][]domain.Attachment)
	for rows.Next() {
		var (
			msgID uuid.UUID
			att   domain.Attachment
		)
		if err := rows.Scan(&msgID, &att.ID, (*string)(&att.MediaType), &att.StoragePath,
			&att.MimeType, &att.FileSize, &att.DurationSeconds, &att.FileName, (*string)(&att.Status)); err != nil {
			return err
		}
		byMessage[msgID] = append(byMessage[msgID], att)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range msgs {
		msgs[i].Attachments = byMessage[msgs[i].ID.UUID()]
	}
	return nil
}

func (r *PgMessageRepository) loadReceipts(ctx context.Context, msgs []domain.Message) error {
	ids := messageIDs(msgs)
	if len(ids) == 0 {
		return nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT message_id, user_id, read_at FROM read_receipts WHERE message_id = ANY($1)`, ids)
	if err != nil {
		return fmt.Errorf("load receipts: %w", err)
	}
	defer rows.Close()

	byMessage := make(map[uuid.UUID][]domain.ReadReceipt)
	for rows.Next() {
		var rec domain.ReadReceipt
		if err := rows.Scan(&rec.MessageID, &rec.UserID, &rec.ReadAt); err != nil {
			return err
		}
		byMessage[rec.MessageID] = append(byMessage[rec.MessageID], rec)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range msgs {
		msgs[i].Receipts = byMessage[msgs[i].ID.UUID()]
	}
	return nil
}

func messageIDs(msgs []domain.Message) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(msgs))
	for _, m := range msgs {
		ids = append(ids, m.ID.UUID())
	}
	return ids
}

func scanMessage(row pgx.Row) (domain.Message, error) {
	var (
		m       domain.Message
		id      uuid.UUID
		replyTo *uuid.UUID
	)
	err := row.Scan(&id, &m.ThreadID, &m.SenderID, &m.Content, &replyTo, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Message{}, harbor_errors.ErrNotFound
	}
	if err != nil {
		return domain.Message{}, err
	}
	m.ID = domain.ConfirmedID(id)
	if replyTo != nil {
		m.ReplyToID = uuid.NullUUID{UUID: *replyTo, Valid: true}
	}
	return m, nil
}
