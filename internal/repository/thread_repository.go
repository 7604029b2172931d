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

type PgThreadRepository struct {
	pool *pgxpool.Pool
}

func NewPgThreadRepository(pool *pgxpool.Pool) *PgThreadRepository {
	return &PgThreadRepository{pool: pool}
}

// summaryQuery projects a thread into the viewer's conversation summary:
// the other participant's profile, the viewer's read mark and status, and
// the latest non-deleted message via a lateral join.
const summaryQuery = `
SELECT t.id, t.updated_at,
       ou.id, ou.username, ou.display_name, ou.avatar_path,
       vp.last_read_at, vp.status,
       lm.content, lm.sender_id, lm.created_at
FROM threads t
JOIN thread_participants vp ON vp.thread_id = t.id AND vp.user_id = $1
JOIN thread_participants op ON op.thread_id = t.id AND op.user_id <> $1
JOIN users ou ON ou.id = op.user_id
LEFT JOIN LATERAL (
    SELECT m.content, m.sender_id, m.created_at
    FROM messages m
    WHERE m.thread_id = t.id AND m.deleted_at IS NULL
    ORDER BY m.created_at DESC
    LIMIT 1
) lm ON true`

const summaryOrder = ` ORDER BY GREATEST(COALESCE(lm.created_at, 'epoch'::timestamptz), t.updated_at) DESC`

func (r *PgThreadRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]domain.ConversationSummary, error) {
	rows, err := r.pool.Query(ctx, summaryQuery+summaryOrder, userID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *PgThreadRepository) SearchForUser(ctx context.Context, userID uuid.UUID, query string) ([]domain.ConversationSummary, error) {
	q := summaryQuery + ` WHERE ou.username ILIKE '%' || $2 || '%' OR ou.display_name ILIKE '%' || $2 || '%'` + summaryOrder
	rows, err := r.pool.Query(ctx, q, userID, query)
	if err != nil {
		return nil, fmt.Errorf("search threads: %w", err)
	}
	defer rows.Close()
	return scanSummaries(rows)
}

func (r *PgThreadRepository) Get(ctx context.Context, threadID, viewerID uuid.UUID) (domain.ConversationSummary, error) {
	row := r.pool.QueryRow(ctx, summaryQuery+` WHERE t.id = $2`, viewerID, threadID)
	summary, err := scanSummary(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ConversationSummary{}, harbor_errors.ErrNotFound
	}
	return summary, err
}

func (r *PgThreadRepository) Create(ctx context.Context, viewerID, otherID uuid.UUID) (domain.ConversationSummary, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	defer tx.Rollback(ctx)

	// Reuse an existing 1:1 thread between the pair instead of growing a
	// duplicate.
	var threadID uuid.UUID
	err = tx.QueryRow(ctx,
		`SELECT a.thread_id
		 FROM thread_participants a
		 JOIN thread_participants b ON b.thread_id = a.thread_id
		 WHERE a.user_id = $1 AND b.user_id = $2`,
		viewerID, otherID).Scan(&threadID)
	if errors.Is(err, pgx.ErrNoRows) {
		if err := tx.QueryRow(ctx, `INSERT INTO threads DEFAULT VALUES RETURNING id`).Scan(&threadID); err != nil {
			return domain.ConversationSummary{}, fmt.Errorf("create thread: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO thread_participants (thread_id, user_id) VALUES ($1, $2), ($1, $3)`,
			threadID, viewerID, otherID); err != nil {
			return domain.ConversationSummary{}, fmt.Errorf("create participants: %w", err)
		}
	} else if err != nil {
		return domain.ConversationSummary{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.ConversationSummary{}, err
	}
	return r.Get(ctx, threadID, viewerID)
}

func (r *PgThreadRepository) Participants(ctx context.Context, threadID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id FROM thread_participants WHERE thread_id = $1`, threadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *PgThreadRepository) IsParticipant(ctx context.Context, threadID, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM thread_participants WHERE thread_id = $1 AND user_id = $2)`,
		threadID, userID).Scan(&ok)
	return ok, err
}

func (r *PgThreadRepository) MarkRead(ctx context.Context, threadID, userID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE thread_participants SET last_read_at = $3
		 WHERE thread_id = $1 AND user_id = $2
		   AND (last_read_at IS NULL OR last_read_at < $3)`,
		threadID, userID, at)
	return err
}

func (r *PgThreadRepository) Touch(ctx context.Context, threadID uuid.UUID, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE threads SET updated_at = $2 WHERE id = $1`, threadID, at)
	return err
}

func (r *PgThreadRepository) ThreadsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT thread_id FROM thread_participants WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanSummaries(rows pgx.Rows) ([]domain.ConversationSummary, error) {
	var out []domain.ConversationSummary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, summary)
	}
	return out, rows.Err()
}

func scanSummary(row pgx.Row) (domain.ConversationSummary, error) {
	var (
		s           domain.ConversationSummary
		lastReadAt  *time.Time
		lastContent *string
		lastSender  *uuid.UUID
		lastAt      *time.Time
	)
	err := row.Scan(
		&s.ThreadID, &s.UpdatedAt,
		&s.Other.ID, &s.Other.Username, &s.Other.DisplayName, &s.Other.AvatarPath,
		&lastReadAt, (*string)(&s.ParticipantStatus),
		&lastContent, &lastSender, &lastAt,
	)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	if lastReadAt != nil {
		s.LastReadAt = *lastReadAt
	}
	if lastAt != nil {
		s.LastMessageAt = *lastAt
	}
	if lastSender != nil {
		s.LastMessageSender = *lastSender
	}
	if lastContent != nil {
		s.LastMessagePreview = domain.Message{Content: *lastContent}.Preview()
	}
	return s, nil
}
