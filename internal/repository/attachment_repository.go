package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"harbor-chat/internal/domain"
	harbor_errors "harbor-chat/pkg/errors"
)

type PgAttachmentRepository struct {
	pool *pgxpool.Pool
}

func NewPgAttachmentRepository(pool *pgxpool.Pool) *PgAttachmentRepository {
	return &PgAttachmentRepository{pool: pool}
}

const attachmentColumns = "id, media_type, storage_path, mime_type, file_size, duration_seconds, file_name, status"

func (r *PgAttachmentRepository) Create(ctx context.Context, att domain.Attachment, ownerID uuid.UUID) (domain.Attachment, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO attachments (owner_id, media_type, storage_path, mime_type, file_size, duration_seconds, file_name, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+attachmentColumns,
		ownerID, att.MediaType, att.StoragePath, att.MimeType, att.FileSize,
		att.DurationSeconds, att.FileName, att.Status)
	return scanAttachment(row)
}

func (r *PgAttachmentRepository) Get(ctx context.Context, id uuid.UUID) (domain.Attachment, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+attachmentColumns+` FROM attachments WHERE id = $1`, id)
	return scanAttachment(row)
}

func (r *PgAttachmentRepository) CanView(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
		   SELECT 1 FROM attachments a
		   LEFT JOIN messages m ON m.id = a.message_id
		   LEFT JOIN thread_participants tp ON tp.thread_id = m.thread_id AND tp.user_id = $2
		   WHERE a.id = $1 AND (a.owner_id = $2 OR tp.user_id IS NOT NULL)
		 )`, id, userID).Scan(&ok)
	return ok, err
}

// LinkToMessage binds uploaded attachments to a freshly inserted message
// and flips them to ready. Only the uploader's own unlinked attachments
// qualify.
func (r *PgAttachmentRepository) LinkToMessage(ctx context.Context, ids []uuid.UUID, messageID, ownerID uuid.UUID) ([]domain.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx,
		`UPDATE attachments SET message_id = $2, status = 'ready'
		 WHERE id = ANY($1) AND owner_id = $3 AND message_id IS NULL
		 RETURNING `+attachmentColumns, ids, messageID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("link attachments: %w", err)
	}
	defer rows.Close()

	var out []domain.Attachment
	for rows.Next() {
		att, err := scanAttachment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, att)
	}
	return out, rows.Err()
}

func scanAttachment(row pgx.Row) (domain.Attachment, error) {
	var att domain.Attachment
	err := row.Scan(&att.ID, (*string)(&att.MediaType), &att.StoragePath, &att.MimeType,
		&att.FileSize, &att.DurationSeconds, &att.FileName, (*string)(&att.Status))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Attachment{}, harbor_errors.ErrNotFound
	}
	if err != nil {
		return domain.Attachment{}, err
	}
	return att, nil
}
