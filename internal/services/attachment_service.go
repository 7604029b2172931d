package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/repository"
	"harbor-chat/internal/storage"
	harbor_errors "harbor-chat/pkg/errors"
)

type AttachmentService struct {
	attachments repository.AttachmentRepository
	objects     *storage.Client
}

func NewAttachmentService(attachments repository.AttachmentRepository, objects *storage.Client) *AttachmentService {
	return &AttachmentService{attachments: attachments, objects: objects}
}

type UploadSlot struct {
	Attachment domain.Attachment
	UploadURL  string
	Headers    map[string]string
}

// CreateUpload reserves an attachment row and hands back a presigned PUT
// for the client to push the bytes to.
func (s *AttachmentService) CreateUpload(ctx context.Context, ownerID uuid.UUID, mediaType domain.MediaType, fileName, mimeType string, fileSize int64) (UploadSlot, error) {
	switch mediaType {
	case domain.MediaImage, domain.MediaAudio, domain.MediaVideo, domain.MediaFile:
	default:
		return UploadSlot{}, harbor_errors.ErrInvalidInput
	}
	if mimeType == "" {
		return UploadSlot{}, harbor_errors.ErrInvalidInput
	}

	key := fmt.Sprintf("attachments/%s/%d-%s", ownerID, time.Now().UnixNano(), uuid.NewString())
	att, err := s.attachments.Create(ctx, domain.Attachment{
		MediaType:   mediaType,
		StoragePath: key,
		MimeType:    mimeType,
		FileSize:    fileSize,
		FileName:    fileName,
		Status:      domain.AttachmentUploading,
	}, ownerID)
	if err != nil {
		return UploadSlot{}, err
	}

	url, headers, err := s.objects.PresignPut(ctx, key, mimeType, fileSize)
	if err != nil {
		return UploadSlot{}, fmt.Errorf("presign upload: %w", err)
	}
	return UploadSlot{Attachment: att, UploadURL: url, Headers: headers}, nil
}

// SignedGetURL resolves a viewable URL for an attachment the user may
// see.
func (s *AttachmentService) SignedGetURL(ctx context.Context, attachmentID, userID uuid.UUID) (domain.SignedURL, error) {
	ok, err := s.attachments.CanView(ctx, attachmentID, userID)
	if err != nil {
		return domain.SignedURL{}, err
	}
	if !ok {
		return domain.SignedURL{}, harbor_errors.ErrForbidden
	}

	att, err := s.attachments.Get(ctx, attachmentID)
	if err != nil {
		return domain.SignedURL{}, err
	}

	url, expiresAt, err := s.objects.PresignGet(ctx, att.StoragePath)
	if err != nil {
		return domain.SignedURL{}, fmt.Errorf("presign download: %w", err)
	}
	return domain.SignedURL{URL: url, ExpiresAt: expiresAt}, nil
}
