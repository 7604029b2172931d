package httpdto

import (
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/events"
)

type SendMessageRequest struct {
	ClientMessageID uuid.UUID   `json:"client_message_id"`
	Content         string      `json:"content,omitempty"`
	AttachmentIDs   []uuid.UUID `json:"attachment_ids,omitempty"`
	ReplyToID       *uuid.UUID  `json:"reply_to_id,omitempty"`
}

// Messages ride the same wire shape in API responses and push events.
type ListMessagesResponse struct {
	Messages []events.MessagePayload `json:"messages"`
	HasMore  bool                    `json:"has_more"`
}

type AttachmentURLResponse struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

type CreateUploadRequest struct {
	MediaType   string `json:"media_type"`
	FileName    string `json:"file_name,omitempty"`
	MimeType    string `json:"mime_type"`
	FileSize    int64  `json:"file_size,omitempty"`
}

type CreateUploadResponse struct {
	AttachmentID uuid.UUID         `json:"attachment_id"`
	UploadURL    string            `json:"upload_url"`
	Headers      map[string]string `json:"headers,omitempty"`
}
