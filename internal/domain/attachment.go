package domain

import (
	"time"

	"github.com/google/uuid"
)

// MediaType classifies an attachment for rendering purposes.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaAudio MediaType = "audio"
	MediaVideo MediaType = "video"
	MediaFile  MediaType = "file"
)

// AttachmentStatus tracks a composer attachment through upload. Only
// ready attachments may be sent.
type AttachmentStatus string

const (
	AttachmentUploading AttachmentStatus = "uploading"
	AttachmentReady     AttachmentStatus = "ready"
	AttachmentFailed    AttachmentStatus = "failed"
)

// Attachment is the persisted record of a media object. The viewable URL
// is a derived, expiring projection (SignedURL) cached separately and
// never persisted past the session.
type Attachment struct {
	ID              uuid.UUID
	MediaType       MediaType
	StoragePath     string
	MimeType        string
	FileSize        int64
	DurationSeconds float64
	FileName        string
	Status          AttachmentStatus
}

func (a Attachment) PreviewLabel() string {
	switch a.MediaType {
	case MediaImage:
		return "📷 Photo"
	case MediaAudio:
		return "🎤 Voice message"
	case MediaVideo:
		return "🎬 Video"
	default:
		if a.FileName != "" {
			return "📎 " + a.FileName
		}
		return "📎 File"
	}
}

// SignedURL is a time-limited viewable URL for an attachment's storage
// object.
type SignedURL struct {
	URL       string
	ExpiresAt time.Time
}

// Fresh reports whether the URL still has at least margin of lifetime
// left at now.
func (s SignedURL) Fresh(now time.Time, margin time.Duration) bool {
	return s.URL != "" && s.ExpiresAt.After(now.Add(margin))
}
