package httpdto

import (
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
)

type ProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarPath  string    `json:"avatar_path,omitempty"`
}

type ThreadResponse struct {
	ID                 uuid.UUID       `json:"id"`
	Other              ProfileResponse `json:"other_participant"`
	LastMessagePreview string          `json:"last_message_preview,omitempty"`
	LastMessageAt      *time.Time      `json:"last_message_at,omitempty"`
	LastMessageSender  *uuid.UUID      `json:"last_message_sender,omitempty"`
	LastReadAt         *time.Time      `json:"last_read_at,omitempty"`
	ParticipantStatus  string          `json:"participant_status"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func NewThreadResponse(s domain.ConversationSummary) ThreadResponse {
	resp := ThreadResponse{
		ID: s.ThreadID,
		Other: ProfileResponse{
			ID:          s.Other.ID,
			Username:    s.Other.Username,
			DisplayName: s.Other.DisplayName,
			AvatarPath:  s.Other.AvatarPath,
		},
		LastMessagePreview: s.LastMessagePreview,
		ParticipantStatus:  string(s.ParticipantStatus),
		UpdatedAt:          s.UpdatedAt,
	}
	if !s.LastMessageAt.IsZero() {
		at := s.LastMessageAt
		resp.LastMessageAt = &at
	}
	if s.LastMessageSender != uuid.Nil {
		sender := s.LastMessageSender
		resp.LastMessageSender = &sender
	}
	if !s.LastReadAt.IsZero() {
		at := s.LastReadAt
		resp.LastReadAt = &at
	}
	return resp
}

func (r ThreadResponse) ToDomain() domain.ConversationSummary {
	s := domain.ConversationSummary{
		ThreadID: r.ID,
		Other: domain.Profile{
			ID:          r.Other.ID,
			Username:    r.Other.Username,
			DisplayName: r.Other.DisplayName,
			AvatarPath:  r.Other.AvatarPath,
		},
		LastMessagePreview: r.LastMessagePreview,
		ParticipantStatus:  domain.ParticipantStatus(r.ParticipantStatus),
		UpdatedAt:          r.UpdatedAt,
	}
	if r.LastMessageAt != nil {
		s.LastMessageAt = *r.LastMessageAt
	}
	if r.LastMessageSender != nil {
		s.LastMessageSender = *r.LastMessageSender
	}
	if r.LastReadAt != nil {
		s.LastReadAt = *r.LastReadAt
	}
	return s
}

type CreateThreadRequest struct {
	OtherUserID uuid.UUID `json:"other_user_id"`
}

type MarkReadRequest struct {
	At time.Time `json:"at"`
}
