package services

import (
	"context"

	"github.com/google/uuid"

	"harbor-chat/internal/events"
	appredis "harbor-chat/internal/redis"
	"harbor-chat/internal/repository"
	"harbor-chat/pkg/logger"
)

// PresenceService turns connection lifecycle into per-thread presence
// snapshots. Every time a user crosses the online/offline boundary, an
// updated snapshot goes out on the presence channel of each thread the
// user participates in; clients filter the snapshot down to the other
// participant.
type PresenceService struct {
	presence *appredis.PresenceStore
	threads  repository.ThreadRepository
	bus      EventPublisher
	log      *logger.Logger
}

func NewPresenceService(presence *appredis.PresenceStore, threads repository.ThreadRepository, bus EventPublisher, log *logger.Logger) *PresenceService {
	if log == nil {
		log = logger.NewNop()
	}
	return &PresenceService{presence: presence, threads: threads, bus: bus, log: log}
}

func (s *PresenceService) Connected(ctx context.Context, userID uuid.UUID, clientID string) {
	first, err := s.presence.TrackConnection(ctx, userID, clientID)
	if err != nil {
		s.log.Warnf("track connection for %s: %v", userID, err)
		return
	}
	if first {
		s.syncThreads(ctx, userID)
	}
}

func (s *PresenceService) Disconnected(ctx context.Context, userID uuid.UUID, clientID string) {
	last, err := s.presence.DropConnection(ctx, userID, clientID)
	if err != nil {
		s.log.Warnf("drop connection for %s: %v", userID, err)
		return
	}
	if last {
		s.syncThreads(ctx, userID)
	}
}

func (s *PresenceService) Heartbeat(ctx context.Context, userID uuid.UUID) {
	if err := s.presence.Heartbeat(ctx, userID); err != nil {
		s.log.Warnf("heartbeat for %s: %v", userID, err)
	}
}

func (s *PresenceService) syncThreads(ctx context.Context, userID uuid.UUID) {
	threadIDs, err := s.threads.ThreadsOf(ctx, userID)
	if err != nil {
		s.log.Warnf("threads of %s: %v", userID, err)
		return
	}

	for _, threadID := range threadIDs {
		participants, err := s.threads.Participants(ctx, threadID)
		if err != nil {
			s.log.Warnf("participants of %s: %v", threadID, err)
			continue
		}
		online, err := s.presence.OnlineAmong(ctx, participants)
		if err != nil {
			s.log.Warnf("online among %s: %v", threadID, err)
			continue
		}

		ev := &events.PresenceSyncEvent{ThreadIDVal: threadID, OnlineUsers: online}
		if err := s.bus.Publish(ctx, ev); err != nil {
			s.log.Warnf("publish presence for %s: %v", threadID, err)
		}
	}
}
