package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
)

// Redis key layout for presence:
//   presence:online            set of online user IDs
//   connections:{user_id}      hash of client_id -> connected_at
const (
	presenceOnlineSet     = "presence:online"
	connectionsKeyPrefix  = "connections:"
	defaultConnectionsTTL = 5 * time.Minute
)

// PresenceStore tracks which users currently hold at least one live push
// connection. A user is online while any connection remains.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = defaultConnectionsTTL
	}
	return &PresenceStore{client: client, ttl: ttl}
}

// TrackConnection records a new push connection for user. Returns true if
// this was the user's first connection (offline -> online transition).
func (p *PresenceStore) TrackConnection(ctx context.Context, userID uuid.UUID, clientID string) (bool, error) {
	key := connectionsKeyPrefix + userID.String()

	pipe := p.client.Pipeline()
	before := pipe.HLen(ctx, key)
	pipe.HSet(ctx, key, clientID, time.Now().UTC().Format(time.RFC3339))
	pipe.Expire(ctx, key, p.ttl)
	pipe.SAdd(ctx, presenceOnlineSet, userID.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return false, err
	}
	return before.Val() == 0, nil
}

// DropConnection removes one push connection. Returns true if it was the
// user's last connection (online -> offline transition).
func (p *PresenceStore) DropConnection(ctx context.Context, userID uuid.UUID, clientID string) (bool, error) {
	key := connectionsKeyPrefix + userID.String()

	if err := p.client.HDel(ctx, key, clientID).Err(); err != nil {
		return false, err
	}
	remaining, err := p.client.HLen(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return false, nil
	}
	if err := p.client.SRem(ctx, presenceOnlineSet, userID.String()).Err(); err != nil {
		return false, err
	}
	return true, nil
}

// Heartbeat refreshes the connection hash TTL so an active connection
// never ages out.
func (p *PresenceStore) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	return p.client.Expire(ctx, connectionsKeyPrefix+userID.String(), p.ttl).Err()
}

// IsOnline checks a single user.
func (p *PresenceStore) IsOnline(ctx context.Context, userID uuid.UUID) (bool, error) {
	return p.client.SIsMember(ctx, presenceOnlineSet, userID.String()).Result()
}

// OnlineAmong filters userIDs to the currently online subset, preserving
// the input order.
func (p *PresenceStore) OnlineAmong(ctx context.Context, userIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}

	members := make([]interface{}, len(userIDs))
	for i, id := range userIDs {
		members[i] = id.String()
	}
	flags, err := p.client.SMIsMember(ctx, presenceOnlineSet, members...).Result()
	if err != nil {
		return nil, fmt.Errorf("smismember: %w", err)
	}

	var online []uuid.UUID
	for i, ok := range flags {
		if ok {
			online = append(online, userIDs[i])
		}
	}
	return online, nil
}
