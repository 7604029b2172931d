package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbor-chat/internal/auth"
	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
	"harbor-chat/internal/middleware"
	"harbor-chat/internal/repository"
	"harbor-chat/internal/services"
	"harbor-chat/internal/transport/httpdto"
	harbor_errors "harbor-chat/pkg/errors"
)

type memUserRepo struct {
	users map[string]domain.User
}

func (r *memUserRepo) GetByID(_ context.Context, id uuid.UUID) (domain.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, harbor_errors.ErrNotFound
}

func (r *memUserRepo) GetByUsername(_ context.Context, username string) (domain.User, error) {
	if u, ok := r.users[username]; ok {
		return u, nil
	}
	return domain.User{}, harbor_errors.ErrNotFound
}

func (r *memUserRepo) Create(_ context.Context, user domain.User) (domain.User, error) {
	user.ID = uuid.New()
	r.users[user.Username] = user
	return user, nil
}

type memThreadRepo struct {
	summaries    []domain.ConversationSummary
	participants map[uuid.UUID][]uuid.UUID
	readMarks    map[uuid.UUID]time.Time
}

func (r *memThreadRepo) ListForUser(context.Context, uuid.UUID) ([]domain.ConversationSummary, error) {
	return r.summaries, nil
}

func (r *memThreadRepo) SearchForUser(_ context.Context, _ uuid.UUID, query string) ([]domain.ConversationSummary, error) {
	var out []domain.ConversationSummary
	for _, s := range r.summaries {
		if s.Other.Username == query {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *memThreadRepo) Get(_ context.Context, threadID, _ uuid.UUID) (domain.ConversationSummary, error) {
	for _, s := range r.summaries {
		if s.ThreadID == threadID {
			return s, nil
		}
	}
	return domain.ConversationSummary{}, harbor_errors.ErrNotFound
}

func (r *memThreadRepo) Create(_ context.Context, viewerID, otherID uuid.UUID) (domain.ConversationSummary, error) {
	s := domain.ConversationSummary{
		ThreadID:          uuid.New(),
		Other:             domain.Profile{ID: otherID, Username: "other"},
		ParticipantStatus: domain.ParticipantActive,
		UpdatedAt:         time.Now(),
	}
	r.summaries = append(r.summaries, s)
	r.participants[s.ThreadID] = []uuid.UUID{viewerID, otherID}
	return s, nil
}

func (r *memThreadRepo) Participants(_ context.Context, threadID uuid.UUID) ([]uuid.UUID, error) {
	return r.participants[threadID], nil
}

func (r *memThreadRepo) IsParticipant(_ context.Context, threadID, userID uuid.UUID) (bool, error) {
	for _, id := range r.participants[threadID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *memThreadRepo) MarkRead(_ context.Context, threadID, _ uuid.UUID, at time.Time) error {
	r.readMarks[threadID] = at
	return nil
}

func (r *memThreadRepo) Touch(context.Context, uuid.UUID, time.Time) error { return nil }

func (r *memThreadRepo) ThreadsOf(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for threadID, members := range r.participants {
		for _, id := range members {
			if id == userID {
				out = append(out, threadID)
			}
		}
	}
	return out, nil
}

type memMessageRepo struct{}

func (memMessageRepo) ListBefore(context.Context, uuid.UUID, time.Time, int) ([]domain.Message, bool, error) {
	return nil, false, nil
}

func (memMessageRepo) Insert(context.Context, repository.InsertMessageParams) (domain.Message, error) {
	return domain.Message{}, nil
}

func (memMessageRepo) SoftDelete(context.Context, uuid.UUID, uuid.UUID, uuid.UUID) error {
	return nil
}

func (memMessageRepo) InsertReceipts(context.Context, uuid.UUID, uuid.UUID, time.Time) ([]domain.ReadReceipt, error) {
	return nil, nil
}

type nopBus struct{}

func (nopBus) Publish(context.Context, events.Event) error { return nil }

type threadTestEnv struct {
	router  *gin.Engine
	token   string
	userID  uuid.UUID
	threads *memThreadRepo
}

func newThreadTestEnv(t *testing.T) *threadTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := auth.HashPassword("password1")
	require.NoError(t, err)
	users := &memUserRepo{users: map[string]domain.User{}}
	user, err := users.Create(context.Background(), domain.User{Username: "alice", PasswordHash: hash})
	require.NoError(t, err)

	threads := &memThreadRepo{
		participants: map[uuid.UUID][]uuid.UUID{},
		readMarks:    map[uuid.UUID]time.Time{},
	}

	authService := auth.NewService(users, "test-secret", time.Hour)
	threadService := services.NewThreadService(threads, memMessageRepo{}, nopBus{}, nil)

	token, _, err := authService.Login(context.Background(), "alice", "password1")
	require.NoError(t, err)

	h := NewThreadHandler(threadService)
	router := gin.New()
	group := router.Group("/api/v1", middleware.AuthMiddleware(authService))
	group.GET("/threads", h.List)
	group.POST("/threads", h.Create)
	group.POST("/threads/:id/read", h.MarkRead)

	return &threadTestEnv{router: router, token: token, userID: user.ID, threads: threads}
}

func (e *threadTestEnv) request(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reqBody = bytes.NewBuffer(data)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func TestListThreadsRequiresAuth(t *testing.T) {
	env := newThreadTestEnv(t)

	rec := env.request(t, http.MethodGet, "/api/v1/threads", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.request(t, http.MethodGet, "/api/v1/threads", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListThreads(t *testing.T) {
	env := newThreadTestEnv(t)
	env.threads.summaries = []domain.ConversationSummary{{
		ThreadID:          uuid.New(),
		Other:             domain.Profile{ID: uuid.New(), Username: "bob"},
		ParticipantStatus: domain.ParticipantActive,
		UpdatedAt:         time.Now(),
	}}

	rec := env.request(t, http.MethodGet, "/api/v1/threads", nil, env.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httpdto.Response[[]httpdto.ThreadResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "bob", resp.Data[0].Other.Username)
}

func TestCreateThreadRejectsSelf(t *testing.T) {
	env := newThreadTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/threads",
		httpdto.CreateThreadRequest{OtherUserID: env.userID}, env.token)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateThreadAndMarkRead(t *testing.T) {
	env := newThreadTestEnv(t)
	other := uuid.New()

	rec := env.request(t, http.MethodPost, "/api/v1/threads",
		httpdto.CreateThreadRequest{OtherUserID: other}, env.token)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp httpdto.Response[httpdto.ThreadResponse]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	threadID := resp.Data.ID

	at := time.Now().UTC().Truncate(time.Second)
	rec = env.request(t, http.MethodPost, "/api/v1/threads/"+threadID.String()+"/read",
		httpdto.MarkReadRequest{At: at}, env.token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.threads.readMarks[threadID].Equal(at))
}

func TestMarkReadForbiddenForNonParticipant(t *testing.T) {
	env := newThreadTestEnv(t)

	rec := env.request(t, http.MethodPost, "/api/v1/threads/"+uuid.New().String()+"/read",
		httpdto.MarkReadRequest{At: time.Now()}, env.token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
