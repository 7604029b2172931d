package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harbor-chat/internal/events"
	"harbor-chat/internal/sync"
	"harbor-chat/internal/transport/httpdto"
)

func envelope(t *testing.T, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	body, err := json.Marshal(httpdto.Response[json.RawMessage]{Success: true, Data: raw})
	require.NoError(t, err)
	return body
}

func TestListMessagesDecodesEnvelope(t *testing.T) {
	threadID := uuid.New()
	msgID := uuid.New()
	createdAt := time.Now().UTC().Truncate(time.Millisecond)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "/api/v1/threads/"+threadID.String()+"/messages", r.URL.Path)
		assert.Equal(t, "25", r.URL.Query().Get("limit"))

		w.Write(envelope(t, httpdto.ListMessagesResponse{
			Messages: []events.MessagePayload{{
				ID:        msgID,
				ThreadID:  threadID,
				SenderID:  uuid.New(),
				Content:   "hello",
				CreatedAt: createdAt,
			}},
			HasMore: true,
		}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	msgs, hasMore, err := client.ListMessages(context.Background(), threadID, time.Time{}, 25)
	require.NoError(t, err)
	assert.True(t, hasMore)
	require.Len(t, msgs, 1)
	assert.Equal(t, msgID, msgs[0].ID.UUID())
	assert.False(t, msgs[0].ID.Pending())
	assert.Equal(t, "hello", msgs[0].Content)
}

func TestListMessagesSendsBeforeCursor(t *testing.T) {
	before := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	var gotBefore string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBefore = r.URL.Query().Get("before")
		w.Write(envelope(t, httpdto.ListMessagesResponse{}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	_, _, err := client.ListMessages(context.Background(), uuid.New(), before, 50)
	require.NoError(t, err)

	parsed, err := time.Parse(time.RFC3339Nano, gotBefore)
	require.NoError(t, err)
	assert.True(t, parsed.Equal(before))
}

func TestSendMessageCarriesClientID(t *testing.T) {
	threadID := uuid.New()
	clientID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req httpdto.SendMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, clientID, req.ClientMessageID)
		assert.Equal(t, "hi", req.Content)

		w.Write(envelope(t, events.MessagePayload{
			ID:        uuid.New(),
			ThreadID:  threadID,
			Content:   req.Content,
			CreatedAt: time.Now().UTC(),
		}))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	msg, err := client.SendMessage(context.Background(), threadID, sync.Draft{Content: "hi", ClientID: clientID})
	require.NoError(t, err)
	assert.Equal(t, "hi", msg.Content)
	assert.False(t, msg.ID.Pending())
}

func TestErrorEnvelopeSurfacesMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		body, _ := json.Marshal(httpdto.NewErrorResponse("forbidden", "FORBIDDEN"))
		w.Write(body)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	_, err := client.ListThreads(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "forbidden")
}

func TestLoginReturnsAuthenticatedClient(t *testing.T) {
	userID := uuid.New()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write(envelope(t, httpdto.LoginResponse{Token: "issued", UserID: userID}))
	}))
	defer srv.Close()

	client, gotUser, err := Login(context.Background(), srv.URL, "alice", "password1")
	require.NoError(t, err)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, "issued", client.token)
}
