// Package remote is the thin HTTP data-access layer behind the sync
// core's Gateway interface. It consumes the backend's REST contract and
// converts wire shapes into domain entities; no merge logic lives here.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"harbor-chat/internal/domain"
	"harbor-chat/internal/events"
	"harbor-chat/internal/sync"
	"harbor-chat/internal/transport/httpdto"
)

// Client talks to the harbor-chat API with a bearer token.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

var _ sync.Gateway = (*Client)(nil)

// Login exchanges credentials for a token and returns an authenticated
// client.
func Login(ctx context.Context, baseURL, username, password string) (*Client, uuid.UUID, error) {
	c := NewClient(baseURL, "")
	var resp httpdto.LoginResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/auth/login", httpdto.LoginRequest{
		Username: username,
		Password: password,
	}, &resp)
	if err != nil {
		return nil, uuid.Nil, err
	}
	c.token = resp.Token
	return c, resp.UserID, nil
}

func (c *Client) ListThreads(ctx context.Context) ([]domain.ConversationSummary, error) {
	var resp []httpdto.ThreadResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/threads", nil, &resp); err != nil {
		return nil, err
	}
	return toSummaries(resp), nil
}

func (c *Client) SearchThreads(ctx context.Context, query string) ([]domain.ConversationSummary, error) {
	var resp []httpdto.ThreadResponse
	endpoint := "/api/v1/threads?q=" + url.QueryEscape(query)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return toSummaries(resp), nil
}

func (c *Client) CreateThread(ctx context.Context, otherUserID uuid.UUID) (domain.ConversationSummary, error) {
	var resp httpdto.ThreadResponse
	err := c.do(ctx, http.MethodPost, "/api/v1/threads", httpdto.CreateThreadRequest{OtherUserID: otherUserID}, &resp)
	if err != nil {
		return domain.ConversationSummary{}, err
	}
	return resp.ToDomain(), nil
}

func (c *Client) ListMessages(ctx context.Context, threadID uuid.UUID, before time.Time, limit int) ([]domain.Message, bool, error) {
	endpoint := fmt.Sprintf("/api/v1/threads/%s/messages?limit=%s", threadID, strconv.Itoa(limit))
	if !before.IsZero() {
		endpoint += "&before=" + url.QueryEscape(before.UTC().Format(time.RFC3339Nano))
	}

	var resp httpdto.ListMessagesResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, false, err
	}

	msgs := make([]domain.Message, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		msgs = append(msgs, m.ToDomain())
	}
	return msgs, resp.HasMore, nil
}

func (c *Client) SendMessage(ctx context.Context, threadID uuid.UUID, draft sync.Draft) (domain.Message, error) {
	req := httpdto.SendMessageRequest{
		ClientMessageID: draft.ClientID,
		Content:         draft.Content,
	}
	for _, att := range draft.Attachments {
		req.AttachmentIDs = append(req.AttachmentIDs, att.ID)
	}
	if draft.ReplyToID.Valid {
		id := draft.ReplyToID.UUID
		req.ReplyToID = &id
	}

	var resp events.MessagePayload
	endpoint := fmt.Sprintf("/api/v1/threads/%s/messages", threadID)
	if err := c.do(ctx, http.MethodPost, endpoint, req, &resp); err != nil {
		return domain.Message{}, err
	}
	return resp.ToDomain(), nil
}

func (c *Client) DeleteMessage(ctx context.Context, threadID, messageID uuid.UUID) error {
	endpoint := fmt.Sprintf("/api/v1/threads/%s/messages/%s", threadID, messageID)
	return c.do(ctx, http.MethodDelete, endpoint, nil, nil)
}

func (c *Client) MarkRead(ctx context.Context, threadID uuid.UUID, at time.Time) error {
	endpoint := fmt.Sprintf("/api/v1/threads/%s/read", threadID)
	return c.do(ctx, http.MethodPost, endpoint, httpdto.MarkReadRequest{At: at}, nil)
}

func (c *Client) SignedURL(ctx context.Context, att domain.Attachment) (domain.SignedURL, error) {
	var resp httpdto.AttachmentURLResponse
	endpoint := fmt.Sprintf("/api/v1/attachments/%s/url", att.ID)
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return domain.SignedURL{}, err
	}
	return domain.SignedURL{URL: resp.URL, ExpiresAt: resp.ExpiresAt}, nil
}

// do executes one API request, adding the bearer token and unwrapping the
// response envelope into out (which may be nil for empty responses).
func (c *Client) do(ctx context.Context, method, endpoint string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope httpdto.Response[json.RawMessage]
	if len(data) > 0 {
		if err := json.Unmarshal(data, &envelope); err != nil {
			return fmt.Errorf("%s %s: decode envelope (status %d): %w", method, endpoint, resp.StatusCode, err)
		}
	}
	if resp.StatusCode >= 400 || (len(data) > 0 && !envelope.Success) {
		msg := envelope.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return fmt.Errorf("%s %s: %s (status %d)", method, endpoint, msg, resp.StatusCode)
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("%s %s: decode data: %w", method, endpoint, err)
		}
	}
	return nil
}

func toSummaries(resp []httpdto.ThreadResponse) []domain.ConversationSummary {
	out := make([]domain.ConversationSummary, 0, len(resp))
	for _, t := range resp {
		out = append(out, t.ToDomain())
	}
	return out
}
