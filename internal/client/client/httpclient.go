package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/herdsync/internal/client/models"
	"github.com/dmitrijs2005/herdsync/internal/common"
)

// maxBody bounds how much of a response is read.
const maxBody = 32 << 20

type HTTPClient struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

// NewHTTPClient returns a client for the API rooted at baseURL. timeout
// bounds every request; zero leaves requests bounded by their context only.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) bearer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (c *HTTPClient) Register(ctx context.Context, name, email, password string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"name": name, "email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/register", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *HTTPClient) Authenticate(ctx context.Context, email, password string) (string, error) {
	var resp tokenResponse
	body := map[string]string{"email": email, "password": password}
	if _, err := c.do(ctx, http.MethodPost, "/auth/authenticate", nil, body, &resp); err != nil {
		return "", err
	}
	return resp.Token, nil
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if _, err := c.do(ctx, http.MethodGet, "/ping", nil, nil, &resp); err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}

func (c *HTTPClient) Push(ctx context.Context, batch models.Batch) (*models.Ack, error) {
	entity := batch.Entity()
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode %s batch: %w", entity, err)
	}

	var env dataEnvelope
	_, err = c.do(ctx, http.MethodPost, "/sync/"+string(entity)+"/push", nil, dataEnvelope{Data: data}, &env)
	if err != nil {
		return nil, err
	}

	ack := &models.Ack{}
	if len(env.Data) > 0 && string(env.Data) != "null" {
		if err := json.Unmarshal(env.Data, &ack.Items); err != nil {
			return nil, fmt.Errorf("decode %s ack: %w", entity, err)
		}
	}
	return ack, nil
}

func (c *HTTPClient) Pull(ctx context.Context, entity models.EntityType, since *time.Time) (*PullResult, error) {
	q := url.Values{}
	if since != nil {
		q.Set("since", since.UTC().Format(time.RFC3339Nano))
	}

	var raw json.RawMessage
	h, err := c.do(ctx, http.MethodGet, "/sync/"+string(entity)+"/pull", q, nil, &raw)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("[]")
	}
	return &PullResult{Data: raw, ServerTime: serverTime(h)}, nil
}

// do performs one request. in is encoded as the JSON body when non-nil; a
// non-empty 2xx body is decoded into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, q url.Values, in, out any) (http.Header, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t := c.bearer(); t != "" {
		req.Header.Set("Authorization", "Bearer "+t)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		_ = json.Unmarshal(payload, &e)
		return nil, &StatusError{Code: resp.StatusCode, Message: e.Error, Err: classify(resp.StatusCode)}
	}

	if out != nil && len(bytes.TrimSpace(payload)) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return resp.Header, nil
}

// serverTime reads the remote clock from the sync time header.
func serverTime(h http.Header) time.Time {
	v := h.Get(common.SyncTimeHeaderName)
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}
