// Package predict is a minimal client for the prediction backend.
//
// The history view only needs GET /predict/ (the caller's prediction history).
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrUnauthorized matches a history request the API rejected with 401.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrDecode wraps a 2xx response whose body is not a record array.
	ErrDecode = errors.New("decode history")
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("/predict/ status %d", e.Code)
	}
	return fmt.Sprintf("/predict/ status %d: %s", e.Code, e.Body)
}

// Is lets errors.Is(err, ErrUnauthorized) match a 401 StatusError.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnauthorized && e.Code == http.StatusUnauthorized
}

// Client talks to the prediction API.
type Client struct {
	BaseURL *url.URL
	HTTP    *http.Client

	// Limiter, if set, paces outgoing history requests.
	Limiter *rate.Limiter
}

// NewClient constructs a prediction API client.
// A zero timeout leaves requests bounded only by their context.
func NewClient(base string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse api url: %w", err)
	}
	return &Client{
		BaseURL: u,
		HTTP: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// HistoryURL returns the absolute URL of the history endpoint.
func (c *Client) HistoryURL() string {
	return c.BaseURL.JoinPath("predict/").String()
}

// History fetches the prediction history of the user owning token.
//
// A JSON null body yields a nil slice; an empty array yields an empty, non-nil slice.
func (c *Client) History(ctx context.Context, token string) ([]Record, error) {
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch history: rate limit: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.HistoryURL(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch history: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := ioReadAllLimit(resp.Body, 4*1024)
		return nil, &StatusError{Code: resp.StatusCode, Body: string(bytes.TrimSpace(buf))}
	}

	var out []Record
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return out, nil
}

func ioReadAllLimit(r io.Reader, max int64) ([]byte, error) {
	buf := &bytes.Buffer{}
	if max <= 0 {
		return io.ReadAll(r)
	}
	_, err := io.CopyN(buf, r, max+1)
	if err != nil && err != io.EOF {
		return nil, err
	}
	b := buf.Bytes()
	if int64(len(b)) > max {
		return b[:max], nil
	}
	return b, nil
}
