// Package history implements the prediction history view: its state,
// the one-shot history load, and the mapping from state to a render model.
package history

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"prediction-history/internal/predict"
)

// ErrNoSuchRecord is returned when a selection does not address a loaded record.
var ErrNoSuchRecord = errors.New("no such record")

// Fetcher retrieves the prediction history for a bearer token.
type Fetcher interface {
	History(ctx context.Context, token string) ([]predict.Record, error)
}

// TokenSource yields the caller's auth token, or "" when there is none.
type TokenSource interface {
	Token() string
}

// SessionExpiryHandler performs application-level handling of an expired session.
type SessionExpiryHandler interface {
	SessionExpired(ctx context.Context)
}

// TokenFunc adapts a function to TokenSource.
type TokenFunc func() string

func (f TokenFunc) Token() string { return f() }

// ExpiryFunc adapts a function to SessionExpiryHandler.
type ExpiryFunc func(ctx context.Context)

func (f ExpiryFunc) SessionExpired(ctx context.Context) { f(ctx) }

// Outcome classifies how a load attempt ended.
type Outcome string

const (
	OutcomeSuccess       Outcome = "success"
	OutcomeNoToken       Outcome = "no_token"
	OutcomeAlreadyLoaded Outcome = "already_loaded"
	OutcomeUnauthorized  Outcome = "unauthorized"
	OutcomeHTTPError     Outcome = "http_error"
	OutcomeNetworkError  Outcome = "network_error"
	OutcomeDecodeError   Outcome = "decode_error"
	OutcomeDiscarded     Outcome = "discarded"
)

// Failed reports whether the outcome is a fetch failure.
func (o Outcome) Failed() bool {
	switch o {
	case OutcomeUnauthorized, OutcomeHTTPError, OutcomeNetworkError, OutcomeDecodeError:
		return true
	}
	return false
}

// LoadResult describes one load attempt.
type LoadResult struct {
	Outcome    Outcome
	HTTPStatus int // set for non-2xx responses
	Records    int
	Duration   time.Duration
	Err        error
}

// View is one mounted history view.
//
// It is safe for concurrent use; several HTTP requests may address the same view.
type View struct {
	ID string

	fetcher Fetcher
	logger  *slog.Logger

	mu          sync.Mutex
	state       State
	loadStarted bool
	unmounted   bool
}

// NewView creates a view in the loading state.
func NewView(id string, fetcher Fetcher, logger *slog.Logger) *View {
	if logger == nil {
		logger = slog.Default()
	}
	return &View{
		ID:      id,
		fetcher: fetcher,
		logger:  logger,
	}
}

// Load fetches the history once. It is a no-op without a token.
//
// A 401 invokes expiry and is then handled like any other failure: logged,
// with the view left loading. A result arriving after ctx is done or the
// view was unmounted is discarded.
func (v *View) Load(ctx context.Context, tokens TokenSource, expiry SessionExpiryHandler) LoadResult {
	v.mu.Lock()
	if v.loadStarted {
		v.mu.Unlock()
		return LoadResult{Outcome: OutcomeAlreadyLoaded}
	}
	v.loadStarted = true
	v.mu.Unlock()

	token := ""
	if tokens != nil {
		token = tokens.Token()
	}
	if token == "" {
		v.logger.Debug("no auth token, history not requested", "view", v.ID)
		return LoadResult{Outcome: OutcomeNoToken}
	}

	start := time.Now()
	recs, err := v.fetcher.History(ctx, token)
	res := LoadResult{Duration: time.Since(start), Err: err}

	if err != nil {
		var se *predict.StatusError
		if errors.As(err, &se) {
			res.HTTPStatus = se.Code
		}

		if errors.Is(err, predict.ErrUnauthorized) {
			res.Outcome = OutcomeUnauthorized
			if expiry != nil {
				expiry.SessionExpired(ctx)
			}
		} else if ctx.Err() != nil && res.HTTPStatus == 0 {
			res.Outcome = OutcomeDiscarded
			v.logger.Debug("history load abandoned", "view", v.ID, "err", err)
			return res
		}

		// Falls through for 401 too.
		v.logger.Error("failed to fetch prediction history", "view", v.ID, "err", err)
		if res.Outcome == "" {
			res.Outcome = classify(err)
		}
		return res
	}

	res.Records = len(recs)

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.unmounted || ctx.Err() != nil {
		res.Outcome = OutcomeDiscarded
		v.logger.Debug("discarding late history result", "view", v.ID, "records", len(recs))
		return res
	}
	v.state = v.state.WithRecords(recs)
	res.Outcome = OutcomeSuccess
	return res
}

// State returns a snapshot of the view state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Select opens the detail modal for the record at index.
func (v *View) Select(index int) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	rec, ok := v.state.Record(index)
	if !ok {
		return ErrNoSuchRecord
	}
	v.state = v.state.Select(rec)
	return nil
}

// CloseDetail closes the detail modal.
func (v *View) CloseDetail() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = v.state.CloseDetail()
}

// Unmount tears the view down; any in-flight load result will be discarded.
func (v *View) Unmount() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.unmounted = true
	v.state = State{}
}

// Unmounted reports whether Unmount was called.
func (v *View) Unmounted() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.unmounted
}

// Page builds the render model from the current state.
func (v *View) Page() Page {
	return BuildPage(v.ID, v.State())
}

func classify(err error) Outcome {
	var se *predict.StatusError
	switch {
	case errors.As(err, &se):
		return OutcomeHTTPError
	case errors.Is(err, predict.ErrDecode):
		return OutcomeDecodeError
	default:
		return OutcomeNetworkError
	}
}
