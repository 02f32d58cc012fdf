package history

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"

	"prediction-history/internal/predict"
)

type fakeFetcher struct {
	calls   atomic.Int32
	tokens  []string
	records []predict.Record
	err     error
	before  func() // runs inside History before returning
}

func (f *fakeFetcher) History(ctx context.Context, token string) ([]predict.Record, error) {
	f.calls.Add(1)
	f.tokens = append(f.tokens, token)
	if f.before != nil {
		f.before()
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func token(s string) TokenSource { return TokenFunc(func() string { return s }) }

func TestLoadWithoutTokenIssuesNoRequest(t *testing.T) {
	f := &fakeFetcher{}
	v := NewView("v", f, testLogger())

	res := v.Load(context.Background(), token(""), nil)

	if res.Outcome != OutcomeNoToken {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeNoToken)
	}
	if n := f.calls.Load(); n != 0 {
		t.Errorf("requests issued = %d, want 0", n)
	}
	if v.State().Loaded() {
		t.Error("view should stay loading")
	}

	// A nil token source behaves the same.
	v2 := NewView("v2", f, testLogger())
	v2.Load(context.Background(), nil, nil)
	if n := f.calls.Load(); n != 0 {
		t.Errorf("requests issued = %d, want 0", n)
	}
}

func TestLoadSuccess(t *testing.T) {
	f := &fakeFetcher{records: []predict.Record{{Date: "2024-01-01", Class: 0, Prediction: 0.1}}}
	v := NewView("v", f, testLogger())

	res := v.Load(context.Background(), token("abc"), nil)

	if res.Outcome != OutcomeSuccess {
		t.Fatalf("Outcome = %v, want success (err %v)", res.Outcome, res.Err)
	}
	if res.Records != 1 {
		t.Errorf("Records = %d, want 1", res.Records)
	}
	if f.tokens[0] != "abc" {
		t.Errorf("token passed = %q, want abc", f.tokens[0])
	}
	st := v.State()
	if !st.Loaded() || len(st.Records) != 1 {
		t.Errorf("state not loaded: %+v", st)
	}
}

func TestLoadRunsOnce(t *testing.T) {
	f := &fakeFetcher{records: []predict.Record{}}
	v := NewView("v", f, testLogger())

	v.Load(context.Background(), token("abc"), nil)
	res := v.Load(context.Background(), token("abc"), nil)

	if res.Outcome != OutcomeAlreadyLoaded {
		t.Errorf("second Outcome = %v, want %v", res.Outcome, OutcomeAlreadyLoaded)
	}
	if n := f.calls.Load(); n != 1 {
		t.Errorf("requests issued = %d, want 1", n)
	}
}

func TestLoadUnauthorizedInvokesExpiryOnce(t *testing.T) {
	f := &fakeFetcher{err: &predict.StatusError{Code: 401}}
	v := NewView("v", f, testLogger())

	var expired int
	res := v.Load(context.Background(), token("old"), ExpiryFunc(func(ctx context.Context) { expired++ }))

	if expired != 1 {
		t.Errorf("expiry handler calls = %d, want 1", expired)
	}
	if res.Outcome != OutcomeUnauthorized {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeUnauthorized)
	}
	if !res.Outcome.Failed() {
		t.Error("401 should also count as a failed load")
	}
	if res.HTTPStatus != 401 {
		t.Errorf("HTTPStatus = %d, want 401", res.HTTPStatus)
	}
	if v.State().Loaded() {
		t.Error("view should stay loading after 401")
	}
}

func TestLoadFailuresKeepLoading(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Outcome
	}{
		{"server error", &predict.StatusError{Code: 500}, OutcomeHTTPError},
		{"decode", errors.Join(predict.ErrDecode, errors.New("bad json")), OutcomeDecodeError},
		{"network", errors.New("connection refused"), OutcomeNetworkError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeFetcher{err: tt.err}
			v := NewView("v", f, testLogger())

			var expired int
			res := v.Load(context.Background(), token("t"), ExpiryFunc(func(ctx context.Context) { expired++ }))

			if res.Outcome != tt.want {
				t.Errorf("Outcome = %v, want %v", res.Outcome, tt.want)
			}
			if expired != 0 {
				t.Errorf("expiry handler should not run for %s", tt.name)
			}
			if v.State().Loaded() {
				t.Error("view should stay loading")
			}
		})
	}
}

func TestLoadDiscardsLateResultAfterUnmount(t *testing.T) {
	f := &fakeFetcher{records: []predict.Record{{Date: "late"}}}
	v := NewView("v", f, testLogger())
	f.before = v.Unmount

	res := v.Load(context.Background(), token("t"), nil)

	if res.Outcome != OutcomeDiscarded {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeDiscarded)
	}
	if v.State().Loaded() {
		t.Error("late result must not be applied")
	}
}

func TestLoadDiscardsResultAfterCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeFetcher{records: []predict.Record{{Date: "late"}}, before: cancel}
	v := NewView("v", f, testLogger())

	res := v.Load(ctx, token("t"), nil)

	if res.Outcome != OutcomeDiscarded {
		t.Errorf("Outcome = %v, want %v", res.Outcome, OutcomeDiscarded)
	}
	if v.State().Loaded() {
		t.Error("result after cancel must not be applied")
	}
}

func TestViewSelectAndClose(t *testing.T) {
	f := &fakeFetcher{records: []predict.Record{{Date: "a"}, {Date: "b", Class: 1, GenHlth: 3}}}
	v := NewView("v", f, testLogger())
	v.Load(context.Background(), token("t"), nil)

	if err := v.Select(5); !errors.Is(err, ErrNoSuchRecord) {
		t.Errorf("Select(5) error = %v, want ErrNoSuchRecord", err)
	}
	if err := v.Select(1); err != nil {
		t.Fatalf("Select(1) error = %v", err)
	}

	p := v.Page()
	if p.Detail == nil {
		t.Fatal("expected modal after select")
	}
	for _, fld := range p.Detail.Fields {
		if fld.Key == "GenHlth" && fld.Value != "Regular" {
			t.Errorf("GenHlth = %q, want Regular", fld.Value)
		}
	}

	v.CloseDetail()
	st := v.State()
	if st.Selected != nil || st.DetailVisible {
		t.Errorf("state after close = %+v", st)
	}
	if !st.Loaded() {
		t.Error("close must not drop records")
	}
}
