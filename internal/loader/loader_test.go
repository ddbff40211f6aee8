package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	api "vantage/internal/api"
	"vantage/internal/carrier"
	"vantage/internal/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// gatedBackend answers each key only when its gate is released.
type gatedBackend struct {
	mu    sync.Mutex
	gates map[int]chan struct{}
	calls atomic.Int32
}

func newGatedBackend() *gatedBackend { return &gatedBackend{gates: map[int]chan struct{}{}} }

func (b *gatedBackend) gate(key int) chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, ok := b.gates[key]
	if !ok {
		ch = make(chan struct{})
		b.gates[key] = ch
	}
	return ch
}

func (b *gatedBackend) release(key int) { close(b.gate(key)) }

func (b *gatedBackend) fetch(ctx context.Context, key int) (api.Response[string], error) {
	b.calls.Add(1)
	select {
	case <-b.gate(key):
		return api.OK(fmt.Sprintf("company-%d", key), ""), nil
	case <-ctx.Done():
		return api.Response[string]{}, ctx.Err()
	}
}

func adoptName(p carrier.Payload) (string, bool) {
	if p.Company == nil || p.Company.Name == "" {
		return "", false
	}
	return p.Company.Name, true
}

func waitResult[T any](t *testing.T, l *Loader[int, T]) Result[T] {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := l.Wait(ctx)
	require.NoError(t, err)
	return res
}

func TestAdoptCarriedSkipsFetch(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch, Adopt: adoptName})
	defer l.Close()

	c := domain.Company{ID: domain.NumericID(1), Name: "OptiCore Solutions"}
	res := l.Navigate(1, &carrier.Payload{Company: &c})

	assert.Equal(t, StatusLoaded, res.Status)
	assert.Equal(t, "OptiCore Solutions", res.Data)
	assert.Equal(t, "carried", res.Source)
	assert.Equal(t, int32(0), b.calls.Load())
}

func TestIncompleteCarriedFetches(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch, Adopt: adoptName})
	defer l.Close()

	res := l.Navigate(3, &carrier.Payload{})
	assert.Equal(t, StatusLoading, res.Status)
	assert.Empty(t, res.Data, "nothing is shown before the fetch resolves")

	b.release(3)
	res = waitResult(t, l)
	assert.Equal(t, StatusLoaded, res.Status)
	assert.Equal(t, "company-3", res.Data)
	assert.Equal(t, int32(1), b.calls.Load())
}

func TestLastRequestWins(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch})
	defer l.Close()

	l.Navigate(1, nil)
	l.Navigate(2, nil)

	b.release(2)
	res := waitResult(t, l)
	assert.Equal(t, "company-2", res.Data)

	// the stale request was cancelled; releasing it late changes nothing
	b.release(1)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, "company-2", l.Result().Data)
}

// The fetch for 1 ignores cancellation so its response really arrives after the fresh one.
func TestLateStaleResponseIsDiscarded(t *testing.T) {
	first := make(chan struct{})
	firstDone := make(chan struct{})
	fetch := func(ctx context.Context, key int) (api.Response[string], error) {
		if key == 1 {
			defer close(firstDone)
			<-first
		}
		return api.OK(fmt.Sprintf("company-%d", key), ""), nil
	}
	l := New(Config[int, string]{View: "test", Fetch: fetch})
	defer l.Close()

	l.Navigate(1, nil)
	l.Navigate(2, nil)
	res := waitResult(t, l)
	require.Equal(t, "company-2", res.Data)

	close(first)
	<-firstDone
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, "company-2", l.Result().Data)
	assert.Equal(t, StatusLoaded, l.Result().Status)
}

func TestWaitFollowsSupersedingNavigation(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch})
	defer l.Close()

	l.Navigate(1, nil)
	done := make(chan Result[string], 1)
	go func() {
		res, _ := l.Wait(context.Background())
		done <- res
	}()

	l.Navigate(2, nil)
	b.release(2)
	select {
	case res := <-done:
		assert.Equal(t, "company-2", res.Data)
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestNotFoundResponse(t *testing.T) {
	fetch := func(context.Context, int) (api.Response[string], error) {
		return api.Fail[string]("Portfolio company not found"), nil
	}
	l := New(Config[int, string]{View: "test", Fetch: fetch})
	defer l.Close()

	l.Navigate(9, nil)
	res := waitResult(t, l)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Portfolio company not found", res.Message)
}

func TestTransportFailureIsGenericAndLogged(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	fetch := func(context.Context, int) (api.Response[string], error) {
		return api.Response[string]{}, errors.New("dial tcp 10.0.0.1:443: connection refused")
	}
	l := New(Config[int, string]{
		View:           "synergy-analysis",
		Fetch:          fetch,
		FailureMessage: "Failed to load company data. Please try again.",
		Logger:         zap.New(core),
	})
	defer l.Close()

	l.Navigate(1, nil)
	res := waitResult(t, l)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Failed to load company data. Please try again.", res.Message)
	assert.NotContains(t, res.Message, "10.0.0.1")
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].ContextMap()["error"], "connection refused")
}

func TestTimeoutIsTransportFailure(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch, Timeout: 20 * time.Millisecond})
	defer l.Close()

	l.Navigate(1, nil)
	res := waitResult(t, l)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, DefaultFailureMessage, res.Message)
}

func TestForbiddenIsNotFound(t *testing.T) {
	fetch := func(context.Context, int) (api.Response[string], error) {
		return api.Response[string]{}, fmt.Errorf("get portfolio: %w", api.ErrForbidden)
	}
	l := New(Config[int, string]{View: "test", Fetch: fetch, NotFoundMessage: "Company not found."})
	defer l.Close()

	l.Navigate(1, nil)
	res := waitResult(t, l)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "Company not found.", res.Message)
	assert.False(t, res.Unauthorized)
}

func TestUnauthorizedRunsHook(t *testing.T) {
	var hooked atomic.Bool
	fetch := func(context.Context, int) (api.Response[string], error) {
		return api.Response[string]{}, api.ErrUnauthorized
	}
	l := New(Config[int, string]{View: "test", Fetch: fetch, OnUnauthorized: func() { hooked.Store(true) }})
	defer l.Close()

	l.Navigate(1, nil)
	res := waitResult(t, l)
	assert.True(t, res.Unauthorized)
	assert.Equal(t, SessionExpiredMessage, res.Message)
	assert.Eventually(t, hooked.Load, time.Second, 5*time.Millisecond)
}

func TestValidateRejectsMissingIDs(t *testing.T) {
	fetch := func(context.Context, int) (api.Response[domain.Company], error) {
		return api.OK(domain.Company{Name: "no id"}, ""), nil
	}
	l := New(Config[int, domain.Company]{
		View:     "test",
		Fetch:    fetch,
		Validate: func(c domain.Company) bool { return !c.ID.IsZero() },
	})
	defer l.Close()

	l.Navigate(1, nil)
	res := waitResult(t, l)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, DefaultNotFoundMessage, res.Message)
}

func TestCloseCancelsInFlight(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch})

	l.Navigate(1, nil)
	l.Close()

	res := waitResult(t, l)
	assert.Equal(t, StatusLoading, res.Status, "result of an unmounted view is never filled in")
	assert.Equal(t, StatusLoading, l.Navigate(2, nil).Status)
	assert.LessOrEqual(t, b.calls.Load(), int32(1), "no fetch after unmount")
}

func TestCarriedPayloadNotMutated(t *testing.T) {
	adopt := func(p carrier.Payload) ([]domain.Company, bool) {
		if p.Counterparts == nil {
			return nil, false
		}
		return p.Counterparts, true
	}
	l := New(Config[int, []domain.Company]{View: "test", Adopt: adopt})
	defer l.Close()

	p := carrier.Payload{Counterparts: []domain.Company{{Name: "DataStream Analytics"}}}
	res := l.Navigate(1, &p)
	require.Equal(t, StatusLoaded, res.Status)
	assert.Equal(t, "DataStream Analytics", p.Counterparts[0].Name)
	assert.NotNil(t, p.Counterparts)
}

func TestWaitForReportsSupersededKey(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch})
	defer l.Close()

	first := l.Navigate(1, nil)
	second := l.Navigate(2, nil)
	b.release(2)

	_, err := l.WaitFor(context.Background(), 1, first.Gen)
	assert.ErrorIs(t, err, ErrSuperseded)

	res, err := l.WaitFor(context.Background(), 2, second.Gen)
	require.NoError(t, err)
	assert.Equal(t, "company-2", res.Data)
	assert.Equal(t, second.Gen, res.Gen)
}

func TestWaitForFollowsSameKey(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch})
	defer l.Close()

	first := l.Navigate(1, nil)
	l.Navigate(1, nil)
	b.release(1)

	res, err := l.WaitFor(context.Background(), 1, first.Gen)
	require.NoError(t, err)
	assert.Equal(t, "company-1", res.Data)
}

func TestWaitForAfterClose(t *testing.T) {
	b := newGatedBackend()
	l := New(Config[int, string]{View: "test", Fetch: b.fetch})
	res := l.Navigate(1, nil)
	l.Close()

	_, err := l.WaitFor(context.Background(), 1, res.Gen)
	assert.ErrorIs(t, err, ErrSuperseded)

	late := l.Navigate(1, nil)
	_, err = l.WaitFor(context.Background(), 1, late.Gen)
	assert.ErrorIs(t, err, ErrSuperseded)
}
