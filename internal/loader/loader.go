// Package loader implements the read-through load used by every view: adopt
// the payload carried by the transition when it is complete, otherwise issue
// one fetch keyed by the route identifiers. Only the most recent navigation
// may update the displayed result.
package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	api "vantage/internal/api"
	"vantage/internal/carrier"
	"vantage/internal/metrics"
)

type Status string

const (
	StatusLoading Status = "loading"
	StatusLoaded  Status = "loaded"
	StatusError   Status = "error"
)

const (
	DefaultTimeout         = 10 * time.Second
	DefaultFailureMessage  = "Failed to load data. Please try again."
	DefaultNotFoundMessage = "Not found."
	SessionExpiredMessage  = "Your session has expired. Please sign in again."
)

// Result is the three-state outcome exposed to a view.
type Result[T any] struct {
	Status  Status
	Data    T
	Message string
	// Source is metrics.SourceCarried or metrics.SourceFetch once settled.
	Source string
	// Unauthorized is set when the backend rejected the session.
	Unauthorized bool
	// Gen identifies the navigation that produced the result.
	Gen uint64
}

// ErrSuperseded is returned by WaitFor when a navigation to a different key
// replaced the one being waited on.
var ErrSuperseded = errors.New("loader: navigation superseded")

// Fetch performs the network call for key.
type Fetch[K comparable, T any] func(ctx context.Context, key K) (api.Response[T], error)

type Config[K comparable, T any] struct {
	// View names the view in logs and metrics.
	View  string
	Fetch Fetch[K, T]
	// Adopt extracts this view's data from a carried payload. It must report
	// false unless every field the view needs is present, and must not modify p.
	Adopt func(p carrier.Payload) (T, bool)
	// Validate rejects fetched data lacking its identifying fields; such
	// responses are treated as not found.
	Validate        func(T) bool
	Timeout         time.Duration
	FailureMessage  string
	NotFoundMessage string
	// OnUnauthorized runs after a 401 from the backend settles the current request.
	OnUnauthorized func()
	Logger         *zap.Logger
	Metrics        *metrics.Recorder
}

type Loader[K comparable, T any] struct {
	cfg Config[K, T]

	base context.Context
	stop context.CancelFunc

	mu      sync.Mutex
	gen     uint64
	key     K
	cancel  context.CancelFunc
	settled chan struct{}
	pending bool
	closed  bool
	result  Result[T]
}

func New[K comparable, T any](cfg Config[K, T]) *Loader[K, T] {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.FailureMessage == "" {
		cfg.FailureMessage = DefaultFailureMessage
	}
	if cfg.NotFoundMessage == "" {
		cfg.NotFoundMessage = DefaultNotFoundMessage
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	base, stop := context.WithCancel(context.Background())
	return &Loader[K, T]{cfg: cfg, base: base, stop: stop}
}

// Navigate starts a load for key. A complete carried payload is adopted
// synchronously and no fetch is issued. Otherwise any in-flight fetch is
// abandoned and a new one starts; the returned result is then loading.
func (l *Loader[K, T]) Navigate(key K, carried *carrier.Payload) Result[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		// gen 0 never settles, so WaitFor reports the request superseded
		return Result[T]{Status: StatusLoading}
	}
	l.gen++
	gen := l.gen
	l.key = key
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	// wake waiters of the superseded request; they follow the new one
	l.settleLocked()

	if carried != nil && l.cfg.Adopt != nil {
		if data, ok := l.cfg.Adopt(*carried); ok {
			l.result = Result[T]{Status: StatusLoaded, Data: data, Source: metrics.SourceCarried, Gen: gen}
			l.cfg.Metrics.Load(l.cfg.View, metrics.SourceCarried, string(StatusLoaded))
			return l.result
		}
		l.cfg.Logger.Debug("carried state incomplete, fetching", zap.String("view", l.cfg.View))
	}

	ctx, cancel := context.WithTimeout(l.base, l.cfg.Timeout)
	l.cancel = cancel
	l.settled = make(chan struct{})
	l.pending = true
	l.result = Result[T]{Status: StatusLoading, Gen: gen}
	go l.run(ctx, cancel, gen, key)
	return l.result
}

func (l *Loader[K, T]) run(ctx context.Context, cancel context.CancelFunc, gen uint64, key K) {
	defer cancel()
	start := time.Now()
	resp, err := l.cfg.Fetch(ctx, key)
	l.cfg.Metrics.Fetch(l.cfg.View, time.Since(start), err)

	l.mu.Lock()
	if gen != l.gen {
		l.mu.Unlock()
		l.cfg.Metrics.Superseded(l.cfg.View)
		l.cfg.Logger.Debug("discarding superseded result", zap.String("view", l.cfg.View), zap.Any("key", key))
		return
	}
	res := l.interpret(key, resp, err)
	res.Gen = gen
	l.result = res
	l.cancel = nil
	l.settleLocked()
	l.mu.Unlock()

	l.cfg.Metrics.Load(l.cfg.View, metrics.SourceFetch, string(res.Status))
	if res.Unauthorized && l.cfg.OnUnauthorized != nil {
		l.cfg.OnUnauthorized()
	}
}

func (l *Loader[K, T]) interpret(key K, resp api.Response[T], err error) Result[T] {
	log := l.cfg.Logger.With(zap.String("view", l.cfg.View), zap.Any("key", key))
	fail := func(msg string) Result[T] {
		return Result[T]{Status: StatusError, Message: msg, Source: metrics.SourceFetch}
	}
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		log.Warn("backend rejected session")
		r := fail(SessionExpiredMessage)
		r.Unauthorized = true
		return r
	case errors.Is(err, api.ErrForbidden):
		log.Warn("backend denied access", zap.Error(err))
		return fail(l.cfg.NotFoundMessage)
	case err != nil:
		log.Error("fetch failed", zap.Error(err))
		return fail(l.cfg.FailureMessage)
	case !resp.Success:
		msg := resp.Message
		if msg == "" {
			msg = l.cfg.NotFoundMessage
		}
		log.Info("backend reported no data", zap.String("message", resp.Message))
		return fail(msg)
	case l.cfg.Validate != nil && !l.cfg.Validate(resp.Data):
		log.Warn("response lacks identifying fields")
		return fail(l.cfg.NotFoundMessage)
	}
	return Result[T]{Status: StatusLoaded, Data: resp.Data, Source: metrics.SourceFetch}
}

func (l *Loader[K, T]) settleLocked() {
	if l.pending {
		close(l.settled)
		l.pending = false
	}
}

// Result returns the current state without blocking.
func (l *Loader[K, T]) Result() Result[T] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.result
}

// Wait blocks until the latest navigation settles, following any navigation
// that supersedes it while waiting. It returns the current state and ctx's
// error if ctx ends first.
func (l *Loader[K, T]) Wait(ctx context.Context) (Result[T], error) {
	for {
		l.mu.Lock()
		res, pending, ch := l.result, l.pending, l.settled
		l.mu.Unlock()
		if !pending {
			return res, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// WaitFor blocks until the navigation gen to key settles. A later navigation
// to the same key is followed; one to a different key yields ErrSuperseded, so
// a caller never receives data loaded for someone else's key.
func (l *Loader[K, T]) WaitFor(ctx context.Context, key K, gen uint64) (Result[T], error) {
	for {
		l.mu.Lock()
		if l.gen != gen {
			if l.closed || l.key != key {
				l.mu.Unlock()
				return Result[T]{}, ErrSuperseded
			}
			gen = l.gen
		}
		res, pending, ch := l.result, l.pending, l.settled
		l.mu.Unlock()
		if !pending {
			return res, nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return res, ctx.Err()
		}
	}
}

// Close unmounts the view: the in-flight fetch, if any, is cancelled and its
// result ignored. Navigate is a no-op afterwards.
func (l *Loader[K, T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.gen++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.settleLocked()
	l.stop()
}
