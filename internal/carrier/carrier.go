// Package carrier hands already-fetched entities from one view to the next
// across a single transition. A payload can be taken once, by the owner that
// attached it, for the route it was attached to.
package carrier

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"vantage/internal/domain"
	"vantage/internal/metrics"
)

// Payload is the envelope attached to one transition. Every field is
// optional; destinations check for the fields they need.
type Payload struct {
	Company      *domain.Company
	Counterparts []domain.Company
	Synergy      *domain.SynergyRecord
	BuyerID      domain.CompanyID
	TargetID     domain.CompanyID
	BuyerName    string
	TargetName   string
}

// Clone returns a deep copy.
func (p Payload) Clone() Payload {
	out := p
	if p.Company != nil {
		c := p.Company.Clone()
		out.Company = &c
	}
	out.Counterparts = domain.CloneCompanies(p.Counterparts)
	if p.Synergy != nil {
		s := p.Synergy.Clone()
		out.Synergy = &s
	}
	return out
}

// Route builds the destination key for a view and its primary id.
func Route(view string, id domain.CompanyID) string {
	return view + "/" + id.String()
}

type entry struct {
	owner   string
	route   string
	payload Payload
}

type Carrier struct {
	mu      sync.Mutex
	store   *expirable.LRU[string, entry]
	metrics *metrics.Recorder
	newID   func() string
}

type Option func(*Carrier)

func WithMetrics(m *metrics.Recorder) Option { return func(c *Carrier) { c.metrics = m } }

// WithIDs replaces the transition id generator.
func WithIDs(fn func() string) Option { return func(c *Carrier) { c.newID = fn } }

// New creates a carrier keeping at most size pending transitions for ttl.
// Abandoned transitions expire; a size of 0 means unbounded.
func New(size int, ttl time.Duration, opts ...Option) *Carrier {
	c := &Carrier{
		store: expirable.NewLRU[string, entry](size, nil, ttl),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Attach stores a copy of p for the given owner and destination route and
// returns the transition id to hand to the destination.
func (c *Carrier) Attach(owner, route string, p Payload) string {
	id := c.newID()
	c.mu.Lock()
	c.store.Add(id, entry{owner: owner, route: route, payload: p.Clone()})
	c.mu.Unlock()
	c.metrics.Transition(metrics.TransitionAttach)
	return id
}

// Take returns the payload attached under id and removes it. A direct load
// (empty id), an expired or already-taken id, a different owner or a
// different route all yield absence.
func (c *Carrier) Take(owner, route, id string) (Payload, bool) {
	if id == "" {
		return Payload{}, false
	}
	c.mu.Lock()
	e, ok := c.store.Peek(id)
	if ok && (e.owner != owner || e.route != route) {
		ok = false
	}
	if ok {
		c.store.Remove(id)
	}
	c.mu.Unlock()
	if !ok {
		c.metrics.Transition(metrics.TransitionMiss)
		return Payload{}, false
	}
	c.metrics.Transition(metrics.TransitionTake)
	return e.payload.Clone(), true
}

// Forget drops every pending transition of owner and reports how many.
func (c *Carrier) Forget(owner string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range c.store.Keys() {
		if e, ok := c.store.Peek(id); ok && e.owner == owner {
			c.store.Remove(id)
			n++
		}
	}
	if n > 0 {
		c.metrics.Transition(metrics.TransitionForget)
	}
	return n
}

// Len reports the number of pending transitions.
func (c *Carrier) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store.Len()
}
