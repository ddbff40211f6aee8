package carrier

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vantage/internal/domain"
)

func samplePayload() Payload {
	c := domain.Company{ID: domain.NumericID(1), Name: "OptiCore Solutions"}
	return Payload{
		Company:      &c,
		Counterparts: []domain.Company{{ID: domain.NumericID(101), Name: "DataStream Analytics"}},
	}
}

func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("t%d", n)
	}
}

func TestTakeExactlyOnce(t *testing.T) {
	c := New(16, time.Minute)
	route := Route("synergy-analysis", domain.NumericID(1))
	id := c.Attach("alice", route, samplePayload())

	got, ok := c.Take("alice", route, id)
	require.True(t, ok)
	require.NotNil(t, got.Company)
	assert.Equal(t, "OptiCore Solutions", got.Company.Name)
	require.Len(t, got.Counterparts, 1)

	_, ok = c.Take("alice", route, id)
	assert.False(t, ok, "second read must see absence")
	assert.Equal(t, 0, c.Len())
}

func TestDirectLoadIsAbsent(t *testing.T) {
	c := New(16, time.Minute)
	c.Attach("alice", "synergy-analysis/1", samplePayload())

	_, ok := c.Take("alice", "synergy-analysis/1", "")
	assert.False(t, ok)
	_, ok = c.Take("alice", "synergy-analysis/1", "not-a-transition")
	assert.False(t, ok)
}

func TestTakeScopedToOwnerAndRoute(t *testing.T) {
	c := New(16, time.Minute, WithIDs(seqIDs()))
	id := c.Attach("alice", "synergy-analysis/1", samplePayload())
	assert.Equal(t, "t1", id)

	_, ok := c.Take("bob", "synergy-analysis/1", id)
	assert.False(t, ok)
	_, ok = c.Take("alice", "synergy-analysis/2", id)
	assert.False(t, ok)

	// misdirected reads do not consume the entry
	_, ok = c.Take("alice", "synergy-analysis/1", id)
	assert.True(t, ok)
}

func TestPayloadIsolation(t *testing.T) {
	c := New(16, time.Minute)
	p := samplePayload()
	id := c.Attach("alice", "r", p)

	p.Company.Name = "mutated after attach"
	p.Counterparts[0].Name = "mutated after attach"

	got, ok := c.Take("alice", "r", id)
	require.True(t, ok)
	assert.Equal(t, "OptiCore Solutions", got.Company.Name)
	assert.Equal(t, "DataStream Analytics", got.Counterparts[0].Name)
}

func TestExpiredTransitionIsAbsent(t *testing.T) {
	c := New(16, 20*time.Millisecond)
	id := c.Attach("alice", "r", samplePayload())
	time.Sleep(60 * time.Millisecond)
	_, ok := c.Take("alice", "r", id)
	assert.False(t, ok)
}

func TestForget(t *testing.T) {
	c := New(16, time.Minute)
	a1 := c.Attach("alice", "r1", samplePayload())
	c.Attach("alice", "r2", samplePayload())
	b := c.Attach("bob", "r1", samplePayload())

	assert.Equal(t, 2, c.Forget("alice"))
	_, ok := c.Take("alice", "r1", a1)
	assert.False(t, ok)
	_, ok = c.Take("bob", "r1", b)
	assert.True(t, ok)
}

func TestBoundedSize(t *testing.T) {
	c := New(2, time.Minute, WithIDs(seqIDs()))
	c.Attach("alice", "r", samplePayload())
	c.Attach("alice", "r", samplePayload())
	c.Attach("alice", "r", samplePayload())
	assert.Equal(t, 2, c.Len())
	_, ok := c.Take("alice", "r", "t1")
	assert.False(t, ok, "oldest transition is evicted")
}
