package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(time.Time) int {
	c.calls.Add(1)
	return 2
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := &countingSweeper{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		defer close(done)
		Run(ctx, s, 5*time.Millisecond, zap.New(core))
	}()

	assert.Eventually(t, func() bool { return s.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.NotZero(t, logs.FilterMessage("expired sessions swept").Len())
}

func TestRunWithoutIntervalReturns(t *testing.T) {
	s := &countingSweeper{}
	Run(context.Background(), s, 0, nil)
	assert.Zero(t, s.calls.Load())
}
