package service

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type readingLog struct {
	mu  sync.Mutex
	kwh []float64
}

func (l *readingLog) handle(_ context.Context, kwh float64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.kwh = append(l.kwh, kwh)
	return nil
}

func (l *readingLog) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.kwh)
}

func TestMeteringFeedTicksUntilStopped(t *testing.T) {
	mock := clock.NewMock()
	sampler := &sequenceSampler{}
	sampler.Set(0.4, 0.7)
	log := &readingLog{}
	feed := NewMeteringFeed(mock, 3*time.Second, sampler.Next, log.handle, discardLogger())

	require.True(t, feed.Start(context.Background()))
	assert.False(t, feed.Start(context.Background()))
	assert.True(t, feed.Running())

	mock.Add(3 * time.Second)
	require.Eventually(t, func() bool { return log.len() == 1 }, time.Second, 5*time.Millisecond)
	mock.Add(3 * time.Second)
	require.Eventually(t, func() bool { return log.len() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0.7, feed.LastReading())

	feed.Stop()
	assert.False(t, feed.Running())

	mock.Add(9 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 2, log.len())
	assert.Equal(t, []float64{0.4, 0.7}, log.kwh)

	// stopping twice is harmless and a restart begins a fresh interval
	feed.Stop()
	require.True(t, feed.Start(context.Background()))
	mock.Add(3 * time.Second)
	require.Eventually(t, func() bool { return log.len() == 3 }, time.Second, 5*time.Millisecond)
	feed.Stop()
}

func TestMeteringFeedStopsWithContext(t *testing.T) {
	mock := clock.NewMock()
	log := &readingLog{}
	feed := NewMeteringFeed(mock, time.Second, func() float64 { return 0.2 }, log.handle, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	require.True(t, feed.Start(ctx))
	cancel()
	time.Sleep(20 * time.Millisecond)

	mock.Add(5 * time.Second)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, log.len())
	feed.Stop()
}

func TestUniformSamplerRange(t *testing.T) {
	sample := UniformSampler(rand.New(rand.NewPCG(1, 2)))
	for range 1000 {
		kwh := sample()
		assert.GreaterOrEqual(t, kwh, 0.1)
		assert.LessOrEqual(t, kwh, 1.2)
		assert.InDelta(t, math.Round(kwh*1000), kwh*1000, 1e-6)
	}
}
