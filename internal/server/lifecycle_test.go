package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// stubService records start/stop order and blocks until stopped.
type stubService struct {
	name    string
	order   *[]string
	mu      *sync.Mutex
	done    chan struct{}
	stopped sync.Once
	failErr error
}

func newStubService(name string, order *[]string, mu *sync.Mutex) *stubService {
	return &stubService{name: name, order: order, mu: mu, done: make(chan struct{})}
}

func (s *stubService) Start() error {
	s.mu.Lock()
	*s.order = append(*s.order, "start:"+s.name)
	s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	<-s.done
	return nil
}

func (s *stubService) Stop() {
	s.stopped.Do(func() {
		s.mu.Lock()
		*s.order = append(*s.order, "stop:"+s.name)
		s.mu.Unlock()
		close(s.done)
	})
}

func TestLifecycle_StopsInReverseOrder(t *testing.T) {
	var order []string
	var mu sync.Mutex

	lc := NewLifecycle(zap.NewNop())
	first := newStubService("first", &order, &mu)
	second := newStubService("second", &order, &mu)
	lc.Add("first", first)
	lc.Add("second", second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- lc.Run(ctx) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("lifecycle did not shut down")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, order, 4)
	assert.Equal(t, "stop:second", order[2])
	assert.Equal(t, "stop:first", order[3])
}

func TestLifecycle_ServiceFailureTriggersShutdown(t *testing.T) {
	var order []string
	var mu sync.Mutex

	lc := NewLifecycle(zap.NewNop())
	healthy := newStubService("healthy", &order, &mu)
	failing := newStubService("failing", &order, &mu)
	failing.failErr = errors.New("listen failed")
	lc.Add("healthy", healthy)
	lc.Add("failing", failing)

	done := make(chan error, 1)
	go func() { done <- lc.Run(context.Background()) }()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Contains(t, err.Error(), "service failing")
	case <-time.After(time.Second):
		t.Fatal("lifecycle did not shut down on service failure")
	}
}

func TestFuncService(t *testing.T) {
	started := false
	stopped := false
	svc := &FuncService{
		StartFn: func() error { started = true; return nil },
		StopFn:  func() { stopped = true },
	}
	require.NoError(t, svc.Start())
	svc.Stop()
	assert.True(t, started)
	assert.True(t, stopped)
}
