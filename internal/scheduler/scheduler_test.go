package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRefresher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (m *mockRefresher) RefreshAliases(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return 42, m.err
}

func (m *mockRefresher) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestScheduler_RunsRefresh(t *testing.T) {
	refresher := &mockRefresher{}
	s := NewScheduler(refresher, "* * * * * *", slog.Default())
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool { return refresher.Calls() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestScheduler_InvalidSpec(t *testing.T) {
	s := NewScheduler(&mockRefresher{}, "every tuesday", slog.Default())
	err := s.Start()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "every tuesday")
}

func TestScheduler_RefreshErrorIsLogged(t *testing.T) {
	refresher := &mockRefresher{err: errors.New("429")}
	s := NewScheduler(refresher, "0 0 4 * * *", slog.Default())

	s.refreshAliases()
	assert.Equal(t, 1, refresher.Calls())
}
