package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaiso/filequeue/internal/domain"
	"github.com/shaiso/filequeue/internal/telemetry"
)

type beat struct {
	URN    string
	Uptime time.Duration
	Force  bool
}

type fakeSource struct {
	mu    sync.Mutex
	beats []beat
	cfg   *domain.RuntimeConfig
	err   error
}

func (f *fakeSource) Heartbeat(_ context.Context, urn string, uptime time.Duration, force bool) (*domain.RuntimeConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.beats = append(f.beats, beat{URN: urn, Uptime: uptime, Force: force})
	return f.cfg, f.err
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.beats)
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []*domain.RuntimeConfig
	err     error
}

func (f *fakeApplier) ApplyConfig(_ context.Context, cfg *domain.RuntimeConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, cfg)
	return f.err
}

func newScheduler(t *testing.T, src *fakeSource, app *fakeApplier, schedule string) *Scheduler {
	t.Helper()

	s, err := New(Config{
		Source:   src,
		Applier:  app,
		URN:      "urn:mediator:file-queue",
		Uptime:   func() time.Duration { return 42 * time.Second },
		Schedule: schedule,
		Logger:   telemetry.Discard(),
	})
	require.NoError(t, err)
	return s
}

func TestParseSchedule(t *testing.T) {
	tests := []struct {
		expr    string
		wantErr bool
	}{
		{expr: "", wantErr: false},
		{expr: "@every 10s", wantErr: false},
		{expr: "*/5 * * * *", wantErr: false},
		{expr: "*/30 * * * * *", wantErr: false},
		{expr: "not a schedule", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			_, err := ParseSchedule(tt.expr)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidSchedule)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_InvalidSchedule(t *testing.T) {
	_, err := New(Config{Schedule: "bogus"})
	require.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestTick_AppliesReturnedConfig(t *testing.T) {
	cfg := &domain.RuntimeConfig{Endpoints: []domain.Endpoint{{Name: "a", Path: "/a", URL: "http://u"}}}
	src := &fakeSource{cfg: cfg}
	app := &fakeApplier{}
	s := newScheduler(t, src, app, "")

	received, err := s.Tick(context.Background(), false)
	require.NoError(t, err)
	assert.True(t, received)

	require.Len(t, src.beats, 1)
	assert.Equal(t, beat{URN: "urn:mediator:file-queue", Uptime: 42 * time.Second}, src.beats[0])
	require.Len(t, app.applied, 1)
	assert.Same(t, cfg, app.applied[0])
}

func TestTick_NoConfig(t *testing.T) {
	app := &fakeApplier{}
	s := newScheduler(t, &fakeSource{}, app, "")

	received, err := s.Tick(context.Background(), false)
	require.NoError(t, err)
	assert.False(t, received)
	assert.Empty(t, app.applied)
}

func TestTick_Errors(t *testing.T) {
	boom := errors.New("boom")

	s := newScheduler(t, &fakeSource{err: boom}, &fakeApplier{}, "")
	_, err := s.Tick(context.Background(), false)
	require.ErrorIs(t, err, boom)

	cfg := &domain.RuntimeConfig{Endpoints: []domain.Endpoint{}}
	s = newScheduler(t, &fakeSource{cfg: cfg}, &fakeApplier{err: boom}, "")
	received, err := s.Tick(context.Background(), false)
	require.ErrorIs(t, err, boom)
	assert.True(t, received)
}

func TestFetchInitial(t *testing.T) {
	src := &fakeSource{cfg: &domain.RuntimeConfig{Endpoints: []domain.Endpoint{}}}
	s := newScheduler(t, src, &fakeApplier{}, "")

	require.NoError(t, s.FetchInitial(context.Background()))
	require.Len(t, src.beats, 1)
	assert.True(t, src.beats[0].Force)
}

func TestFetchInitial_NoConfig(t *testing.T) {
	s := newScheduler(t, &fakeSource{}, &fakeApplier{}, "")
	require.ErrorIs(t, s.FetchInitial(context.Background()), ErrNoConfig)
}

func TestRun_BeatsUntilCancelled(t *testing.T) {
	src := &fakeSource{}
	s := newScheduler(t, src, &fakeApplier{}, "@every 1s")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return src.count() >= 1 }, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
