package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type closeRecorder struct {
	order *[]string
	name  string
}

func (c closeRecorder) Close() error {
	*c.order = append(*c.order, c.name)
	return nil
}

func TestAppStopsOnContextCancel(t *testing.T) {
	var running atomic.Int32
	var order []string

	ctx, cancel := context.WithCancel(context.Background())
	app := New("test", nil).
		Add(RunnerFunc(func(ctx context.Context) error {
			running.Add(1)
			<-ctx.Done()
			return nil
		})).
		Add(nil).
		OnClose(closeRecorder{&order, "first"}).
		OnClose(closeRecorder{&order, "second"})

	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()
	require.Eventually(t, func() bool { return running.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("app did not stop")
	}
	assert.Equal(t, []string{"second", "first"}, order)
}

func TestAppReturnsFirstFailure(t *testing.T) {
	boom := errors.New("listen: address in use")
	app := New("test", nil).
		Add(RunnerFunc(func(context.Context) error { return boom })).
		Add(RunnerFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}))

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}
