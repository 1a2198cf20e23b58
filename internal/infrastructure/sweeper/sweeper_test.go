package sweeper

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/balanceledger/internal/usecase"
)

type runnerFunc func(ctx context.Context) (*usecase.TickReport, error)

func (f runnerFunc) RunTick(ctx context.Context) (*usecase.TickReport, error) {
	return f(ctx)
}

func TestSweeperRunsImmediatelyAndRepeats(t *testing.T) {
	var calls atomic.Int32
	runner := runnerFunc(func(ctx context.Context) (*usecase.TickReport, error) {
		calls.Add(1)
		return &usecase.TickReport{Wallets: 1, Idle: 1}, nil
	})

	s := New(runner, 5*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.Now().Add(time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled, got %v", err)
	}
	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", calls.Load())
	}
}

func TestSweeperLogsOutcomes(t *testing.T) {
	tests := []struct {
		name   string
		report *usecase.TickReport
		err    error
		want   string
	}{
		{name: "report", report: &usecase.TickReport{Wallets: 2, Forwarded: 1, Idle: 1}, want: `"forwarded":1`},
		{name: "in progress", err: usecase.ErrTickInProgress, want: "another tick is running"},
		{name: "failure", err: errors.New("wallets unavailable"), want: "wallets unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			runner := runnerFunc(func(ctx context.Context) (*usecase.TickReport, error) {
				return tt.report, tt.err
			})

			s := New(runner, time.Minute, zerolog.New(&buf).Level(zerolog.DebugLevel))
			s.tick(context.Background())

			if !strings.Contains(buf.String(), tt.want) {
				t.Fatalf("expected log to contain %q, got %s", tt.want, buf.String())
			}
		})
	}
}
