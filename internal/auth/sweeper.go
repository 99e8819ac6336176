// AngelaMos | 2026
// sweeper.go

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically deletes expired refresh tokens and denylist
// entries. Ticks that arrive while a sweep is still running are
// dropped rather than queued.
type Sweeper struct {
	refreshStore *RefreshTokenStore
	denylist     *RevocationRegistry
	interval     time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewSweeper(
	refreshStore *RefreshTokenStore,
	denylist *RevocationRegistry,
	interval time.Duration,
) *Sweeper {
	return &Sweeper{
		refreshStore: refreshStore,
		denylist:     denylist,
		interval:     interval,
	}
}

func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})

	go s.loop(ctx)
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	cancel()
	<-done
}

func (s *Sweeper) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one cleanup pass. Exposed so an operator endpoint can
// trigger it outside the timer.
func (s *Sweeper) Sweep(ctx context.Context) {
	start := time.Now()

	refreshRemoved, err := s.refreshStore.SweepExpired(ctx)
	if err != nil {
		slog.Error("refresh token sweep failed",
			slog.String("error", err.Error()),
		)
	}

	denylistRemoved, err := s.denylist.SweepExpired(ctx)
	if err != nil {
		slog.Error("denylist sweep failed",
			slog.String("error", err.Error()),
		)
	}

	slog.Info("token sweep complete",
		slog.Int64("refresh_tokens_removed", refreshRemoved),
		slog.Int64("denylist_entries_removed", denylistRemoved),
		slog.Duration("elapsed", time.Since(start)),
	)
}
