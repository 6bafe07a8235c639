package session

import (
	"context"
	"errors"

	"solarshop/internal/domain/carts"
)

// beginSync cancels any sync still in flight and registers a new one.
func (s *Session) beginSync(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.syncMu.Lock()
	if s.syncCancel != nil {
		s.syncCancel()
	}
	s.syncSeq++
	seq := s.syncSeq
	s.syncCancel = cancel
	s.syncMu.Unlock()

	return ctx, func() {
		s.syncMu.Lock()
		if s.syncSeq == seq {
			s.syncCancel = nil
		}
		s.syncMu.Unlock()
		cancel()
	}
}

// Sync re-reads the stored cart without holding the session. The result is
// dropped when the cart changed locally while the read was in flight or when
// the stored copy is older than what this session already saw.
func (s *Session) Sync(ctx context.Context) (View, error) {
	const op = carts.OpSync

	ctx, done := s.beginSync(ctx)
	defer done()

	var base int64
	if err := s.do(ctx, func() {
		s.ensureLoaded(ctx)
		base = s.state.Version
		s.dispatch(carts.Started{Op: op})
	}); err != nil {
		s.deps.Metrics.Sync("cancelled")
		return View{}, carts.NewBackend(op, err)
	}

	snap, readErr := s.deps.Carts.Load(ctx, s.companyID)

	var (
		view    View
		applied bool
	)
	err := s.do(context.WithoutCancel(ctx), func() {
		switch {
		case readErr != nil && ctx.Err() != nil:
			// superseded or abandoned; only clear the loading flag
			s.dispatch(carts.Abandoned{Op: op})
		case readErr != nil:
			s.dispatch(carts.Failed{Op: op, Err: carts.NewBackend(op, readErr)})
		default:
			before := s.state.Version
			s.dispatch(carts.Synced{Snapshot: snap, BaseVersion: base})
			applied = s.state.Version != before
		}
		view = newView(s.state, s.deps.Policy)
	})
	if err != nil {
		return View{}, carts.NewBackend(op, err)
	}

	switch {
	case readErr != nil && errors.Is(ctx.Err(), context.Canceled):
		s.deps.Metrics.Sync("cancelled")
		return view, carts.NewBackend(op, ctx.Err())
	case readErr != nil:
		s.deps.Metrics.Sync("failed")
		ce := carts.NewBackend(op, readErr)
		s.observe(op, ce)
		return view, ce
	case applied:
		s.deps.Metrics.Sync("applied")
	default:
		s.deps.Metrics.Sync("discarded")
	}
	s.observe(op, nil)
	return view, nil
}
