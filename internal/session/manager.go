package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"solarshop/internal/domain/carts"
)

// Manager hands out one Session per company.
type Manager struct {
	deps Deps

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(deps Deps) *Manager {
	deps.defaults()
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Get returns the company's session, creating it on first use. A non-empty
// companyName refreshes the display name.
func (m *Manager) Get(ctx context.Context, companyID, companyName string) (*Session, error) {
	companyID = strings.TrimSpace(companyID)
	if companyID == "" {
		return nil, carts.NewValidation(carts.OpLoad, carts.ErrMsgCompanyRequired)
	}

	m.mu.Lock()
	s, ok := m.sessions[companyID]
	if !ok {
		s = newSession(&m.deps, companyID, companyName)
		m.sessions[companyID] = s
		m.deps.Metrics.SessionOpened()
	}
	s.touch(m.deps.Now())
	m.mu.Unlock()

	if ok && companyName != "" {
		if err := s.rename(ctx, companyName); err != nil {
			return nil, carts.NewBackend(carts.OpLoad, err)
		}
	}
	return s, nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *Manager) list() []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// SyncAll starts a background sync of every session, each bounded by timeout.
func (m *Manager) SyncAll(ctx context.Context, timeout time.Duration) {
	for _, s := range m.list() {
		go func(s *Session) {
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			if _, err := s.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.deps.Logger.Warnw("background cart sync failed", "company_id", s.companyID, "error", err)
			}
		}(s)
	}
}

// EvictIdle closes and forgets sessions that Get has not handed out for
// longer than Deps.SessionIdle. Carts are persisted on every change, so an
// evicted company reloads its cart on the next Get.
func (m *Manager) EvictIdle() int {
	cutoff := m.deps.Now().Add(-m.deps.SessionIdle)

	m.mu.Lock()
	defer m.mu.Unlock()

	evicted := 0
	for id, s := range m.sessions {
		if !s.idleSince().Before(cutoff) {
			continue
		}
		s.Close()
		delete(m.sessions, id)
		m.deps.Metrics.SessionClosed()
		evicted++
	}
	return evicted
}

// RunSync evicts idle sessions and re-syncs the rest every interval until
// ctx is done.
func (m *Manager) RunSync(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.EvictIdle(); n > 0 {
				m.deps.Logger.Debugw("evicted idle cart sessions", "count", n)
			}
			m.SyncAll(ctx, interval)
		}
	}
}

func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, s := range m.sessions {
		s.Close()
		delete(m.sessions, id)
		m.deps.Metrics.SessionClosed()
	}
}
