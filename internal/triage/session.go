package triage

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"qrfeedback-backend/internal/models"
)

// ConfigStore persists triage configuration changes for a business. The
// MongoDB business repository satisfies this interface.
type ConfigStore interface {
	SetThreshold(ctx context.Context, businessID string, threshold int) error
	AddResolvedReview(ctx context.Context, businessID, reviewID string) error
	RemoveResolvedReview(ctx context.Context, businessID, reviewID string) error
}

// Source delivers full feedback snapshots for one business. Subscribe calls
// onSnapshot once with the current state and again after every underlying
// change; the returned stop function tears the subscription down and is the
// only cancellation handle a session needs.
type Source interface {
	Subscribe(ctx context.Context, businessID string, onSnapshot func([]models.Feedback)) (stop func(), err error)
}

// Session is one mounted dashboard instance. It holds the latest snapshot,
// the selected range and the triage config, and recomputes the entire view on
// every change. Mutations apply to local state immediately and persist in the
// background; a persistence failure is reported on the returned channel and
// logged, but the optimistic local change is kept. Until the next successful
// write or a full reload the displayed state can therefore diverge from the
// store.
//
// Session is safe for concurrent use; snapshot notifications and mutations
// serialize on one mutex, so no two recomputations overlap.
type Session struct {
	businessID string
	store      ConfigStore
	now        func() time.Time

	mu      sync.Mutex
	rng     Range
	cfg     Config
	records []models.Feedback
}

// NewSession starts a session for one business with its persisted config and
// the default range selected.
func NewSession(businessID string, cfg Config, store ConfigStore) *Session {
	return &Session{
		businessID: businessID,
		store:      store,
		now:        time.Now,
		rng:        DefaultRange,
		cfg:        cfg,
	}
}

// ApplySnapshot replaces the session's record set with a fresh snapshot from
// the store. Records must be ordered newest first.
func (s *Session) ApplySnapshot(records []models.Feedback) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = records
}

// SetConfig replaces the session's triage config, e.g. after the business
// document changed outside this session.
func (s *Session) SetConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg
}

// View recomputes the dashboard view from the current snapshot and config.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildView(s.records, s.cfg, s.rng, s.now().UTC())
}

// SelectRange switches the reporting window. The switch is pure local
// recomputation; the store is not consulted.
func (s *Session) SelectRange(r Range) error {
	if !r.Valid() {
		return ErrUnknownRange
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = r
	return nil
}

// CycleRange advances to the next range option, wrapping around, and returns
// the new selection.
func (s *Session) CycleRange() Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = s.rng.Next()
	return s.rng
}

// SelectedRange returns the active range.
func (s *Session) SelectedRange() Range {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng
}

// SetThreshold changes the flagging threshold. All in-memory records re-tag
// immediately; persistence happens in the background and its result arrives
// on the returned channel.
func (s *Session) SetThreshold(ctx context.Context, threshold int) (<-chan error, error) {
	if threshold < MinThreshold || threshold > MaxThreshold {
		return nil, ErrInvalidThreshold
	}
	s.mu.Lock()
	s.cfg.Threshold = threshold
	s.mu.Unlock()
	return s.persist(ctx, "set threshold", func(ctx context.Context) error {
		return s.store.SetThreshold(ctx, s.businessID, threshold)
	}), nil
}

// Resolve marks a review resolved. Calling it again for the same id is a
// no-op locally and an idempotent set-add at the store.
func (s *Session) Resolve(ctx context.Context, reviewID string) <-chan error {
	s.mu.Lock()
	s.cfg.Resolve(reviewID)
	s.mu.Unlock()
	return s.persist(ctx, "resolve review", func(ctx context.Context) error {
		return s.store.AddResolvedReview(ctx, s.businessID, reviewID)
	})
}

// Unresolve reverses Resolve, returning the review to the flagged state.
func (s *Session) Unresolve(ctx context.Context, reviewID string) <-chan error {
	s.mu.Lock()
	s.cfg.Unresolve(reviewID)
	s.mu.Unlock()
	return s.persist(ctx, "unresolve review", func(ctx context.Context) error {
		return s.store.RemoveResolvedReview(ctx, s.businessID, reviewID)
	})
}

// persist runs a store write in the background. The buffered channel carries
// the single result and is closed afterwards, so callers may ignore it
// without leaking the goroutine.
func (s *Session) persist(ctx context.Context, op string, write func(context.Context) error) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		err := write(ctx)
		if err != nil {
			log.Error().Err(err).
				Str("business_id", s.businessID).
				Str("op", op).
				Msg("triage config write failed; optimistic local state kept")
		}
		done <- err
	}()
	return done
}
