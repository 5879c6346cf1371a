package triage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"qrfeedback-backend/internal/models"
)

// fakeConfigStore records writes and can be told to fail.
type fakeConfigStore struct {
	mu        sync.Mutex
	failWith  error
	threshold []int
	added     []string
	removed   []string
}

func (f *fakeConfigStore) SetThreshold(ctx context.Context, businessID string, threshold int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.threshold = append(f.threshold, threshold)
	return nil
}

func (f *fakeConfigStore) AddResolvedReview(ctx context.Context, businessID, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.added = append(f.added, reviewID)
	return nil
}

func (f *fakeConfigStore) RemoveResolvedReview(ctx context.Context, businessID, reviewID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.removed = append(f.removed, reviewID)
	return nil
}

func newSessionWithRecords(store ConfigStore, records ...models.Feedback) *Session {
	s := NewSession(bson.NewObjectID().Hex(), NewConfig(DefaultThreshold, nil), store)
	s.ApplySnapshot(records)
	return s
}

func waitResult(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for persistence result")
		return nil
	}
}

func TestSession_ResolveIsOptimisticAndIdempotent(t *testing.T) {
	now := time.Now().UTC()
	rec := record(1, now.Add(-time.Hour))
	store := &fakeConfigStore{}
	s := newSessionWithRecords(store, rec)

	if got := s.View(); len(got.UnresolvedFlagged) != 1 {
		t.Fatalf("precondition: want one action item, got %d", len(got.UnresolvedFlagged))
	}

	// The local view flips before the store write completes.
	ch := s.Resolve(context.Background(), rec.ID.Hex())
	view := s.View()
	if view.Reviews[0].Tag != TagReviewed {
		t.Errorf("tag after resolve = %q, want reviewed", view.Reviews[0].Tag)
	}
	if len(view.UnresolvedFlagged) != 0 {
		t.Errorf("action items after resolve = %d, want 0", len(view.UnresolvedFlagged))
	}
	if err := waitResult(t, ch); err != nil {
		t.Fatalf("persist: %v", err)
	}

	// Resolving twice yields the same resolved set as resolving once.
	if err := waitResult(t, s.Resolve(context.Background(), rec.ID.Hex())); err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	again := s.View()
	if again.Reviews[0].Tag != TagReviewed || len(again.UnresolvedFlagged) != 0 {
		t.Errorf("second resolve changed the view: %+v", again)
	}
}

func TestSession_UnresolveReflags(t *testing.T) {
	now := time.Now().UTC()
	rec := record(2, now.Add(-time.Hour))
	store := &fakeConfigStore{}
	s := newSessionWithRecords(store, rec)

	waitResult(t, s.Resolve(context.Background(), rec.ID.Hex()))
	waitResult(t, s.Unresolve(context.Background(), rec.ID.Hex()))

	view := s.View()
	if view.Reviews[0].Tag != TagFlagged {
		t.Errorf("tag after unresolve = %q, want flagged", view.Reviews[0].Tag)
	}
	if len(view.UnresolvedFlagged) != 1 {
		t.Errorf("action items after unresolve = %d, want 1", len(view.UnresolvedFlagged))
	}
	if len(store.added) != 1 || len(store.removed) != 1 {
		t.Errorf("store calls: added=%v removed=%v", store.added, store.removed)
	}
}

func TestSession_PersistFailureKeepsLocalState(t *testing.T) {
	now := time.Now().UTC()
	rec := record(1, now.Add(-time.Hour))
	store := &fakeConfigStore{failWith: errors.New("store unreachable")}
	s := newSessionWithRecords(store, rec)

	ch := s.Resolve(context.Background(), rec.ID.Hex())
	if err := waitResult(t, ch); err == nil {
		t.Fatal("expected persistence error")
	}

	// No rollback: the optimistic change survives the failed write.
	view := s.View()
	if view.Reviews[0].Tag != TagReviewed {
		t.Errorf("tag after failed persist = %q, want reviewed", view.Reviews[0].Tag)
	}
}

func TestSession_SetThresholdRetagsImmediately(t *testing.T) {
	now := time.Now().UTC()
	rec := record(4, now.Add(-time.Hour))
	store := &fakeConfigStore{}
	s := newSessionWithRecords(store, rec)

	if got := s.View().Reviews[0].Tag; got != TagNew {
		t.Fatalf("precondition: tag = %q, want new", got)
	}

	ch, err := s.SetThreshold(context.Background(), 4)
	if err != nil {
		t.Fatalf("SetThreshold: %v", err)
	}
	if got := s.View().Reviews[0].Tag; got != TagFlagged {
		t.Errorf("tag after raising threshold = %q, want flagged", got)
	}
	if err := waitResult(t, ch); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if len(store.threshold) != 1 || store.threshold[0] != 4 {
		t.Errorf("persisted thresholds = %v, want [4]", store.threshold)
	}
}

func TestSession_SetThresholdRejectsOutOfRange(t *testing.T) {
	s := newSessionWithRecords(&fakeConfigStore{})
	for _, bad := range []int{0, 6, -3} {
		if _, err := s.SetThreshold(context.Background(), bad); !errors.Is(err, ErrInvalidThreshold) {
			t.Errorf("SetThreshold(%d): err = %v, want ErrInvalidThreshold", bad, err)
		}
	}
	if got := s.View().Threshold; got != DefaultThreshold {
		t.Errorf("threshold after rejected writes = %d, want %d", got, DefaultThreshold)
	}
}

func TestSession_RangeSelection(t *testing.T) {
	now := time.Now().UTC()
	recent := record(5, now.Add(-time.Hour))
	old := record(3, now.AddDate(0, 0, -10))
	s := newSessionWithRecords(&fakeConfigStore{}, recent, old)

	if err := s.SelectRange(RangeLast7Days); err != nil {
		t.Fatalf("SelectRange: %v", err)
	}
	if got := s.View().Stats.TotalReviews; got != 1 {
		t.Errorf("last-7-days total = %d, want 1", got)
	}

	if err := s.SelectRange(Range("bogus")); !errors.Is(err, ErrUnknownRange) {
		t.Errorf("SelectRange(bogus): err = %v, want ErrUnknownRange", err)
	}

	// Cycling from all-time wraps back to the first option.
	s.SelectRange(RangeAllTime)
	if got := s.CycleRange(); got != RangeLast7Days {
		t.Errorf("CycleRange from all-time = %q, want last-7-days", got)
	}
	if got := s.SelectedRange(); got != RangeLast7Days {
		t.Errorf("SelectedRange = %q, want last-7-days", got)
	}
}

func TestSession_SnapshotReplacesState(t *testing.T) {
	now := time.Now().UTC()
	s := newSessionWithRecords(&fakeConfigStore{}, record(5, now))

	if got := s.View().Stats.TotalReviews; got != 1 {
		t.Fatalf("initial total = %d, want 1", got)
	}
	s.ApplySnapshot([]models.Feedback{record(5, now), record(1, now)})
	view := s.View()
	if view.Stats.TotalReviews != 2 {
		t.Errorf("total after snapshot = %d, want 2", view.Stats.TotalReviews)
	}
	if len(view.UnresolvedFlagged) != 1 {
		t.Errorf("action items after snapshot = %d, want 1", len(view.UnresolvedFlagged))
	}
}

func TestSession_SetConfigReloads(t *testing.T) {
	now := time.Now().UTC()
	rec := record(3, now.Add(-time.Hour))
	s := newSessionWithRecords(&fakeConfigStore{}, rec)

	s.SetConfig(NewConfig(3, []string{bson.NewObjectID().Hex()}))
	view := s.View()
	if view.Threshold != 3 {
		t.Errorf("threshold after SetConfig = %d, want 3", view.Threshold)
	}
	if view.Reviews[0].Tag != TagFlagged {
		t.Errorf("tag after SetConfig = %q, want flagged", view.Reviews[0].Tag)
	}
}
