package handlers

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"qrfeedback-backend/internal/models"
	"qrfeedback-backend/internal/notify"
)

type fakeFeedbackStore struct {
	mu       sync.Mutex
	created  []*models.Feedback
	byKey    map[string]*models.Feedback
	records  []models.Feedback
	storeErr error

	snapshots [][]models.Feedback
}

func (f *fakeFeedbackStore) Create(ctx context.Context, feedback *models.Feedback) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return f.storeErr
	}
	feedback.ID = bson.NewObjectID()
	feedback.CreatedAt = time.Now().UTC()
	f.created = append(f.created, feedback)
	return nil
}

func (f *fakeFeedbackStore) FindByIdempotencyKey(ctx context.Context, key string) (*models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	return f.byKey[key], nil
}

func (f *fakeFeedbackStore) FindByBusiness(ctx context.Context, businessID bson.ObjectID) ([]models.Feedback, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.storeErr != nil {
		return nil, f.storeErr
	}
	return f.records, nil
}

func (f *fakeFeedbackStore) Subscribe(ctx context.Context, businessID string, onSnapshot func([]models.Feedback)) (func(), error) {
	f.mu.Lock()
	snapshots := f.snapshots
	err := f.storeErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	for _, snap := range snapshots {
		onSnapshot(snap)
	}
	return func() {}, nil
}

func (f *fakeFeedbackStore) createdCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeBusinessStore struct {
	mu         sync.Mutex
	businesses map[string]*models.Business
	storeErr   error

	savedProfile       *models.BusinessProfile
	savedCustomization *models.FormCustomization
	savedRewards       []models.Reward
	thresholds         map[string]int
	resolved           []string
	unresolved         []string
}

func newFakeBusinessStore(businesses ...*models.Business) *fakeBusinessStore {
	s := &fakeBusinessStore{
		businesses: make(map[string]*models.Business),
		thresholds: make(map[string]int),
	}
	for _, b := range businesses {
		s.businesses[b.ID.Hex()] = b
	}
	return s
}

func (s *fakeBusinessStore) FindByID(ctx context.Context, id bson.ObjectID) (*models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	return s.businesses[id.Hex()], nil
}

func (s *fakeBusinessStore) FindOrCreate(ctx context.Context, email string) (*models.Business, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return nil, s.storeErr
	}
	for _, b := range s.businesses {
		if b.OwnerEmail == email {
			return b, nil
		}
	}
	b := &models.Business{ID: bson.NewObjectID(), OwnerEmail: email}
	b.Name = "Sample Business"
	s.businesses[b.ID.Hex()] = b
	return b, nil
}

func (s *fakeBusinessStore) UpdateProfile(ctx context.Context, id bson.ObjectID, profile models.BusinessProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.savedProfile = &profile
	return nil
}

func (s *fakeBusinessStore) UpdateCustomization(ctx context.Context, id bson.ObjectID, c models.FormCustomization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.savedCustomization = &c
	return nil
}

func (s *fakeBusinessStore) SaveRewards(ctx context.Context, id bson.ObjectID, rewards []models.Reward) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.savedRewards = rewards
	return nil
}

func (s *fakeBusinessStore) SetThreshold(ctx context.Context, businessID string, threshold int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.thresholds[businessID] = threshold
	return nil
}

func (s *fakeBusinessStore) AddResolvedReview(ctx context.Context, businessID, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.resolved = append(s.resolved, reviewID)
	return nil
}

func (s *fakeBusinessStore) RemoveResolvedReview(ctx context.Context, businessID, reviewID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.unresolved = append(s.unresolved, reviewID)
	return nil
}

type fakeTokenStore struct {
	mu      sync.Mutex
	tokens  map[string]*models.AuthToken
	recent  int64
	used    []string
	findErr error
}

func newFakeTokenStore() *fakeTokenStore {
	return &fakeTokenStore{tokens: make(map[string]*models.AuthToken)}
}

func (s *fakeTokenStore) Create(ctx context.Context, token *models.AuthToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	token.ID = bson.NewObjectID()
	token.CreatedAt = time.Now()
	s.tokens[token.Token] = token
	return nil
}

func (s *fakeTokenStore) FindByToken(ctx context.Context, token string) (*models.AuthToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.findErr != nil {
		return nil, s.findErr
	}
	return s.tokens[token], nil
}

func (s *fakeTokenStore) MarkUsed(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tokens[token]; ok {
		t.IsUsed = true
	}
	s.used = append(s.used, token)
	return nil
}

func (s *fakeTokenStore) CountRecentByEmail(ctx context.Context, email string, duration time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recent, nil
}

// fakeNotifier delivers each alert on a channel so tests can wait for the
// background publish.
type fakeNotifier struct {
	alerts chan notify.Alert
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{alerts: make(chan notify.Alert, 4)}
}

func (n *fakeNotifier) Publish(ctx context.Context, alert notify.Alert) error {
	n.alerts <- alert
	return nil
}
