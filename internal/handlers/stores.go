package handlers

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"qrfeedback-backend/internal/models"
	"qrfeedback-backend/internal/triage"
)

// FeedbackStore is the slice of the feedback repository the HTTP layer needs.
type FeedbackStore interface {
	Create(ctx context.Context, feedback *models.Feedback) error
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Feedback, error)
	FindByBusiness(ctx context.Context, businessID bson.ObjectID) ([]models.Feedback, error)
	Subscribe(ctx context.Context, businessID string, onSnapshot func([]models.Feedback)) (func(), error)
}

// BusinessStore covers tenant reads and writes, including the triage config
// mutations the engine persists through.
type BusinessStore interface {
	FindByID(ctx context.Context, id bson.ObjectID) (*models.Business, error)
	FindOrCreate(ctx context.Context, email string) (*models.Business, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, profile models.BusinessProfile) error
	UpdateCustomization(ctx context.Context, id bson.ObjectID, c models.FormCustomization) error
	SaveRewards(ctx context.Context, id bson.ObjectID, rewards []models.Reward) error

	triage.ConfigStore
}

// TokenStore holds magic-link login tokens.
type TokenStore interface {
	Create(ctx context.Context, token *models.AuthToken) error
	FindByToken(ctx context.Context, token string) (*models.AuthToken, error)
	MarkUsed(ctx context.Context, token string) error
	CountRecentByEmail(ctx context.Context, email string, duration time.Duration) (int64, error)
}
