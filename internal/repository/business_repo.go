package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"qrfeedback-backend/internal/database"
	"qrfeedback-backend/internal/models"
	"qrfeedback-backend/internal/triage"
)

type BusinessRepo struct {
	collection *mongo.Collection
}

func NewBusinessRepo() *BusinessRepo {
	return &BusinessRepo{
		collection: database.GetCollection("businesses"),
	}
}

func (r *BusinessRepo) FindByID(ctx context.Context, id bson.ObjectID) (*models.Business, error) {
	var business models.Business
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&business)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &business, nil
}

func (r *BusinessRepo) FindByOwnerEmail(ctx context.Context, email string) (*models.Business, error) {
	var business models.Business
	err := r.collection.FindOne(ctx, bson.M{"owner_email": email}).Decode(&business)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &business, nil
}

func (r *BusinessRepo) Create(ctx context.Context, business *models.Business) error {
	business.CreatedAt = time.Now()
	business.UpdatedAt = time.Now()
	result, err := r.collection.InsertOne(ctx, business)
	if err != nil {
		return err
	}
	business.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindOrCreate returns the tenant for an owner email, creating it with
// default triage config and stock form customization on first login.
func (r *BusinessRepo) FindOrCreate(ctx context.Context, email string) (*models.Business, error) {
	business, err := r.FindByOwnerEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if business != nil {
		return business, nil
	}

	newBusiness := &models.Business{
		OwnerEmail:        email,
		FlaggingThreshold: triage.DefaultThreshold,
		ResolvedReviewIDs: []string{},
		Customization:     DefaultCustomization(),
	}
	if err := r.Create(ctx, newBusiness); err != nil {
		return nil, err
	}
	return newBusiness, nil
}

// DefaultCustomization is what the guest form shows before a business brands it.
func DefaultCustomization() models.FormCustomization {
	return models.FormCustomization{
		BusinessName:     "Sample Business",
		PrimaryColor:     "#1A3673",
		AccentColor:      "#2563eb",
		HeaderText:       "How was your experience?",
		RatingPrompt:     "Rate your experience",
		FeedbackPrompt:   "Tell us more about your experience (optional)",
		SubmitButtonText: "Submit Review",
	}
}

func (r *BusinessRepo) UpdateProfile(ctx context.Context, id bson.ObjectID, profile models.BusinessProfile) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"name":         profile.Name,
			"address":      profile.Address,
			"phone_number": profile.PhoneNumber,
			"website_url":  profile.WebsiteURL,
			"email":        profile.Email,
			"updated_at":   time.Now(),
		},
	})
	return err
}

func (r *BusinessRepo) UpdateCustomization(ctx context.Context, id bson.ObjectID, c models.FormCustomization) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"customization": c,
			"updated_at":    time.Now(),
		},
	})
	return err
}

// SaveRewards replaces the complete reward list, matching how the portal
// edits rewards as a whole.
func (r *BusinessRepo) SaveRewards(ctx context.Context, id bson.ObjectID, rewards []models.Reward) error {
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"rewards":    rewards,
			"updated_at": time.Now(),
		},
	})
	return err
}

// SetThreshold persists the flagging threshold. Part of triage.ConfigStore.
func (r *BusinessRepo) SetThreshold(ctx context.Context, businessID string, threshold int) error {
	id, err := bson.ObjectIDFromHex(businessID)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{
			"flagging_threshold": threshold,
			"updated_at":         time.Now(),
		},
	})
	return err
}

// AddResolvedReview adds a review id to the resolved set. $addToSet keeps the
// operation idempotent. Part of triage.ConfigStore.
func (r *BusinessRepo) AddResolvedReview(ctx context.Context, businessID, reviewID string) error {
	id, err := bson.ObjectIDFromHex(businessID)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$addToSet": bson.M{"resolved_review_ids": reviewID},
	})
	return err
}

// RemoveResolvedReview takes a review id back out of the resolved set; the
// feedback record itself is never touched. Part of triage.ConfigStore.
func (r *BusinessRepo) RemoveResolvedReview(ctx context.Context, businessID, reviewID string) error {
	id, err := bson.ObjectIDFromHex(businessID)
	if err != nil {
		return err
	}
	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"resolved_review_ids": reviewID},
	})
	return err
}

// EnsureIndexes creates necessary indexes for the businesses collection
func (r *BusinessRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "owner_email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
