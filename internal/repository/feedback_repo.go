package repository

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"qrfeedback-backend/internal/database"
	"qrfeedback-backend/internal/models"
)

type FeedbackRepo struct {
	collection *mongo.Collection
}

func NewFeedbackRepo() *FeedbackRepo {
	return &FeedbackRepo{
		collection: database.GetCollection("feedback"),
	}
}

func (r *FeedbackRepo) Create(ctx context.Context, feedback *models.Feedback) error {
	feedback.CreatedAt = time.Now().UTC()
	result, err := r.collection.InsertOne(ctx, feedback)
	if err != nil {
		return err
	}
	feedback.ID = result.InsertedID.(bson.ObjectID)
	return nil
}

// FindByIdempotencyKey checks if feedback with this key already exists (duplicate prevention)
func (r *FeedbackRepo) FindByIdempotencyKey(ctx context.Context, key string) (*models.Feedback, error) {
	var feedback models.Feedback
	err := r.collection.FindOne(ctx, bson.M{"idempotency_key": key}).Decode(&feedback)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &feedback, nil
}

// FindByBusiness returns the full snapshot for one business, newest first.
func (r *FeedbackRepo) FindByBusiness(ctx context.Context, businessID bson.ObjectID) ([]models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"business_id": businessID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.Feedback{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// Subscribe opens a change stream scoped to one business and delivers the
// full current snapshot on every matching change: once immediately, then
// again whenever a record lands. There is no delta logic; consumers recompute
// everything from each snapshot. The returned stop function tears the stream
// down and is the only cancellation handle.
//
// Implements triage.Source.
func (r *FeedbackRepo) Subscribe(ctx context.Context, businessID string, onSnapshot func([]models.Feedback)) (func(), error) {
	oid, err := bson.ObjectIDFromHex(businessID)
	if err != nil {
		return nil, err
	}

	streamCtx, cancel := context.WithCancel(ctx)

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "fullDocument.business_id", Value: oid}}}},
	}
	stream, err := r.collection.Watch(streamCtx, pipeline)
	if err != nil {
		cancel()
		return nil, err
	}

	// Initial snapshot before any change arrives.
	records, err := r.FindByBusiness(streamCtx, oid)
	if err != nil {
		cancel()
		stream.Close(context.Background())
		return nil, err
	}
	onSnapshot(records)

	go func() {
		defer stream.Close(context.Background())
		for stream.Next(streamCtx) {
			records, err := r.FindByBusiness(streamCtx, oid)
			if err != nil {
				log.Warn().Err(err).Str("business_id", businessID).Msg("snapshot refetch failed, skipping update")
				continue
			}
			onSnapshot(records)
		}
		if err := stream.Err(); err != nil && streamCtx.Err() == nil {
			log.Error().Err(err).Str("business_id", businessID).Msg("feedback change stream terminated")
		}
	}()

	return cancel, nil
}

// EnsureIndexes creates necessary indexes for the feedback collection
func (r *FeedbackRepo) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "business_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys:    bson.D{{Key: "idempotency_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	}
	_, err := r.collection.Indexes().CreateMany(ctx, indexes)
	return err
}
