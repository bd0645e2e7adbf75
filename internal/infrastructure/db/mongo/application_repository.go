package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/patricktravel/portal/internal/core/domain"
)

const collectionApplications = "applications"

type ApplicationRepository struct {
	col *mongo.Collection
}

func NewApplicationRepository(db *mongo.Database) *ApplicationRepository {
	return &ApplicationRepository{col: db.Collection(collectionApplications)}
}

type applicationDoc struct {
	Reference      string                       `bson:"reference"`
	UserID         string                       `bson:"user_id"`
	Submission     domain.ApplicationSubmission `bson:"submission"`
	Status         string                       `bson:"status"`
	IdempotencyKey string                       `bson:"idempotency_key,omitempty"`
	SubmittedAt    time.Time                    `bson:"submitted_at"`
}

func (r *ApplicationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "reference", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "submitted_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create application indexes: %w", err)
	}
	return nil
}

// Create inserts a new application document.
func (r *ApplicationRepository) Create(ctx context.Context, app *domain.Application) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, applicationDoc{
		Reference:      app.Reference,
		UserID:         app.UserID,
		Submission:     app.ApplicationSubmission,
		Status:         string(app.Status),
		IdempotencyKey: app.IdempotencyKey,
		SubmittedAt:    app.SubmittedAt,
	})
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

// FindByReference retrieves an application by reference, filtered by owner.
func (r *ApplicationRepository) FindByReference(ctx context.Context, reference, userID string) (*domain.Application, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc applicationDoc
	err := r.col.FindOne(ctx, bson.M{"reference": reference, "user_id": userID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrApplicationNotFound
		}
		return nil, fmt.Errorf("find application: %w", err)
	}

	return &domain.Application{
		Reference:             doc.Reference,
		UserID:                doc.UserID,
		ApplicationSubmission: doc.Submission,
		Status:                domain.ApplicationStatus(doc.Status),
		IdempotencyKey:        doc.IdempotencyKey,
		SubmittedAt:           doc.SubmittedAt.UTC(),
	}, nil
}
