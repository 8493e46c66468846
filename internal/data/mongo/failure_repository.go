package mongo

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/reseller-settlement/internal/domain/ledger"
)

// FailureCollectionName holds rejected asynchronous sale requests
const FailureCollectionName = "settlement_failures"

type failureDocument struct {
	RequestID       string    `bson:"request_id"`
	PayerID         string    `bson:"payer_id,omitempty"`
	ExternalOrderID string    `bson:"external_order_id,omitempty"`
	ProductRef      string    `bson:"product_ref"`
	Reason          string    `bson:"reason"`
	Detail          string    `bson:"detail"`
	CorrelationID   string    `bson:"correlation_id,omitempty"`
	CreatedAt       time.Time `bson:"created_at"`
}

// FailureRepository implements ledger.FailureRepository for MongoDB
type FailureRepository struct {
	db     *mongo.Database
	logger *slog.Logger
}

func NewFailureRepository(logger *slog.Logger, db *mongo.Database) ledger.FailureRepository {
	return &FailureRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores the failure. A redelivered request that was already recorded is not an error.
func (r *FailureRepository) Create(ctx context.Context, failure *ledger.Failure) error {
	collection := r.db.Collection(FailureCollectionName)

	doc := failureDocument{
		RequestID:       failure.RequestID.String(),
		ExternalOrderID: failure.ExternalOrderID,
		ProductRef:      failure.ProductRef,
		Reason:          string(failure.Reason),
		Detail:          failure.Detail,
		CorrelationID:   failure.CorrelationID,
		CreatedAt:       failure.CreatedAt,
	}
	if failure.PayerID != nil {
		doc.PayerID = failure.PayerID.String()
	}

	if _, err := collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			r.logger.Info("Failure already recorded", "request_id", doc.RequestID)
			return nil
		}
		r.logger.Error("Failed to record settlement failure",
			"request_id", doc.RequestID,
			"reason", doc.Reason,
			"error", err)
		return fmt.Errorf("failed to record settlement failure: %w", err)
	}

	return nil
}
