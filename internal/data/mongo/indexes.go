package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the read model and failure log query by.
// Creating an existing index is a no-op in MongoDB.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(LedgerCollectionName).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "account_handle", Value: 1}, {Key: "entry_id", Value: -1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger indexes: %w", err)
	}

	_, err = db.Collection(FailureCollectionName).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "request_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create failure indexes: %w", err)
	}

	return nil
}
