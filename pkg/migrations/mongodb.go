package migrations

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cablesync/internal/constants"
)

const namespaceExistsCode = 48

// EnsureVocabularyCollection creates the status vocabulary collection and its indexes.
// Documents are keyed by scope id, so no unique index is needed.
func EnsureVocabularyCollection(ctx context.Context, db *mongo.Database) error {
	name := constants.VocabularyCollection

	collections, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(collections) == 0 {
		if err := db.CreateCollection(ctx, name); err != nil && !isAlreadyExists(err) {
			return fmt.Errorf("failed to create collection %s: %w", name, err)
		}
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "updated_at", Value: -1}},
			Options: options.Index().SetName("idx_status_vocabularies_updated_at"),
		},
	}

	if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil && !isAlreadyExists(err) {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	return nil
}

func isAlreadyExists(err error) bool {
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == namespaceExistsCode {
		return true
	}
	return strings.Contains(err.Error(), "already exists")
}
