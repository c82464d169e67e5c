package vocabulary

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cablesync/internal/constants"
	pkgerrors "cablesync/pkg/errors"
)

type Repository interface {
	Get(ctx context.Context, scopeID string) (*Override, error)
	Put(ctx context.Context, override *Override) error
	Delete(ctx context.Context, scopeID string) error
}

type MongoDBRepository struct {
	collection *mongo.Collection
}

func NewRepository(db *mongo.Database) Repository {
	return &MongoDBRepository{
		collection: db.Collection(constants.VocabularyCollection),
	}
}

func (r *MongoDBRepository) Get(ctx context.Context, scopeID string) (*Override, error) {
	var override Override
	err := r.collection.FindOne(ctx, bson.M{"_id": scopeID}).Decode(&override)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("scope %s has no vocabulary override", scopeID))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find vocabulary: %w", err)
	}
	return &override, nil
}

func (r *MongoDBRepository) Put(ctx context.Context, override *Override) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := r.collection.ReplaceOne(ctx, bson.M{"_id": override.ScopeID}, override, opts); err != nil {
		return fmt.Errorf("failed to store vocabulary: %w", err)
	}
	return nil
}

func (r *MongoDBRepository) Delete(ctx context.Context, scopeID string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": scopeID})
	if err != nil {
		return fmt.Errorf("failed to delete vocabulary: %w", err)
	}
	if res.DeletedCount == 0 {
		return pkgerrors.ErrNotFound.WithDetail("message", fmt.Sprintf("scope %s has no vocabulary override", scopeID))
	}
	return nil
}
