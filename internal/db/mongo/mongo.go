// Package mongo keeps accounts in a MongoDB collection.
//
// Units of work are multi-document transactions, so the deployment must be a replica set.
// Locking an account bumps its lock_version inside the transaction; a concurrent
// transaction touching the same account fails with a write conflict.
package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	UsersCollection = "users"

	USERNAME_INDEX_NAME           = "users_username_idx"
	EMAIL_INDEX_NAME              = "users_email_idx"
	CONFIRMATION_TOKEN_INDEX_NAME = "users_confirmation_token_idx"
)

func Connect(ctx context.Context, url string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}
	return client, nil
}

func EnsureIndexes(ctx context.Context, collection *mongo.Collection) error {
	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetName(USERNAME_INDEX_NAME).SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName(EMAIL_INDEX_NAME).SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "confirmation_token", Value: 1}},
			Options: options.Index().
				SetName(CONFIRMATION_TOKEN_INDEX_NAME).
				SetUnique(true).
				SetPartialFilterExpression(bson.D{
					{Key: "confirmation_token", Value: bson.D{{Key: "$exists", Value: true}}},
				}),
		},
	})
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	return nil
}
