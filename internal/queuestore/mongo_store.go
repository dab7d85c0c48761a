package queuestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	dbName       = "eeudesk"
	collectionKV = "kv"
)

type kvDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

type Mongo struct {
	collection *mongo.Collection
}

var _ KV = (*Mongo)(nil)

func NewMongo(client *mongo.Client) *Mongo {
	return &Mongo{collection: client.Database(dbName).Collection(collectionKV)}
}

func (m *Mongo) Get(ctx context.Context, key string) ([]byte, error) {
	var doc kvDocument
	err := m.collection.FindOne(ctx, bson.D{{Key: "_id", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", key, err)
	}
	return doc.Value, nil
}

func (m *Mongo) Put(ctx context.Context, key string, value []byte) error {
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "value", Value: value},
		{Key: "updatedAt", Value: time.Now().UTC()},
	}}}

	_, err := m.collection.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: key}},
		update,
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}
