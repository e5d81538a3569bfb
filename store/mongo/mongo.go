// Package mongo backs the memory store with a MongoDB collection.
package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"taskpilot/store"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const recordCollection = "memory_records"

// Store implements store.Store on a MongoDB collection. Each record is one
// document keyed by (collection, user_id, key); Put upserts, so a record id
// holds exactly one document.
type Store struct {
	client  *mongo.Client
	records *mongo.Collection
}

// New connects to MongoDB and prepares the record collection.
func New(ctx context.Context, uri, dbName string) (*Store, error) {
	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping MongoDB: %w", err)
	}

	s := &Store{
		client:  client,
		records: client.Database(dbName).Collection(recordCollection),
	}
	if err := s.ensureIndexes(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.records.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "collection", Value: 1},
			{Key: "user_id", Value: 1},
			{Key: "key", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create record index: %w", err)
	}
	return nil
}

type recordDoc struct {
	Collection string    `bson:"collection"`
	UserID     string    `bson:"user_id"`
	Key        string    `bson:"key"`
	Value      string    `bson:"value"`
	CreatedAt  time.Time `bson:"created_at"`
	UpdatedAt  time.Time `bson:"updated_at"`
}

func namespaceFilter(ns store.Namespace) bson.M {
	return bson.M{
		"collection": string(ns.Collection),
		"user_id":    ns.UserID,
	}
}

// Search returns the namespace's records ordered by creation time.
func (s *Store) Search(ctx context.Context, ns store.Namespace) ([]store.Item, error) {
	cursor, err := s.records.Find(ctx, namespaceFilter(ns),
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer cursor.Close(ctx)

	var items []store.Item
	for cursor.Next(ctx) {
		var doc recordDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		items = append(items, store.Item{Key: doc.Key, Value: json.RawMessage(doc.Value)})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return items, nil
}

// Get retrieves a single record by key.
func (s *Store) Get(ctx context.Context, ns store.Namespace, key string) (json.RawMessage, bool, error) {
	filter := namespaceFilter(ns)
	filter["key"] = key

	var doc recordDoc
	err := s.records.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("find record: %w", err)
	}
	return json.RawMessage(doc.Value), true, nil
}

// Put creates or replaces a record. The original creation time survives
// replacement so Search ordering stays stable.
func (s *Store) Put(ctx context.Context, ns store.Namespace, key string, value json.RawMessage) error {
	filter := namespaceFilter(ns)
	filter["key"] = key

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"value":      string(value),
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"collection": string(ns.Collection),
			"user_id":    ns.UserID,
			"key":        key,
			"created_at": now,
		},
	}
	_, err := s.records.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
