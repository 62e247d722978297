// Package audit keeps an append-only record of every payment gateway delivery
// (callbacks and live status answers) in MongoDB, independent of whether the
// delivery was accepted.
package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	SourceCallback    = "callback"
	SourceStatusQuery = "status_query"
)

type Entry struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	TxnID      string             `bson:"txnid" json:"txnId"`
	Source     string             `bson:"source" json:"source"`
	Verified   bool               `bson:"verified" json:"verified"`
	Status     string             `bson:"status" json:"status"`
	Result     string             `bson:"result" json:"result"`
	RemoteIP   string             `bson:"remote_ip,omitempty" json:"remoteIp,omitempty"`
	Payload    map[string]string  `bson:"payload" json:"payload"`
	ReceivedAt time.Time          `bson:"received_at" json:"receivedAt"`
}

type Recorder interface {
	Record(ctx context.Context, entry Entry) error
	ListByTxn(ctx context.Context, txnID string, limit int64) ([]Entry, error)
}

type MongoStore struct {
	Client *mongo.Client
	Coll   *mongo.Collection
}

func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect audit store: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping audit store: %w", err)
	}

	coll := client.Database(dbName).Collection("payment_callbacks")
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "txnid", Value: 1}, {Key: "received_at", Value: -1}},
	})
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("index audit store: %w", err)
	}

	return &MongoStore{Client: client, Coll: coll}, nil
}

func (s *MongoStore) Record(ctx context.Context, entry Entry) error {
	if entry.ReceivedAt.IsZero() {
		entry.ReceivedAt = time.Now().UTC()
	}
	if _, err := s.Coll.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("record callback %s: %w", entry.TxnID, err)
	}
	return nil
}

// ListByTxn returns the deliveries for txnID, newest first.
func (s *MongoStore) ListByTxn(ctx context.Context, txnID string, limit int64) ([]Entry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}

	cursor, err := s.Coll.Find(ctx, bson.M{"txnid": txnID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find callbacks %s: %w", txnID, err)
	}
	defer cursor.Close(ctx)

	entries := []Entry{}
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("decode callbacks %s: %w", txnID, err)
	}
	return entries, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// Nop discards entries. Used when no MongoDB is configured.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }

func (Nop) ListByTxn(context.Context, string, int64) ([]Entry, error) { return []Entry{}, nil }
