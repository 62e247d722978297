package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func TestRecord(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inserts entry", func(mt *mtest.T) {
		store := &MongoStore{Client: mt.Client, Coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		err := store.Record(context.Background(), Entry{
			TxnID:    "txn1",
			Source:   SourceCallback,
			Verified: true,
			Status:   "success",
			Result:   "applied",
			Payload:  map[string]string{"txnid": "txn1"},
		})
		require.NoError(t, err)
	})

	mt.Run("surfaces write errors", func(mt *mtest.T) {
		store := &MongoStore{Client: mt.Client, Coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "duplicate key error",
		}))

		err := store.Record(context.Background(), Entry{TxnID: "txn1"})
		assert.Error(t, err)
	})
}

func TestListByTxn(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("decodes entries", func(mt *mtest.T) {
		store := &MongoStore{Client: mt.Client, Coll: mt.Coll}
		now := time.Now().UTC().Truncate(time.Millisecond)

		first := mtest.CreateCursorResponse(1, "test.payment_callbacks", mtest.FirstBatch,
			bson.D{
				{Key: "txnid", Value: "txn1"},
				{Key: "source", Value: SourceCallback},
				{Key: "verified", Value: true},
				{Key: "status", Value: "success"},
				{Key: "result", Value: "applied"},
				{Key: "payload", Value: bson.D{{Key: "mihpayid", Value: "4039"}}},
				{Key: "received_at", Value: now},
			},
			bson.D{
				{Key: "txnid", Value: "txn1"},
				{Key: "source", Value: SourceCallback},
				{Key: "verified", Value: false},
				{Key: "result", Value: "rejected"},
				{Key: "received_at", Value: now.Add(-time.Minute)},
			},
		)
		done := mtest.CreateCursorResponse(0, "test.payment_callbacks", mtest.NextBatch)
		mt.AddMockResponses(first, done)

		entries, err := store.ListByTxn(context.Background(), "txn1", 10)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.True(t, entries[0].Verified)
		assert.Equal(t, "4039", entries[0].Payload["mihpayid"])
		assert.Equal(t, "rejected", entries[1].Result)
	})

	mt.Run("surfaces command errors", func(mt *mtest.T) {
		store := &MongoStore{Client: mt.Client, Coll: mt.Coll}
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{
			Code:    2,
			Message: "bad query",
		}))

		_, err := store.ListByTxn(context.Background(), "txn1", 0)
		assert.Error(t, err)
	})
}

func TestNop(t *testing.T) {
	var r Recorder = Nop{}
	assert.NoError(t, r.Record(context.Background(), Entry{}))
	entries, err := r.ListByTxn(context.Background(), "x", 1)
	assert.NoError(t, err)
	assert.Empty(t, entries)
}
