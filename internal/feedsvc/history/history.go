package history

import (
	"context"
	"fmt"
	"time"

	"github.com/avvvet/tap-services/internal/comm"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const Collection = "feed_items"

// Store keeps recent feed items per owner. Documents expire through the TTL
// index on expires_at.
type Store struct {
	coll *mongo.Collection
}

func NewStore(db *mongo.Database) *Store {
	return &Store{coll: db.Collection(Collection)}
}

// EnsureIndexes adds the owner lookup index next to the TTL index.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "scanned_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create owner index: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, item comm.FeedItem) error {
	if _, err := s.coll.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert feed item: %w", err)
	}
	return nil
}

// Recent returns up to limit unexpired items of owner, newest first.
func (s *Store) Recent(ctx context.Context, ownerID string, limit int64) ([]comm.FeedItem, error) {
	filter := bson.M{
		"owner_id":   ownerID,
		"expires_at": bson.M{"$gt": time.Now()},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "scanned_at", Value: -1}}).
		SetLimit(limit)

	cur, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find feed items: %w", err)
	}
	defer cur.Close(ctx)

	items := []comm.FeedItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode feed items: %w", err)
	}
	return items, nil
}
