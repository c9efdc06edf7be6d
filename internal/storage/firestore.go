package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pauljones0/grocery-deals/internal/models"
)

const firestoreCollection = "coupon_cache"

type FirestoreCache struct {
	client *firestore.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewFirestore(ctx context.Context, projectID string, ttl time.Duration) (*FirestoreCache, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("firestore.NewClient: %w", err)
	}
	return &FirestoreCache{client: client, ttl: ttl, now: time.Now}, nil
}

func (c *FirestoreCache) Close() error {
	return c.client.Close()
}

// Get returns the cached result for key. Missing and expired documents are
// both reported as models.ErrCacheMiss.
func (c *FirestoreCache) Get(ctx context.Context, key Key) (*models.Result, error) {
	doc, err := c.client.Collection(firestoreCollection).Doc(key.ID()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, models.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get cache entry %s: %w", key, err)
	}
	if !doc.Exists() {
		return nil, models.ErrCacheMiss
	}

	var e entry
	if err := doc.DataTo(&e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if !e.live(c.now()) {
		return nil, models.ErrCacheMiss
	}
	return e.result(), nil
}

// Set overwrites the entry for key.
func (c *FirestoreCache) Set(ctx context.Context, key Key, result *models.Result) error {
	e := newEntry(key, result, c.now(), c.ttl)
	if _, err := c.client.Collection(firestoreCollection).Doc(key.ID()).Set(ctx, e); err != nil {
		return fmt.Errorf("failed to set cache entry %s: %w", key, err)
	}
	return nil
}

// TrimExpired deletes every entry whose expiry has passed.
func (c *FirestoreCache) TrimExpired(ctx context.Context) error {
	collectionRef := c.client.Collection(firestoreCollection)
	expired := collectionRef.Where("expiresAt", "<", c.now())

	countSnapshot, err := expired.NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to count expired cache entries: %w", err)
	}
	count, err := aggregationCount(countSnapshot["all"])
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	slog.Info("Trimming expired cache entries", "count", count)

	iter := expired.Documents(ctx)
	defer iter.Stop()

	bulkWriter := c.client.BulkWriter(ctx)
	defer bulkWriter.End()

	deleted := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to iterate expired cache entries: %w", err)
		}
		if _, err := bulkWriter.Delete(doc.Ref); err != nil {
			slog.Warn("Failed to queue cache entry delete", "id", doc.Ref.ID, "error", err)
			continue
		}
		deleted++
	}

	if deleted > 0 {
		bulkWriter.Flush()
		slog.Info("Flushed cache entry deletes", "count", deleted)
	}
	return nil
}

// aggregationCount reads a count aggregation result, which the client library
// returns either as an int64 or as a raw protobuf value.
func aggregationCount(v any) (int64, error) {
	switch val := v.(type) {
	case int64:
		return val, nil
	case *firestorepb.Value:
		return val.GetIntegerValue(), nil
	case nil:
		return 0, fmt.Errorf("count aggregation result was invalid: 'all' key missing")
	default:
		return 0, fmt.Errorf("count aggregation result has unexpected type %T", v)
	}
}
