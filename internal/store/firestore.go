package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	historyCollection = "history"

	// Firestore rejects documents over 1 MiB; leave room for the other fields.
	maxInlineImageBytes = 900 << 10

	// Firestore batches are limited to 500 operations.
	maxBatchOps = 500
)

// ErrImageTooLarge is returned when an image data URI cannot fit in a document.
var ErrImageTooLarge = errors.New("image too large to store inline")

// Firestore persists history in the "history" collection.
type Firestore struct {
	client *firestore.Client
}

// NewFirestore initializes a new Firestore client using application default credentials.
func NewFirestore(ctx context.Context, projectID string) (*Firestore, error) {
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return &Firestore{client: client}, nil
}

// Close closes the Firestore client.
func (s *Firestore) Close() error {
	return s.client.Close()
}

// SaveHistory writes item under its ID.
func (s *Firestore) SaveHistory(ctx context.Context, item HistoryItem) error {
	if len(item.ImageURL) > maxInlineImageBytes {
		item.ImageURL = ""
	}
	_, err := s.client.Collection(historyCollection).Doc(item.ID).Set(ctx, item)
	return err
}

// AttachImage stores the generated image on an existing item.
func (s *Firestore) AttachImage(ctx context.Context, id, imageURL string) error {
	if len(imageURL) > maxInlineImageBytes {
		return ErrImageTooLarge
	}
	_, err := s.client.Collection(historyCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "image_url", Value: imageURL},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	return err
}

// ListHistory returns up to limit items, newest first. limit <= 0 means all.
func (s *Firestore) ListHistory(ctx context.Context, limit int) ([]HistoryItem, error) {
	q := s.client.Collection(historyCollection).OrderBy("timestamp", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var items []HistoryItem
	iter := q.Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		var item HistoryItem
		if err := doc.DataTo(&item); err != nil {
			continue // skip malformed
		}
		item.ID = doc.Ref.ID
		items = append(items, item)
	}
	return items, nil
}

// TrimHistory hard-deletes everything older than the keep most recent items.
func (s *Firestore) TrimHistory(ctx context.Context, keep int) (int, error) {
	iter := s.client.Collection(historyCollection).
		OrderBy("timestamp", firestore.Desc).
		Offset(keep).
		Documents(ctx)
	defer iter.Stop()

	removed := 0
	batch := s.client.Batch()
	pending := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return removed, fmt.Errorf("iterate history: %w", err)
		}

		batch.Delete(doc.Ref)
		pending++
		if pending == maxBatchOps {
			if _, err := batch.Commit(ctx); err != nil {
				return removed, fmt.Errorf("commit history trim: %w", err)
			}
			removed += pending
			batch = s.client.Batch()
			pending = 0
		}
	}

	if pending > 0 {
		if _, err := batch.Commit(ctx); err != nil {
			return removed, fmt.Errorf("commit history trim: %w", err)
		}
		removed += pending
	}
	return removed, nil
}
