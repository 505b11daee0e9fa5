package store

import (
	"errors"
	"sort"
)

// ErrNotFound is returned when a history item does not exist.
var ErrNotFound = errors.New("history item not found")

// Segment is one part of a stored video script.
type Segment struct {
	Part   string `firestore:"part" json:"part"`
	Visual string `firestore:"visual" json:"visual"`
	Audio  string `firestore:"audio" json:"audio"`
}

// HistoryItem is one generation: the quote the user typed and what came back.
type HistoryItem struct {
	ID            string    `firestore:"-" json:"id"`
	OriginalQuote string    `firestore:"original_quote" json:"originalQuote"`
	Mood          string    `firestore:"mood" json:"mood"`
	Narrative     string    `firestore:"narrative" json:"narrative"`
	Hashtags      []string  `firestore:"hashtags" json:"hashtags"`
	KeyTakeaway   string    `firestore:"key_takeaway" json:"keyTakeaway"`
	VideoScript   []Segment `firestore:"video_script" json:"videoScript"`
	ImageURL      string    `firestore:"image_url,omitempty" json:"imageUrl,omitempty"`
	Timestamp     int64     `firestore:"timestamp" json:"timestamp"` // unix millis
}

// newestFirst sorts items by descending timestamp, breaking ties by ID so the
// order is stable.
func newestFirst(items []HistoryItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Timestamp != items[j].Timestamp {
			return items[i].Timestamp > items[j].Timestamp
		}
		return items[i].ID > items[j].ID
	})
}
