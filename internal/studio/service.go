// Package studio ties narrative and visual generation, image compositing,
// history and sharing together and serves them over HTTP.
package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/walljourney/mindset/internal/ai"
	"github.com/walljourney/mindset/internal/compositor"
	"github.com/walljourney/mindset/internal/discord"
	"github.com/walljourney/mindset/internal/logger"
	"github.com/walljourney/mindset/internal/store"
)

var (
	// ErrSharingDisabled is returned by Share when no Discord channel is configured.
	ErrSharingDisabled = errors.New("sharing is not configured")

	// ErrInvalidInput is returned for requests missing a required field.
	ErrInvalidInput = errors.New("invalid input")
)

// Generator produces copy and visuals for a quote.
type Generator interface {
	GenerateNarrative(ctx context.Context, quote string, mood ai.Mood) (*ai.GeneratedContent, error)
	GenerateVisual(ctx context.Context, takeaway string, mood ai.Mood) (string, error)
}

// Composer renders overlay text onto a source image.
type Composer interface {
	Compose(ctx context.Context, source, text string) (*compositor.Result, error)
}

// HistoryStore persists past generations.
type HistoryStore interface {
	SaveHistory(ctx context.Context, item store.HistoryItem) error
	AttachImage(ctx context.Context, id, imageURL string) error
	ListHistory(ctx context.Context, limit int) ([]store.HistoryItem, error)
	TrimHistory(ctx context.Context, keep int) (int, error)
}

// Sharer posts a finished story somewhere public.
type Sharer interface {
	ShareStory(ctx context.Context, channelID, caption string, post discord.Story) (string, error)
}

type Service struct {
	gen       Generator
	composer  Composer
	history   HistoryStore
	sharer    Sharer
	channelID string
	now       func() time.Time
	newID     func() string
}

type Option func(*Service)

// WithSharer enables Share, posting to channelID.
func WithSharer(s Sharer, channelID string) Option {
	return func(svc *Service) {
		svc.sharer = s
		svc.channelID = channelID
	}
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func WithIDFunc(newID func() string) Option {
	return func(svc *Service) { svc.newID = newID }
}

func NewService(gen Generator, composer Composer, history HistoryStore, opts ...Option) *Service {
	svc := &Service{
		gen:      gen,
		composer: composer,
		history:  history,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SharingEnabled reports whether Share can post anywhere.
func (s *Service) SharingEnabled() bool {
	return s.sharer != nil && s.channelID != ""
}

// NarrativeResult is a generation plus its history id and ready-to-copy text.
type NarrativeResult struct {
	*ai.GeneratedContent
	HistoryID  string `json:"historyId"`
	Mood       string `json:"mood"`
	CopyText   string `json:"copyText"`
	ScriptText string `json:"scriptText"`
}

// Narrative generates copy for quote and records it in history. A history
// failure is logged, not returned.
func (s *Service) Narrative(ctx context.Context, quote, mood string) (*NarrativeResult, error) {
	m := ai.ParseMood(mood)
	content, err := s.gen.GenerateNarrative(ctx, quote, m)
	if err != nil {
		return nil, fmt.Errorf("generate narrative: %w", err)
	}

	item := store.HistoryItem{
		ID:            s.newID(),
		OriginalQuote: strings.TrimSpace(quote),
		Mood:          string(m),
		Narrative:     content.Narrative,
		Hashtags:      content.Hashtags,
		KeyTakeaway:   content.KeyTakeaway,
		VideoScript:   toSegments(content.VideoScript),
		Timestamp:     s.now().UnixMilli(),
	}
	if err := s.history.SaveHistory(ctx, item); err != nil {
		logger.Warn(ctx, "Failed to save history", "history_id", item.ID, "error", err)
	}

	logger.Info(ctx, "Narrative generated", "history_id", item.ID, "mood", m, "segments", len(content.VideoScript))
	return &NarrativeResult{
		GeneratedContent: content,
		HistoryID:        item.ID,
		Mood:             string(m),
		CopyText:         CaptionText(content.KeyTakeaway, content.Narrative, content.Hashtags),
		ScriptText:       ScriptText(content.VideoScript),
	}, nil
}

// Visual generates the story image for takeaway. When historyID is set the
// image is attached to that history item on a best-effort basis.
func (s *Service) Visual(ctx context.Context, takeaway, mood, historyID string) (string, error) {
	if strings.TrimSpace(takeaway) == "" {
		return "", fmt.Errorf("%w: takeaway is required", ErrInvalidInput)
	}

	imageURL, err := s.gen.GenerateVisual(ctx, takeaway, ai.ParseMood(mood))
	if err != nil {
		return "", fmt.Errorf("generate visual: %w", err)
	}

	if historyID != "" {
		if err := s.history.AttachImage(ctx, historyID, imageURL); err != nil {
			logger.Warn(ctx, "Failed to attach image to history", "history_id", historyID, "error", err)
		}
	}
	return imageURL, nil
}

// Compose overlays text on the image at imageURL.
func (s *Service) Compose(ctx context.Context, imageURL, text string) (*compositor.Result, error) {
	res, err := s.composer.Compose(ctx, imageURL, text)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Image composed", "filename", res.Filename, "width", res.Width, "height", res.Height, "lines", len(res.Lines))
	return res, nil
}

// History returns up to limit past generations, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]store.HistoryItem, error) {
	items, err := s.history.ListHistory(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	if items == nil {
		items = []store.HistoryItem{}
	}
	return items, nil
}

// TrimHistory keeps only the keep newest history items.
func (s *Service) TrimHistory(ctx context.Context, keep int) (int, error) {
	removed, err := s.history.TrimHistory(ctx, keep)
	if err != nil {
		return removed, fmt.Errorf("trim history: %w", err)
	}
	logger.Info(ctx, "History trimmed", "removed", removed, "keep", keep)
	return removed, nil
}

// ShareRequest is what Share needs to build and post a story.
type ShareRequest struct {
	ImageURL    string   `json:"imageUrl"`
	KeyTakeaway string   `json:"keyTakeaway"`
	Narrative   string   `json:"narrative"`
	Hashtags    []string `json:"hashtags"`
	Mood        string   `json:"mood"`
}

// ShareResult identifies the posted message and the attached file.
type ShareResult struct {
	MessageID string `json:"messageId"`
	Filename  string `json:"filename"`
}

// Share composes the takeaway onto the image and posts it with its caption.
func (s *Service) Share(ctx context.Context, req ShareRequest) (*ShareResult, error) {
	if !s.SharingEnabled() {
		return nil, ErrSharingDisabled
	}
	if strings.TrimSpace(req.KeyTakeaway) == "" {
		return nil, fmt.Errorf("%w: keyTakeaway is required", ErrInvalidInput)
	}

	res, err := s.Compose(ctx, req.ImageURL, req.KeyTakeaway)
	if err != nil {
		return nil, err
	}

	caption := CaptionText(req.KeyTakeaway, req.Narrative, req.Hashtags)
	msgID, err := s.sharer.ShareStory(ctx, s.channelID, caption, discord.Story{
		KeyTakeaway: req.KeyTakeaway,
		Narrative:   req.Narrative,
		Hashtags:    req.Hashtags,
		Mood:        string(ai.ParseMood(req.Mood)),
		Image:       res.PNG,
		Filename:    res.Filename,
	})
	if err != nil {
		return nil, fmt.Errorf("share story: %w", err)
	}

	logger.Info(ctx, "Story shared", "message_id", msgID, "filename", res.Filename)
	return &ShareResult{MessageID: msgID, Filename: res.Filename}, nil
}

func toSegments(script []ai.ScriptSegment) []store.Segment {
	out := make([]store.Segment, len(script))
	for i, seg := range script {
		out[i] = store.Segment{Part: seg.Part, Visual: seg.Visual, Audio: seg.Audio}
	}
	return out
}
