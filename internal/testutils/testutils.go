package testutils

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"

	"github.com/stretchr/testify/mock"
	"github.com/walljourney/mindset/internal/ai"
	"github.com/walljourney/mindset/internal/compositor"
	"github.com/walljourney/mindset/internal/discord"
	"github.com/walljourney/mindset/internal/store"
)

// LoadFixture loads a JSON file from the test/fixtures directory relative to the project root.
func LoadFixture(filename string, v interface{}) error {
	_, b, _, _ := runtime.Caller(0)
	// runtime.Caller(0) will give the path to this file: internal/testutils/testutils.go
	// So we go up 2 levels to reach the root.
	basepath := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	path := filepath.Join(basepath, "test", "fixtures", filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// MockGenerator implements the Gemini generator using testify/mock
type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) GenerateNarrative(ctx context.Context, quote string, mood ai.Mood) (*ai.GeneratedContent, error) {
	args := m.Called(ctx, quote, mood)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ai.GeneratedContent), args.Error(1)
}

func (m *MockGenerator) GenerateVisual(ctx context.Context, takeaway string, mood ai.Mood) (string, error) {
	args := m.Called(ctx, takeaway, mood)
	return args.String(0), args.Error(1)
}

// MockComposer implements the image compositor using testify/mock
type MockComposer struct {
	mock.Mock
}

func (m *MockComposer) Compose(ctx context.Context, source, text string) (*compositor.Result, error) {
	args := m.Called(ctx, source, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*compositor.Result), args.Error(1)
}

// MockHistory implements the history store using testify/mock
type MockHistory struct {
	mock.Mock
}

func (m *MockHistory) SaveHistory(ctx context.Context, item store.HistoryItem) error {
	return m.Called(ctx, item).Error(0)
}

func (m *MockHistory) AttachImage(ctx context.Context, id, imageURL string) error {
	return m.Called(ctx, id, imageURL).Error(0)
}

func (m *MockHistory) ListHistory(ctx context.Context, limit int) ([]store.HistoryItem, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.HistoryItem), args.Error(1)
}

func (m *MockHistory) TrimHistory(ctx context.Context, keep int) (int, error) {
	args := m.Called(ctx, keep)
	return args.Int(0), args.Error(1)
}

func (m *MockHistory) Close() error {
	return m.Called().Error(0)
}

// MockSharer implements the Discord share client using testify/mock
type MockSharer struct {
	mock.Mock
}

func (m *MockSharer) ShareStory(ctx context.Context, channelID, caption string, post discord.Story) (string, error) {
	args := m.Called(ctx, channelID, caption, post)
	return args.String(0), args.Error(1)
}
