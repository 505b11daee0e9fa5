package ai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	DefaultTextModel  = "gemini-3-flash-preview"
	DefaultImageModel = "gemini-2.5-flash-image"

	maxAttempts = 2
)

var (
	// ErrEmptyQuote is returned when there is nothing to write about.
	ErrEmptyQuote = errors.New("quote is empty")

	// ErrNoImage is returned when the image model answered without an image part.
	ErrNoImage = errors.New("model returned no image")
)

// generativeModel is the subset of *genai.GenerativeModel we use, so tests can fake it.
type generativeModel interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client wraps the Gemini text and image models.
type Client struct {
	client     *genai.Client
	textModel  generativeModel
	imageModel generativeModel
	retryDelay time.Duration
}

// ScriptSegment is one labeled part of the short video script.
type ScriptSegment struct {
	Part   string `json:"part"`
	Visual string `json:"visual"`
	Audio  string `json:"audio"`
}

// GeneratedContent is the structured response we want from Gemini for a quote.
type GeneratedContent struct {
	Narrative   string          `json:"narrative"`
	Hashtags    []string        `json:"hashtags"`
	KeyTakeaway string          `json:"keyTakeaway"`
	VideoScript []ScriptSegment `json:"videoScript"`
	ImageURL    string          `json:"imageUrl,omitempty"`
}

// NewClient initializes the Gemini client. Empty model names fall back to the defaults.
func NewClient(ctx context.Context, apiKey, textModelName, imageModelName string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if textModelName == "" {
		textModelName = DefaultTextModel
	}
	if imageModelName == "" {
		imageModelName = DefaultImageModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	text := client.GenerativeModel(textModelName)
	text.ResponseMIMEType = "application/json" // Force structured JSON output
	text.ResponseSchema = narrativeSchema

	// The image model only honours the aspect ratio through the prompt here.
	image := client.GenerativeModel(imageModelName)

	return &Client{
		client:     client,
		textModel:  text,
		imageModel: image,
		retryDelay: time.Second,
	}, nil
}

// Close closes the underlying client connection.
func (c *Client) Close() {
	if c.client != nil {
		c.client.Close()
	}
}

var narrativeSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"narrative": {
			Type:        genai.TypeString,
			Description: "The full caption/narrative for the post.",
		},
		"hashtags": {
			Type:        genai.TypeArray,
			Items:       &genai.Schema{Type: genai.TypeString},
			Description: "List of hashtags including the # symbol.",
		},
		"keyTakeaway": {
			Type:        genai.TypeString,
			Description: "A short, punchy summary of the lesson.",
		},
		"videoScript": {
			Type:        genai.TypeArray,
			Description: "Exactly 3 segments of a short vertical video script: Hook, Body, CTA.",
			Items: &genai.Schema{
				Type: genai.TypeObject,
				Properties: map[string]*genai.Schema{
					"part":   {Type: genai.TypeString, Description: "Segment label."},
					"visual": {Type: genai.TypeString, Description: "Visual direction for the scene."},
					"audio":  {Type: genai.TypeString, Description: "Voice-over line."},
				},
				Required: []string{"part", "visual", "audio"},
			},
		},
	},
	Required: []string{"narrative", "hashtags", "keyTakeaway", "videoScript"},
}

// GenerateNarrative turns a quote into a caption, hashtags, a key takeaway and a video script.
func (c *Client) GenerateNarrative(ctx context.Context, quote string, mood Mood) (*GeneratedContent, error) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return nil, ErrEmptyQuote
	}

	resp, err := c.generate(ctx, c.textModel, genai.Text(NarrativePrompt(quote, mood)))
	if err != nil {
		return nil, err
	}

	var content GeneratedContent
	if err := parseJSONResponse(resp, &content); err != nil {
		return nil, err
	}
	if content.Narrative == "" || content.KeyTakeaway == "" {
		return nil, errors.New("model response is missing narrative or keyTakeaway")
	}
	return &content, nil
}

// GenerateVisual asks the image model for a 9:16 story illustration of the takeaway and
// returns it as a data URI.
func (c *Client) GenerateVisual(ctx context.Context, takeaway string, mood Mood) (string, error) {
	resp, err := c.generate(ctx, c.imageModel, genai.Text(VisualPrompt(takeaway, mood)))
	if err != nil {
		return "", err
	}
	return imageDataURI(resp)
}

// generate calls model, retrying once after a transient failure.
func (c *Client) generate(ctx context.Context, model generativeModel, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("gemini generation failed: %w", ctx.Err())
			case <-time.After(c.retryDelay):
			}
		}

		resp, err := model.GenerateContent(ctx, parts...)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("gemini generation failed: %w", lastErr)
}

func responseParts(resp *genai.GenerateContentResponse) ([]genai.Part, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from model")
	}
	return resp.Candidates[0].Content.Parts, nil
}

// parseJSONResponse joins the text parts, strips any markdown fence the model
// wrapped around the JSON despite the MIME type, and unmarshals it.
func parseJSONResponse(resp *genai.GenerateContentResponse, v any) error {
	parts, err := responseParts(resp)
	if err != nil {
		return err
	}

	var sb strings.Builder
	for _, part := range parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	str := stripCodeFence(sb.String())
	if str == "" {
		return fmt.Errorf("expected text part, got %T", parts[0])
	}

	if err := json.Unmarshal([]byte(str), v); err != nil {
		return fmt.Errorf("JSON parse error: %w", err)
	}
	return nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// imageDataURI returns the first inline image of resp as a data URI.
func imageDataURI(resp *genai.GenerateContentResponse) (string, error) {
	parts, err := responseParts(resp)
	if err != nil {
		return "", err
	}

	for _, part := range parts {
		var blob genai.Blob
		switch p := part.(type) {
		case genai.Blob:
			blob = p
		case *genai.Blob:
			blob = *p
		default:
			continue
		}
		if len(blob.Data) == 0 || !strings.HasPrefix(blob.MIMEType, "image/") {
			continue
		}
		return "data:" + blob.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(blob.Data), nil
	}
	return "", ErrNoImage
}
