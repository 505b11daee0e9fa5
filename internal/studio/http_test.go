package studio

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/walljourney/mindset/internal/ai"
	"github.com/walljourney/mindset/internal/compositor"
	"github.com/walljourney/mindset/internal/store"
)

func serve(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestComposeEndpoint(t *testing.T) {
	svc, m := newTestService(t, false)
	h := NewHandler(svc).Routes()

	result := &compositor.Result{PNG: []byte("\x89PNG"), Filename: "WallJourney-1700000000000.png", Width: 1, Height: 1}
	m.composer.On("Compose", mock.Anything, "data:image/png;base64,AAAA", "Cut losses").Return(result, nil)

	rec := serve(t, h, http.MethodPost, "/api/compose", `{"imageUrl":"data:image/png;base64,AAAA","overlayText":"Cut losses"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="WallJourney-1700000000000.png"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, []byte("\x89PNG"), rec.Body.Bytes())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestComposeEndpointErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		err      error
		wantCode int
	}{
		{name: "bad json", body: `{"imageUrl":`, wantCode: http.StatusBadRequest},
		{name: "decode failure", body: `{"imageUrl":"https://nope","overlayText":"x"}`, err: fmt.Errorf("%w: 404 Not Found", compositor.ErrDecode), wantCode: http.StatusUnprocessableEntity},
		{name: "encode failure", body: `{"imageUrl":"https://ok","overlayText":"x"}`, err: compositor.ErrEncode, wantCode: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestService(t, false)
			h := NewHandler(svc).Routes()
			if tt.err != nil {
				m.composer.On("Compose", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			}

			rec := serve(t, h, http.MethodPost, "/api/compose", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)
			assert.NotEmpty(t, errorBody(t, rec))
		})
	}
}

func TestNarrativeEndpoint(t *testing.T) {
	svc, m := newTestService(t, false)
	h := NewHandler(svc).Routes()
	content := fixtureContent(t)

	m.gen.On("GenerateNarrative", mock.Anything, "hold the line", ai.MoodTamparan).Return(content, nil)
	m.history.On("SaveHistory", mock.Anything, mock.Anything).Return(nil)

	rec := serve(t, h, http.MethodPost, "/api/narrative", `{"quote":"hold the line","mood":"tamparan"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, content.KeyTakeaway, got["keyTakeaway"])
	assert.Equal(t, content.Narrative, got["narrative"])
	assert.Equal(t, "hist-1", got["historyId"])
	assert.Equal(t, "tamparan", got["mood"])
	assert.Contains(t, got["copyText"], "#riskmanagement")
	assert.Contains(t, got["scriptText"], "PART: CTA")
	assert.Len(t, got["videoScript"], 3)
}

func TestNarrativeEndpointEmptyQuote(t *testing.T) {
	svc, m := newTestService(t, false)
	h := NewHandler(svc).Routes()
	m.gen.On("GenerateNarrative", mock.Anything, "", ai.MoodMentor).Return(nil, ai.ErrEmptyQuote)

	rec := serve(t, h, http.MethodPost, "/api/narrative", `{"quote":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, errorBody(t, rec), "quote is empty")
}

func TestVisualEndpoint(t *testing.T) {
	svc, m := newTestService(t, false)
	h := NewHandler(svc).Routes()
	m.gen.On("GenerateVisual", mock.Anything, "Stay calm", ai.MoodStoic).Return("data:image/png;base64,BBBB", nil)

	rec := serve(t, h, http.MethodPost, "/api/visual", `{"takeaway":"Stay calm","mood":"stoic"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var got map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "data:image/png;base64,BBBB", got["imageUrl"])

	m.gen.On("GenerateVisual", mock.Anything, "Nothing", ai.MoodMentor).Return("", ai.ErrNoImage)
	rec = serve(t, h, http.MethodPost, "/api/visual", `{"takeaway":"Nothing"}`)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = serve(t, h, http.MethodPost, "/api/visual", `{"takeaway":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistoryEndpoint(t *testing.T) {
	svc, m := newTestService(t, false)
	h := NewHandler(svc).Routes()
	items := []store.HistoryItem{{ID: "b", Timestamp: 2}, {ID: "a", Timestamp: 1}}

	m.history.On("ListHistory", mock.Anything, 50).Return(items, nil)
	m.history.On("ListHistory", mock.Anything, 200).Return(items[:1], nil)

	rec := serve(t, h, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got []store.HistoryItem
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, []string{"b", "a"}, []string{got[0].ID, got[1].ID})

	rec = serve(t, h, http.MethodGet, "/api/history?limit=5000", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/api/history?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	m.history.AssertExpectations(t)
}

func TestShareEndpoint(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewHandler(svc).Routes()

	rec := serve(t, h, http.MethodPost, "/api/share", `{"imageUrl":"x","keyTakeaway":"y"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	svc, m := newTestService(t, true)
	h = NewHandler(svc).Routes()
	m.composer.On("Compose", mock.Anything, "x", "y").Return(&compositor.Result{PNG: []byte("p"), Filename: "f.png"}, nil)
	m.sharer.On("ShareStory", mock.Anything, "chan-1", mock.Anything, mock.Anything).Return("", errors.New("discord 500"))

	rec = serve(t, h, http.MethodPost, "/api/share", `{"imageUrl":"x","keyTakeaway":"y"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRoutingAndRequestID(t *testing.T) {
	svc, _ := newTestService(t, false)
	h := NewHandler(svc).Routes()

	rec := serve(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = serve(t, h, http.MethodGet, "/api/compose", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
}
