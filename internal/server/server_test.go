package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm/openai"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm/remote"
	"github.com/joseph-ayodele/deck-anonymizer/internal/testutil"
)

type fakeBackend struct {
	mu    sync.Mutex
	calls int
	resp  llm.ClassifyResponse
	err   error
}

func (f *fakeBackend) ClassifyBatch(_ context.Context, req llm.ClassifyRequest) (llm.ClassifyResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return llm.ClassifyResponse{}, f.err
	}
	return f.resp, nil
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var e errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	return e.Error
}

func TestHealth(t *testing.T) {
	h := New(&fakeBackend{}, Config{ServiceToken: "secret"}, testutil.DiscardLogger()).Routes()
	rec := do(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestClassify(t *testing.T) {
	backend := &fakeBackend{resp: llm.ClassifyResponse{Classifications: []llm.ResultItem{
		{ID: 0, Category: "name"},
		{ID: 1, Category: "label_value", Label: "Kund"},
	}}}
	h := New(backend, Config{}, testutil.DiscardLogger()).Routes()

	body := `{"shapes":[{"id":0,"text":"Anna Berg"},{"id":1,"paragraphs":["Kund: Volvo","Ort: Göteborg"]}]}`
	rec := do(t, h, http.MethodPost, "/v1/classify", body, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp llm.ClassifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, backend.resp, resp)
}

func TestClassifyEmptyShapes(t *testing.T) {
	backend := &fakeBackend{}
	h := New(backend, Config{}, testutil.DiscardLogger()).Routes()
	rec := do(t, h, http.MethodPost, "/v1/classify", `{"shapes":[]}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"classifications":[]}`, rec.Body.String())
	assert.Equal(t, 0, backend.calls)
}

func TestClassifyRejectsBadRequests(t *testing.T) {
	h := New(&fakeBackend{}, Config{MaxShapes: 2, MaxTextLength: 5}, testutil.DiscardLogger()).Routes()
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"shapes":`},
		{"too many shapes", `{"shapes":[{"id":0,"text":"a"},{"id":1,"text":"b"},{"id":2,"text":"c"}]}`},
		{"duplicate id", `{"shapes":[{"id":0,"text":"a"},{"id":0,"text":"b"}]}`},
		{"negative id", `{"shapes":[{"id":-1,"text":"a"}]}`},
		{"neither text nor paragraphs", `{"shapes":[{"id":0}]}`},
		{"both text and paragraphs", `{"shapes":[{"id":0,"text":"a","paragraphs":["b"]}]}`},
		{"text too long", `{"shapes":[{"id":0,"text":"abcdefgh"}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, "/v1/classify", tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, errorOf(t, rec))
		})
	}
}

func TestClassifyBackendFailure(t *testing.T) {
	h := New(&fakeBackend{err: errors.New("model down: secret detail")}, Config{}, testutil.DiscardLogger()).Routes()
	rec := do(t, h, http.MethodPost, "/v1/classify", `{"shapes":[{"id":0,"text":"x"}]}`, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "classification failed", errorOf(t, rec))
}

func TestAuth(t *testing.T) {
	h := New(&fakeBackend{}, Config{ServiceToken: "secret"}, testutil.DiscardLogger()).Routes()
	body := `{"shapes":[]}`

	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/v1/classify", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, h, http.MethodPost, "/v1/classify", body, "wrong").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/classify", body, "secret").Code)
}

func TestRateLimit(t *testing.T) {
	h := New(&fakeBackend{}, Config{RateLimitRPS: 0.001, RateLimitBurst: 1}, testutil.DiscardLogger()).Routes()
	body := `{"shapes":[]}`

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodPost, "/v1/classify", body, "").Code)
	rec := do(t, h, http.MethodPost, "/v1/classify", body, "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestNotFoundIsJSON(t *testing.T) {
	h := New(&fakeBackend{}, Config{}, testutil.DiscardLogger()).Routes()
	rec := do(t, h, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", errorOf(t, rec))
}

func TestRemoteClientThroughService(t *testing.T) {
	model := testutil.NewChatCompletionServer(`{"classifications":[{"id":0,"category":"email"},{"id":1,"category":"name"}]}`, 0)
	t.Cleanup(model.Close)

	backend := openai.NewClient(openai.Config{APIKey: "k", BaseURL: model.URL + "/v1"}, testutil.DiscardLogger())
	svc := httptest.NewServer(New(backend, Config{ServiceToken: "tok"}, testutil.DiscardLogger()).Routes())
	t.Cleanup(svc.Close)

	client := remote.NewClient(remote.Config{URL: svc.URL + "/v1/classify", APIKey: "tok"}, testutil.DiscardLogger())
	items := []fragment.Unclassified{
		fragment.NewUnclassified(fragment.Fragment{ID: fragment.Text(0, 1), Source: fragment.SourceText, Text: "kontakt oss"}),
		fragment.NewUnclassified(fragment.Fragment{ID: fragment.Group(1, 0, 2), Source: fragment.SourceGroup, Text: "Anna Berg"}),
	}
	cls, err := client.Classify(context.Background(), items)
	require.NoError(t, err)
	require.Len(t, cls, 2)
	assert.Equal(t, fragment.Text(0, 1), cls[0].ID)
	assert.Equal(t, constants.Email, cls[0].Category)
	assert.Equal(t, fragment.Group(1, 0, 2), cls[1].ID)
	assert.Equal(t, constants.Name, cls[1].Category)

	// the client's request id is adopted by the service and forwarded upstream
	headers := model.Headers()
	require.Len(t, headers, 1)
	_, err = uuid.Parse(headers[0].Get(llm.RequestIDHeader))
	assert.NoError(t, err)
}
