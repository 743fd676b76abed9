package remote

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func items() []fragment.Unclassified {
	return []fragment.Unclassified{
		fragment.NewUnclassified(fragment.Fragment{ID: fragment.Text(0, 0), Source: fragment.SourceText, Text: "Strategi 2025"}),
		fragment.NewUnclassified(fragment.Fragment{ID: fragment.Text(0, 3), Source: fragment.SourceText, Text: "Driver: Erik Svensson"}),
		fragment.NewUnclassified(fragment.Fragment{ID: fragment.Group(1, 1, 0), Source: fragment.SourceGroup, Text: "Punkt ett\rPunkt två"}),
	}
}

func TestClassifySuccess(t *testing.T) {
	var got llm.ClassifyRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"classifications":[
			{"id":0,"category":"title"},
			{"id":1,"category":"label_value","label":"Driver"},
			{"id":2,"category":"body"},
			{"id":9,"category":"name"}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, APIKey: "secret"}, quietLogger())
	out, err := c.Classify(context.Background(), items())
	require.NoError(t, err)

	require.Len(t, got.Shapes, 3)
	assert.Nil(t, got.Shapes[0].Paragraphs)
	require.NotNil(t, got.Shapes[0].Text)
	assert.Equal(t, "Strategi 2025", *got.Shapes[0].Text)
	assert.Nil(t, got.Shapes[2].Text)
	assert.Equal(t, []string{"Punkt ett", "Punkt två"}, got.Shapes[2].Paragraphs)

	assert.Equal(t, []fragment.Classification{
		{ID: fragment.Text(0, 0), Category: constants.Title},
		{ID: fragment.Text(0, 3), Category: constants.LabelValue, Label: "Driver"},
		{ID: fragment.Group(1, 1, 0), Category: constants.Body},
	}, out)
}

func TestClassifyEmptyMakesNoCall(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	out, err := NewClient(Config{URL: srv.URL}, quietLogger()).Classify(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
	assert.Zero(t, calls.Load())
}

func TestClassifyFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}},
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"empty body", func(w http.ResponseWriter, r *http.Request) {}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>gateway</html>"))
		}},
		{"wrong envelope", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"results":[]}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			out, err := NewClient(Config{URL: srv.URL}, quietLogger()).Classify(context.Background(), items())
			assert.ErrorIs(t, err, llm.ErrClassificationUnavailable)
			assert.Nil(t, out)
		})
	}
}

func TestClassifyTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(Config{URL: srv.URL, Timeout: 50 * time.Millisecond}, quietLogger())
	_, err := c.Classify(context.Background(), items())
	assert.ErrorIs(t, err, llm.ErrClassificationUnavailable)
}

func TestClassifyUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(Config{URL: url}, quietLogger()).Classify(context.Background(), items())
	assert.ErrorIs(t, err, llm.ErrClassificationUnavailable)
}
