package vision

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	visionapi "google.golang.org/api/vision/v1"

	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/ocrtest"
	"github.com/custodia-labs/juris/internal/core/domain"
)

type fileRequest struct {
	Requests []struct {
		InputConfig struct {
			Content  string `json:"content"`
			MimeType string `json:"mimeType"`
		} `json:"inputConfig"`
		Features []struct {
			Type string `json:"type"`
		} `json:"features"`
		ImageContext struct {
			LanguageHints []string `json:"languageHints"`
		} `json:"imageContext"`
		Pages []any `json:"pages"`
	} `json:"requests"`
}

func newAdapter(t *testing.T, handler http.HandlerFunc) *Adapter {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	svc, err := visionapi.NewService(context.Background(),
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return NewWithService(svc, []string{"fr", "en"})
}

func pageResponse(page int, text string) map[string]any {
	return map[string]any{
		"context":            map[string]any{"pageNumber": page},
		"fullTextAnnotation": map[string]any{"text": text},
	}
}

func TestAdapter_ExtractPDFInBatches(t *testing.T) {
	var batches []int
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/files:annotate", r.URL.Path)
		var req fileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 1)

		file := req.Requests[0]
		assert.Equal(t, "application/pdf", file.InputConfig.MimeType)
		assert.Equal(t, "DOCUMENT_TEXT_DETECTION", file.Features[0].Type)
		assert.Equal(t, []string{"fr", "en"}, file.ImageContext.LanguageHints)
		_, err := base64.StdEncoding.DecodeString(file.InputConfig.Content)
		assert.NoError(t, err)

		first := len(batches)*pagesPerRequest + 1
		batches = append(batches, len(file.Pages))
		responses := make([]map[string]any, 0, len(file.Pages))
		for i := range file.Pages {
			responses = append(responses, pageResponse(first+i, "page "+string(rune('A'+first+i-1))))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]any{{"responses": responses}},
		})
	})

	doc := &domain.SourceDocument{
		SourceEntry: domain.SourceEntry{MimeType: "application/pdf"},
		Content:     ocrtest.PDF("", "", "", "", "", "", ""),
	}
	pages, err := adapter.Extract(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, []int{5, 2}, batches)
	assert.Equal(t, []string{"page A", "page B", "page C", "page D", "page E", "page F", "page G"}, pages)
}

func TestAdapter_ExtractImage(t *testing.T) {
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/images:annotate", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]any{{"fullTextAnnotation": map[string]any{"text": "Procès-verbal"}}},
		})
	})

	doc := &domain.SourceDocument{
		SourceEntry: domain.SourceEntry{MimeType: "image/png"},
		Content:     []byte("png"),
	}
	pages, err := adapter.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"Procès-verbal"}, pages)
}

func TestAdapter_FallsBackToTextDetection(t *testing.T) {
	var features []string
	adapter := newAdapter(t, func(w http.ResponseWriter, r *http.Request) {
		var req fileRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		feature := req.Requests[0].Features[0].Type
		features = append(features, feature)

		if feature == "DOCUMENT_TEXT_DETECTION" {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"responses": []map[string]any{{"error": map[string]any{"code": 3, "message": "bad image"}}},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"responses": []map[string]any{{"fullTextAnnotation": map[string]any{"text": "texte"}}},
		})
	})

	doc := &domain.SourceDocument{
		SourceEntry: domain.SourceEntry{MimeType: "image/jpeg"},
		Content:     []byte("jpeg"),
	}
	pages, err := adapter.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, []string{"texte"}, pages)
	assert.Equal(t, []string{"DOCUMENT_TEXT_DETECTION", "TEXT_DETECTION"}, features)
}

func TestAdapter_ExtractErrors(t *testing.T) {
	t.Run("no text", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"responses":[{}]}`))
		})
		doc := &domain.SourceDocument{SourceEntry: domain.SourceEntry{MimeType: "image/png"}, Content: []byte("x")}
		_, err := adapter.Extract(context.Background(), doc)
		assert.ErrorIs(t, err, domain.ErrOCRFailure)
	})

	t.Run("unsupported type", func(t *testing.T) {
		adapter := newAdapter(t, func(http.ResponseWriter, *http.Request) {})
		doc := &domain.SourceDocument{SourceEntry: domain.SourceEntry{MimeType: "text/plain"}, Content: []byte("x")}
		_, err := adapter.Extract(context.Background(), doc)
		assert.ErrorIs(t, err, domain.ErrOCRFailure)
	})

	t.Run("quota", func(t *testing.T) {
		adapter := newAdapter(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend error"}}`))
		})
		doc := &domain.SourceDocument{SourceEntry: domain.SourceEntry{MimeType: "image/png"}, Content: []byte("x")}
		_, err := adapter.Extract(context.Background(), doc)
		assert.ErrorIs(t, err, domain.ErrProviderUnavailable)
		assert.True(t, domain.IsTransient(err))
	})
}
