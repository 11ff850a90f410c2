// Package httpocr sends documents to an OCR HTTP service.
//
// The service accepts a multipart upload on /ocr/extract and answers
// with the extracted text, optionally split into chunks tagged with
// their page number.
package httpocr

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/juris/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Ensure Adapter implements the interface.
var _ driven.OCRAdapter = (*Adapter)(nil)

const (
	// Name is the adapter name.
	Name = "http"

	// DefaultTimeout bounds one extraction; OCR of long scans is slow.
	DefaultTimeout = 5 * time.Minute

	extractPath = "/ocr/extract"
	healthPath  = "/health"
)

// Adapter is an OCR HTTP service client.
type Adapter struct {
	baseURL string
	client  *httpapi.Client
}

// New creates a client for the service at baseURL.
func New(baseURL string, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &httpapi.Client{
			HTTP:     &http.Client{Timeout: timeout},
			Provider: "ocr service",
		},
	}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return Name
}

type chunk struct {
	Text string `json:"text"`
	Page int    `json:"page"`
}

type extractResponse struct {
	Success bool    `json:"success"`
	Text    string  `json:"text"`
	Pages   int     `json:"pages"`
	Chunks  []chunk `json:"chunks"`
	Error   string  `json:"error,omitempty"`
}

// Extract uploads the document and returns its pages.
func (a *Adapter) Extract(ctx context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", fileName(doc))
	if err != nil {
		return nil, fmt.Errorf("ocr service: create form file: %w", err)
	}
	if _, err := part.Write(doc.Content); err != nil {
		return nil, fmt.Errorf("ocr service: write form file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("ocr service: close form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+extractPath, &body)
	if err != nil {
		return nil, fmt.Errorf("ocr service: create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp extractResponse
	if err := a.client.Do(req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		reason := resp.Error
		if reason == "" {
			reason = "extraction failed"
		}
		return nil, &domain.OCRError{Adapter: Name, Reason: reason}
	}
	return pages(resp), nil
}

// Ping checks that the service is up.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.client.Get(ctx, a.baseURL+healthPath)
}

// pages rebuilds the page list. Chunks with a page number are grouped by
// page; otherwise the full text is split on form feeds.
func pages(resp extractResponse) []string {
	byPage := make(map[int][]string)
	maxPage := 0
	for _, c := range resp.Chunks {
		if c.Page < 1 {
			byPage = nil
			break
		}
		byPage[c.Page] = append(byPage[c.Page], c.Text)
		if c.Page > maxPage {
			maxPage = c.Page
		}
	}

	if len(byPage) == 0 {
		out := strings.Split(resp.Text, "\f")
		for len(out) < resp.Pages {
			out = append(out, "")
		}
		return out
	}

	if resp.Pages > maxPage {
		maxPage = resp.Pages
	}
	out := make([]string, maxPage)
	for n, texts := range byPage {
		out[n-1] = strings.Join(texts, "\n")
	}
	return out
}

func fileName(doc *domain.SourceDocument) string {
	if doc.Name != "" {
		return doc.Name
	}
	return "document"
}
