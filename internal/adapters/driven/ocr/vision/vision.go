// Package vision runs Google Cloud Vision document text detection on
// scanned PDFs and images.
package vision

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	visionapi "google.golang.org/api/vision/v1"

	"github.com/custodia-labs/juris/internal/adapters/driven/ocr/pdftext"
	"github.com/custodia-labs/juris/internal/connectors/google"
	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/logger"
)

// Ensure Adapter implements the interface.
var _ driven.OCRAdapter = (*Adapter)(nil)

const (
	// Name is the adapter name.
	Name = "vision"

	// pagesPerRequest is the synchronous files:annotate page limit.
	pagesPerRequest = 5

	featureDocument = "DOCUMENT_TEXT_DETECTION"
	featureText     = "TEXT_DETECTION"
)

// Adapter calls the Vision API.
type Adapter struct {
	svc     *visionapi.Service
	hints   []string
	limiter *google.RateLimiter
}

// New creates a Vision adapter from Google credentials.
func New(ctx context.Context, creds google.Credentials, hints []string) (*Adapter, error) {
	opts, err := google.ClientOptions(ctx, creds, visionapi.CloudVisionScope)
	if err != nil {
		return nil, err
	}
	svc, err := google.NewVisionService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewWithService(svc, hints), nil
}

// NewWithService creates a Vision adapter around an existing service.
func NewWithService(svc *visionapi.Service, hints []string) *Adapter {
	return &Adapter{
		svc:     svc,
		hints:   hints,
		limiter: google.NewRateLimiter(google.ServiceVision),
	}
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return Name
}

// Extract returns one text per page. PDFs are sent in batches of five
// pages; other images are annotated as a single page.
func (a *Adapter) Extract(ctx context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	var (
		pages []string
		err   error
	)
	switch mimeType := strings.ToLower(doc.MimeType); {
	case mimeType == "application/pdf":
		pages, err = a.extractPDF(ctx, doc.Content)
	case mimeType == "image/tiff" || mimeType == "image/gif":
		pages, err = a.annotateFile(ctx, doc.Content, mimeType, nil)
	case strings.HasPrefix(mimeType, "image/"):
		pages, err = a.annotateImage(ctx, doc.Content)
	default:
		return nil, &domain.OCRError{Adapter: Name, Reason: "unsupported content type " + doc.MimeType}
	}
	if err != nil {
		return nil, err
	}

	for _, p := range pages {
		if strings.TrimSpace(p) != "" {
			return pages, nil
		}
	}
	return nil, &domain.OCRError{Adapter: Name, Reason: "no text detected"}
}

func (a *Adapter) extractPDF(ctx context.Context, content []byte) ([]string, error) {
	total, err := pdftext.PageCount(content)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, total)
	for first := 1; first <= total; first += pagesPerRequest {
		batch := make([]int64, 0, pagesPerRequest)
		for p := first; p < first+pagesPerRequest && p <= total; p++ {
			batch = append(batch, int64(p))
		}
		pages, err := a.annotateFile(ctx, content, "application/pdf", batch)
		if err != nil {
			return nil, err
		}
		out = append(out, pages...)
		logger.Debug("vision: annotated pages %d-%d of %d", first, batch[len(batch)-1], total)
	}
	return out, nil
}

// annotateFile annotates the given pages of a multi-page file, falling
// back to plain text detection when document detection is rejected.
func (a *Adapter) annotateFile(ctx context.Context, content []byte, mimeType string, pages []int64) ([]string, error) {
	encoded := base64.StdEncoding.EncodeToString(content)

	var last *visionapi.Status
	for _, feature := range []string{featureDocument, featureText} {
		req := &visionapi.BatchAnnotateFilesRequest{
			Requests: []*visionapi.AnnotateFileRequest{{
				InputConfig:  &visionapi.InputConfig{Content: encoded, MimeType: mimeType},
				Features:     []*visionapi.Feature{{Type: feature}},
				ImageContext: a.imageContext(),
				Pages:        pages,
			}},
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := a.svc.Files.Annotate(req).Context(ctx).Do()
		if err != nil {
			return nil, google.WrapError("vision", a.limiter.Observe(err))
		}
		if len(resp.Responses) == 0 {
			return nil, &domain.OCRError{Adapter: Name, Reason: "empty response"}
		}

		file := resp.Responses[0]
		if file.Error != nil && file.Error.Message != "" {
			last = file.Error
			continue
		}
		texts, status := pageTexts(file.Responses, pages)
		if status != nil {
			last = status
			continue
		}
		return texts, nil
	}
	return nil, statusError(last)
}

func (a *Adapter) annotateImage(ctx context.Context, content []byte) ([]string, error) {
	encoded := base64.StdEncoding.EncodeToString(content)

	var last *visionapi.Status
	for _, feature := range []string{featureDocument, featureText} {
		req := &visionapi.BatchAnnotateImagesRequest{
			Requests: []*visionapi.AnnotateImageRequest{{
				Image:        &visionapi.Image{Content: encoded},
				Features:     []*visionapi.Feature{{Type: feature}},
				ImageContext: a.imageContext(),
			}},
		}
		if err := a.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := a.svc.Images.Annotate(req).Context(ctx).Do()
		if err != nil {
			return nil, google.WrapError("vision", a.limiter.Observe(err))
		}
		texts, status := pageTexts(resp.Responses, nil)
		if status != nil {
			last = status
			continue
		}
		if len(texts) == 0 {
			return nil, &domain.OCRError{Adapter: Name, Reason: "empty response"}
		}
		return texts[:1], nil
	}
	return nil, statusError(last)
}

func (a *Adapter) imageContext() *visionapi.ImageContext {
	if len(a.hints) == 0 {
		return nil
	}
	return &visionapi.ImageContext{LanguageHints: a.hints}
}

// pageTexts orders the per-page responses. Requested pages without a
// response are blank.
func pageTexts(responses []*visionapi.AnnotateImageResponse, pages []int64) ([]string, *visionapi.Status) {
	if len(pages) == 0 {
		out := make([]string, len(responses))
		for i, r := range responses {
			if r.Error != nil && r.Error.Message != "" {
				return nil, r.Error
			}
			out[i] = fullText(r)
		}
		return out, nil
	}

	index := make(map[int64]int, len(pages))
	for i, p := range pages {
		index[p] = i
	}
	out := make([]string, len(pages))
	for i, r := range responses {
		if r.Error != nil && r.Error.Message != "" {
			return nil, r.Error
		}
		pos := i
		if r.Context != nil && r.Context.PageNumber > 0 {
			if at, ok := index[r.Context.PageNumber]; ok {
				pos = at
			}
		}
		if pos < len(out) {
			out[pos] = fullText(r)
		}
	}
	return out, nil
}

func fullText(r *visionapi.AnnotateImageResponse) string {
	if r.FullTextAnnotation == nil {
		return ""
	}
	return r.FullTextAnnotation.Text
}

func statusError(status *visionapi.Status) error {
	if status == nil {
		return &domain.OCRError{Adapter: Name, Reason: "annotation failed"}
	}
	return &domain.OCRError{Adapter: Name, Reason: fmt.Sprintf("code %d: %s", status.Code, status.Message)}
}
