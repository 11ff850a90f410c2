// Package docx reads the text of Word (OOXML) documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
)

// Name identifies the normaliser in logs and errors.
const Name = "docx"

// MIMEType is the content type of Word documents.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Ensure Normaliser implements the interface.
var _ driven.OCRAdapter = (*Normaliser)(nil)

// Normaliser reads word/document.xml and splits it into pages at explicit
// and last-rendered page breaks.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string { return Name }

// Extract returns the text of each page.
func (n *Normaliser) Extract(_ context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	reader, err := zip.NewReader(bytes.NewReader(doc.Content), int64(len(doc.Content)))
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "not a zip archive: " + err.Error()}
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: err.Error()}
	}

	pages, err := parseDocumentXML(body)
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "malformed document.xml: " + err.Error()}
	}
	return pages, nil
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, err
		}
		defer rc.Close()
		return io.ReadAll(rc)
	}
	return nil, errors.New("missing " + name)
}

// parseDocumentXML walks the WordprocessingML body. Paragraphs end with a
// newline, table cells with a tab, and page breaks start a new page.
func parseDocumentXML(content []byte) ([]string, error) {
	decoder := xml.NewDecoder(bytes.NewReader(content))

	var pages []string
	var page strings.Builder
	inText := false

	flush := func() {
		pages = append(pages, strings.TrimSpace(page.String()))
		page.Reset()
	}

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "t":
				inText = true
			case "tab":
				page.WriteByte('\t')
			case "br", "cr":
				if attr(t, "type") == "page" {
					flush()
				} else {
					page.WriteByte('\n')
				}
			case "lastRenderedPageBreak":
				if strings.TrimSpace(page.String()) != "" {
					flush()
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				page.WriteByte('\n')
			case "tc":
				page.WriteByte('\t')
			}
		case xml.CharData:
			if inText {
				page.Write(t)
			}
		}
	}
	flush()
	return pages, nil
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
