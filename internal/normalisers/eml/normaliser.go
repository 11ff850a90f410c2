// Package eml reads e-mails (RFC 5322 messages), the usual form of
// correspondence between counsel in a case file.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/net/html/charset"

	"github.com/custodia-labs/juris/internal/core/domain"
	"github.com/custodia-labs/juris/internal/core/ports/driven"
	"github.com/custodia-labs/juris/internal/normalisers/html"
)

// Name identifies the normaliser in logs and errors.
const Name = "eml"

// Ensure Normaliser implements the interface.
var _ driven.OCRAdapter = (*Normaliser)(nil)

// Normaliser returns the headers and the body of a message as one page.
// Plain text parts are preferred over HTML; attachments are listed by
// name but not read.
type Normaliser struct{}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Name returns the normaliser name.
func (n *Normaliser) Name() string { return Name }

// Extract reads the message.
func (n *Normaliser) Extract(_ context.Context, doc *domain.SourceDocument) ([]string, error) {
	if doc == nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "no document"}
	}

	msg, err := mail.ReadMessage(bytes.NewReader(doc.Content))
	if err != nil {
		return nil, &domain.OCRError{Adapter: Name, Reason: "not an e-mail: " + err.Error()}
	}

	var body parts
	body.read(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)

	var content strings.Builder
	for _, h := range []string{"From", "To", "Cc", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			content.WriteString(h + ": " + v + "\n")
		}
	}
	if len(body.attachments) > 0 {
		content.WriteString("Attachments: " + strings.Join(body.attachments, ", ") + "\n")
	}
	content.WriteString("\n")
	content.WriteString(body.text())

	return []string{strings.TrimSpace(content.String())}, nil
}

var headerDecoder = &mime.WordDecoder{CharsetReader: charset.NewReaderLabel}

// decodeHeader decodes RFC 2047 encoded words, returning the raw value
// when decoding fails.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	decoded, err := headerDecoder.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// parts collects the text of a message body.
type parts struct {
	plain       []string
	html        []string
	attachments []string
}

func (p *parts) text() string {
	if len(p.plain) > 0 {
		return strings.Join(p.plain, "\n")
	}
	return strings.Join(p.html, "\n")
}

func (p *parts) read(contentType, transferEncoding string, r io.Reader) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		p.readMultipart(r, params["boundary"])
		return
	}

	data, err := io.ReadAll(decodeTransfer(transferEncoding, r))
	if err != nil {
		return
	}
	switch mediaType {
	case "text/plain":
		p.plain = append(p.plain, decodeCharset(data, params["charset"]))
	case "text/html":
		if text, err := html.Text(data, contentType); err == nil {
			p.html = append(p.html, text)
		}
	}
}

func (p *parts) readMultipart(r io.Reader, boundary string) {
	if boundary == "" {
		return
	}
	mr := multipart.NewReader(r, boundary)
	for {
		part, err := mr.NextPart()
		if err != nil {
			return
		}
		if name := attachmentName(part); name != "" {
			p.attachments = append(p.attachments, name)
			part.Close()
			continue
		}
		p.read(part.Header.Get("Content-Type"), part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()
	}
}

// attachmentName returns the file name of an attachment part.
func attachmentName(part *multipart.Part) string {
	disposition, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err == nil && disposition == "attachment" {
		if name := decodeHeader(params["filename"]); name != "" {
			return name
		}
		return "(unnamed)"
	}
	return ""
}

// decodeTransfer undoes base64 and quoted-printable encodings. The
// multipart reader already decodes quoted-printable parts.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

func decodeCharset(data []byte, label string) string {
	if label == "" {
		return string(data)
	}
	reader, err := charset.NewReaderLabel(label, bytes.NewReader(data))
	if err != nil {
		return string(data)
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return string(data)
	}
	return string(decoded)
}
