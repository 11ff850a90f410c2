package eml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/juris/internal/core/domain"
)

func extract(t *testing.T, content string) string {
	t.Helper()
	doc := &domain.SourceDocument{
		SourceEntry: domain.SourceEntry{ID: "courrier.eml", MimeType: "message/rfc822"},
		Content:     []byte(content),
	}
	pages, err := New().Extract(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	return pages[0]
}

func TestExtract_SimpleEmail(t *testing.T) {
	text := extract(t, `From: Maitre Martin <martin@avocats.example>
To: greffe@tribunal.example
Subject: Conclusions en defense
Date: Mon, 02 Mar 2026 10:00:00 +0100
Content-Type: text/plain

Veuillez trouver nos conclusions.
Bien cordialement.
`)

	assert.Contains(t, text, "From: Maitre Martin <martin@avocats.example>\n")
	assert.Contains(t, text, "To: greffe@tribunal.example\n")
	assert.Contains(t, text, "Subject: Conclusions en defense\n")
	assert.Contains(t, text, "Date: Mon, 02 Mar 2026 10:00:00 +0100\n")
	assert.Contains(t, text, "Veuillez trouver nos conclusions.\nBien cordialement.")
}

func TestExtract_HTMLBody(t *testing.T) {
	text := extract(t, `From: martin@avocats.example
Subject: Relance
Content-Type: text/html; charset=utf-8

<html><body><p>Premier paragraphe.</p><p>Second <b>paragraphe</b>.</p></body></html>
`)

	assert.Contains(t, text, "Premier paragraphe.\nSecond paragraphe.")
	assert.NotContains(t, text, "<p>")
}

func TestExtract_MultipartPrefersPlainText(t *testing.T) {
	text := extract(t, `From: martin@avocats.example
Subject: Pieces
Content-Type: multipart/mixed; boundary="outer"

--outer
Content-Type: multipart/alternative; boundary="inner"

--inner
Content-Type: text/plain; charset=iso-8859-1
Content-Transfer-Encoding: quoted-printable

Proc=E8s-verbal ci-joint.
--inner
Content-Type: text/html

<p>HTML version</p>
--inner--
--outer
Content-Type: application/pdf
Content-Disposition: attachment; filename="pv_audition.pdf"
Content-Transfer-Encoding: base64

JVBERi0xLjQK
--outer--
`)

	assert.Contains(t, text, "Procès-verbal ci-joint.")
	assert.NotContains(t, text, "HTML version")
	assert.Contains(t, text, "Attachments: pv_audition.pdf\n")
	assert.NotContains(t, text, "JVBERi0")
}

func TestExtract_Base64Body(t *testing.T) {
	// "Le virement a été reçu." in base64.
	text := extract(t, `From: banque@example
Content-Type: text/plain; charset=utf-8
Content-Transfer-Encoding: base64

TGUgdmlyZW1lbnQgYSDDqXTDqSByZcOn
dS4=
`)

	assert.Contains(t, text, "Le virement a été reçu.")
}

func TestExtract_Errors(t *testing.T) {
	_, err := New().Extract(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrOCRFailure)

	doc := &domain.SourceDocument{Content: []byte("not a valid email")}
	_, err = New().Extract(context.Background(), doc)
	assert.ErrorIs(t, err, domain.ErrOCRFailure)
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "plain text", input: "Simple Subject", expected: "Simple Subject"},
		{name: "empty", input: "", expected: ""},
		{name: "utf8 base64 encoded", input: "=?UTF-8?B?SGVsbG8gV29ybGQ=?=", expected: "Hello World"},
		{name: "utf8 quoted printable", input: "=?UTF-8?Q?Hello_World?=", expected: "Hello World"},
		{name: "latin1 quoted printable", input: "=?ISO-8859-1?Q?Proc=E8s-verbal?=", expected: "Procès-verbal"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, decodeHeader(tc.input))
		})
	}
}
