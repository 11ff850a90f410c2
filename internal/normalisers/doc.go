// Package normalisers reads the text of born-digital document formats
// that carry no page images: Word files, e-mails, HTML and Markdown.
//
// Each normaliser implements driven.OCRAdapter so the OCR router can hand
// it a document by content type. The text they return needs no OCR and is
// split into pages only where the format records page breaks.
package normalisers
