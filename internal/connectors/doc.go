// Package connectors holds the document source connectors: the local
// filesystem and Google Drive. Each implements driven.SourceConnector and
// is selected from the source settings by New.
package connectors
