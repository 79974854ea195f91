package ingest

import "errors"

var (
	// ErrUnsupportedFile is returned for uploads that are not PDF or plain text.
	ErrUnsupportedFile = errors.New("ingest: only .pdf and .txt documents are supported")
	// ErrInvalidName is returned for empty names and names that would escape the upload directory.
	ErrInvalidName = errors.New("ingest: invalid document name")
	// ErrNotFound is returned when removing a document that does not exist.
	ErrNotFound = errors.New("ingest: document not found")
)
