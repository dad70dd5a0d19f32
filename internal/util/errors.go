package util

import "errors"

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoExtractableText = errors.New("no extractable text found in document")

	ErrDocumentNotFound = errors.New("document not found")
	ErrStorageFailure   = errors.New("storage failure")

	ErrEmbeddingUnavailable = errors.New("embedding backend unavailable")
	ErrGenerationFailed     = errors.New("text generation failed")
	ErrNoRelevantContent    = errors.New("no relevant content for query")
)
