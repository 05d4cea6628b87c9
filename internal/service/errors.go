package service

import "errors"

// Sentinel errors separating the synchronous failure modes of the ingestion
// pipeline. Handlers match them with errors.Is to pick a response; the
// background extraction step never surfaces them to a caller.
var (
	ErrPersistence = errors.New("persistence failure")
	ErrUpload      = errors.New("blob upload failure")
	ErrExtraction  = errors.New("extraction failure")
)
