// Package errs defines the error taxonomy of the memory store. Each
// public operation fails with exactly one of these tags attached; use
// goerr.HasTag to classify a returned error.
package errs

import "github.com/m-mizutani/goerr/v2"

var (
	// TagInvalidInput marks malformed caller data detected before any I/O
	TagInvalidInput = goerr.NewTag("invalid_input")

	// TagInvalidIdentifier marks malformed tenant/project identifiers
	TagInvalidIdentifier = goerr.NewTag("invalid_identifier")

	// TagNotFound marks a missing record or namespace
	TagNotFound = goerr.NewTag("not_found")

	// TagDuplicateID marks an id collision on insert
	TagDuplicateID = goerr.NewTag("duplicate_id")

	// TagEmbeddingUnavailable marks embedding provider failures,
	// timeouts, and dimension mismatches
	TagEmbeddingUnavailable = goerr.NewTag("embedding_unavailable")

	// TagStorage marks storage engine failures
	TagStorage = goerr.NewTag("storage_error")
)
