package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and clients return
// these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation
// failures:
// - ErrNotFound: key or entity does not exist in the store
// - ErrUnavailable: external collaborator temporarily unreachable
//
// For validation errors (bad input, missing fields), use
// pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrUnavailable = errors.New("unavailable")
)
