package repositories

import "github.com/vidtube/backend/internal/apperr"

var (
	// ErrNotFound indicates the requested record, or a record it references, does not exist.
	ErrNotFound = apperr.NotFound("record not found")
	// ErrConflict indicates the attempted write would violate a uniqueness constraint.
	ErrConflict = apperr.Conflict("record conflict")
	// ErrNotFoundOrUnauthorized indicates an owner-conditional write matched no row:
	// either the record is missing or the caller does not own it.
	ErrNotFoundOrUnauthorized = apperr.NotFound("record not found or not owned by caller")
	// ErrInvalidRelation indicates a write rejected by a check constraint.
	ErrInvalidRelation = apperr.Validation("invalid relationship")
)
