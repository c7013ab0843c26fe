package domain

import (
	"fmt"
	"strings"
)

// ValidationReason identifies which pre-commit check rejected an input.
type ValidationReason string

const (
	MissingDow      ValidationReason = "missing_dow"
	MissingHosts    ValidationReason = "missing_hosts"
	MissingName     ValidationReason = "missing_name"
	InvalidHour     ValidationReason = "invalid_hour"
	InvalidMinute   ValidationReason = "invalid_minute"
	InvalidDow      ValidationReason = "invalid_dow"
	UnsupportedFile ValidationReason = "unsupported_file"
	UnknownHost     ValidationReason = "unknown_host"
	HostInUse       ValidationReason = "host_in_use"
)

// ValidationError is a user-correctable rejection. No state has been mutated
// when it is returned.
type ValidationError struct {
	Reason  ValidationReason
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

type NotFoundError struct {
	Entity string
	ID     int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// AssetUploadError reports a failed upload to the asset store.
type AssetUploadError struct {
	Message string
	Err     error
}

func (e *AssetUploadError) Error() string {
	if e.Err == nil {
		return "asset upload failed: " + e.Message
	}
	return fmt.Sprintf("asset upload failed: %s: %v", e.Message, e.Err)
}

func (e *AssetUploadError) Unwrap() error { return e.Err }

// AssetDeleteError reports a failed blob deletion.
type AssetDeleteError struct {
	AssetID string
	Message string
	Err     error
}

func (e *AssetDeleteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("asset %s delete failed: %s", e.AssetID, e.Message)
	}
	return fmt.Sprintf("asset %s delete failed: %s: %v", e.AssetID, e.Message, e.Err)
}

func (e *AssetDeleteError) Unwrap() error { return e.Err }

// PartialCommitError means the entity was persisted but the owning House's
// back-reference could not be updated. EntityID names the row that needs
// manual reconciliation.
type PartialCommitError struct {
	Entity   string
	EntityID int64
	HouseID  int64
	Err      error
}

func (e *PartialCommitError) Error() string {
	return fmt.Sprintf("%s %d persisted but house %d back-reference not updated: %v",
		e.Entity, e.EntityID, e.HouseID, e.Err)
}

func (e *PartialCommitError) Unwrap() error { return e.Err }

// DependentFailure is one dependent that a house cascade could not clean up.
type DependentFailure struct {
	Entity  string
	ID      int64
	AssetID string
	Err     error
}

// CascadeError lists every dependent a house deletion failed to process.
type CascadeError struct {
	HouseID  int64
	Failures []DependentFailure
	Err      error
}

func (e *CascadeError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s %d", f.Entity, f.ID))
	}
	return fmt.Sprintf("house %d cascade incomplete (%s): %v", e.HouseID, strings.Join(parts, ", "), e.Err)
}

func (e *CascadeError) Unwrap() error { return e.Err }

// FailedIDs returns the ids of the failed dependents of the given entity kind.
func (e *CascadeError) FailedIDs(entity string) []int64 {
	var ids []int64
	for _, f := range e.Failures {
		if f.Entity == entity {
			ids = append(ids, f.ID)
		}
	}
	return ids
}
