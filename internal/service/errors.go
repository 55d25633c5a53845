package service

import "errors"

// Common service errors
var (
	// ErrPermissionDenied is returned when a user doesn't have permission for an action
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is returned when a resource is not found
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict is returned when a concurrent write changed the record first
	ErrConflict = errors.New("resource conflict")

	// ErrUserContextRequired is returned when user context is not available
	ErrUserContextRequired = errors.New("user context required")
)

// Maintenance lifecycle errors
var (
	// ErrAlreadyAssigned is returned when another staff member claimed the request first
	ErrAlreadyAssigned = errors.New("maintenance request already assigned")

	// ErrInvalidTransition is returned for a status change the lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrZeroEstimate is returned when an estimate totals zero
	ErrZeroEstimate = errors.New("estimate total must be greater than zero")

	// ErrActualCostRequired is returned when completing without an actual cost
	ErrActualCostRequired = errors.New("actual cost is required to complete work")
)

// Messaging and notification errors
var (
	// ErrNotParticipant is returned when the caller is not part of the conversation
	ErrNotParticipant = errors.New("not a participant in this conversation")

	// ErrNotificationNotFound is returned when a notification is not found
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrNotificationNotOwned is returned when accessing another user's notification
	ErrNotificationNotOwned = errors.New("notification does not belong to current user")
)
