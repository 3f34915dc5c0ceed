package mapper

import "errors"

// Configuration errors, returned while rules are being set up.
var (
	// ErrDuplicateMap is returned when a rule for the pair already exists.
	ErrDuplicateMap = errors.New("mapper: map already registered")
	// ErrInvalidBase is returned by IncludeBase for unrelated or identical pairs.
	ErrInvalidBase = errors.New("mapper: invalid base map")
	// ErrNotMemberAccess is returned when an ignore expression is not a
	// plain member access on the destination.
	ErrNotMemberAccess = errors.New("mapper: expression is not a member access")
	// ErrUnknownMember is returned when a destination member does not exist.
	ErrUnknownMember = errors.New("mapper: unknown destination member")
	// ErrInvalidCustomMap is returned for custom projections that do not
	// construct the destination from the source.
	ErrInvalidCustomMap = errors.New("mapper: invalid custom map")
)

// Resolution errors, returned when a projection is requested.
var (
	// ErrMapNotFound is returned when no rule is registered for a pair.
	ErrMapNotFound = errors.New("mapper: map not found")
	// ErrExpansionLimit is returned when references keep expanding past
	// Config.MaxExpansionPasses, which happens for self-referencing rules.
	ErrExpansionLimit = errors.New("mapper: expansion limit exceeded")
	// ErrUnboundMember is returned in strict mode for a destination member
	// whose source member has no applicable binding.
	ErrUnboundMember = errors.New("mapper: destination member has no binding")
)
