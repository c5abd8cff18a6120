package cart

import "github.com/shophuyvan/shophuyvan-sub002/internal/domain/shared"

// Cart validation errors
var (
	ErrSessionIDRequired = shared.NewDomainError("VALIDATION_REQUIRED", "session_id is required")
	ErrSessionIDTooLong  = shared.NewDomainError("VALIDATION_FORMAT", "session_id must be at most 128 characters")
	ErrSessionIDInvalid  = shared.NewDomainError("VALIDATION_FORMAT", "session_id must not contain whitespace")
	ErrLinesNotArray     = shared.NewDomainError("VALIDATION_FORMAT", "cart must be an array")

	ErrLineProductRequired  = shared.NewDomainError("VALIDATION_REQUIRED", "product id is required")
	ErrLineNegativePrice    = shared.NewDomainError("VALIDATION_RANGE", "price cannot be negative")
	ErrLineQuantity         = shared.NewDomainError("VALIDATION_RANGE", "quantity must be at least 1")
	ErrLineQuantityTooLarge = shared.NewDomainError("VALIDATION_RANGE", "quantity cannot exceed 9999")
	ErrLineNotFound         = shared.NewDomainError("NOT_FOUND", "cart line not found")
)
