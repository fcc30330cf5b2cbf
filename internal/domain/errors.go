package domain

import "errors"

// Sentinel errors used throughout the application.
// Handlers translate these to HTTP status codes via a single mapError function.
var (
	ErrNotFound             = errors.New("not found")
	ErrInvalidQuery         = errors.New("query must contain at least one search term")
	ErrOutOfStock           = errors.New("product is out of stock at this dealer")
	ErrNoGroupBuy           = errors.New("product has no active group buy at this dealer")
	ErrNoDelivery           = errors.New("dealer does not offer delivery")
	ErrInvalidImage         = errors.New("image data and mime type are required")
	ErrDiagnoserUnavailable = errors.New("diagnosis service is not configured")
	ErrEmptyDiagnosis       = errors.New("diagnosis service returned an empty response")
)
