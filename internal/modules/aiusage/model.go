package aiusage

import "errors"

// ErrInsufficientTokens is returned when a user has no suggestion tokens remaining for the current month.
var ErrInsufficientTokens = errors.New("insufficient tokens")

// DefaultTokens is the number of AI suggestion calls granted per month.
const DefaultTokens = 30
