package tools

import "errors"

// ErrInvalidSpec indicates tool arguments missing a required field.
var ErrInvalidSpec = errors.New("invalid tool arguments")
