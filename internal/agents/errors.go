package agents

import "errors"

// ErrNotFound indicates the requested agent does not exist. Repositories
// report absence as a nil entity; handlers use this error only to shape the
// 404 response body.
var ErrNotFound = errors.New("generated agent not found")
