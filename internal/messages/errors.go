package messages

import "errors"

// ErrInvalidRole indicates a role outside the closed {user, assistant} set.
var ErrInvalidRole = errors.New("invalid message role")
