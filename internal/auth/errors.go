package auth

import "errors"

// ErrTokenInvalid is the single failure Verify reports, whatever check failed.
// It never reaches a client; gates and the session issuer translate it.
var ErrTokenInvalid = errors.New("token invalid")
