package account

import "errors"

// ErrPostNotFound is returned by PostRepository implementations when a
// referenced post no longer exists.
var ErrPostNotFound = errors.New("account: post not found")
