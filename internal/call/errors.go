package call

import "errors"

// ErrCallInProgress is returned by Call while a non-terminal session exists.
var ErrCallInProgress = errors.New("call already in progress")
