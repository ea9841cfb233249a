package core

import "errors"

// ErrInvalidArgument reports a rendering request with an unusable parameter.
var ErrInvalidArgument = errors.New("invalid argument")
