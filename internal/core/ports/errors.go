package ports

import "errors"

var ErrStateNotFound = errors.New("authorization state not found or expired")
