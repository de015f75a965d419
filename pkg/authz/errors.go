package authz

import "errors"

var (
	ErrNotBound         = errors.New("capability not bound")
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotEntitled      = errors.New("active subscription required")
)
