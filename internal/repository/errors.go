package repository

import "errors"

var (
	ErrNotFound       = errors.New("not found")
	ErrStalePlacement = errors.New("placement does not match a current snapshot")
)
