package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrOpen    = errors.New("open database failed")
	ErrMigrate = errors.New("apply migrations failed")
	ErrInsert  = errors.New("insert failed")
)
