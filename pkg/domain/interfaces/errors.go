package interfaces

import "github.com/m-mizutani/goerr/v2"

// Errors returned by every repository implementation
var (
	ErrNotFound = goerr.New("not found")
	ErrConflict = goerr.New("conflict")
)
