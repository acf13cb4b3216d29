package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCompanyInactive indicates the tenant has been deactivated.
	ErrCompanyInactive = errors.New("company is inactive")
)
