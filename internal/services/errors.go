package services

import "errors"

var (
	ErrSupplierExists   = errors.New("a supplier with this name already exists")
	ErrUnknownSupplier  = errors.New("supplier not found")
	ErrUsernameTooShort = errors.New("username must be at least 3 characters")
	ErrPasswordTooShort = errors.New("password must be at least 6 characters")
	ErrPasswordMismatch = errors.New("passwords do not match")
	ErrUsernameTaken    = errors.New("username already exists")
	ErrAdminProtected   = errors.New("the administrator account cannot be deleted")
	ErrSelfDelete       = errors.New("you cannot delete your own account")
)

const (
	minUsernameLen = 3
	minPasswordLen = 6
)
