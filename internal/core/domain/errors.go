package domain

import "errors"

var (
	// Authentication
	ErrUnauthenticated    = errors.New("authentication required")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrIdentityUnresolved = errors.New("caller identity could not be resolved")

	// Authorization
	ErrForbidden = errors.New("access forbidden")

	// Lookups
	ErrUserNotFound     = errors.New("user not found")
	ErrAuthorNotFound   = errors.New("author not found")
	ErrAssigneeNotFound = errors.New("assignee not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrCommentNotFound  = errors.New("comment not found")

	// Input
	ErrValidation      = errors.New("validation failed")
	ErrRestrictedField = errors.New("only an admin can change title, description, priority or assignee")
	ErrWeakPassword    = errors.New("password must be at least 8 characters")
	ErrEmailTaken      = errors.New("email already in use")
	ErrUsernameTaken   = errors.New("username already in use")
	ErrUserExists      = errors.New("user already exists")
)
