package domain

import "errors"

var (
	ErrUserAlreadyExists   = errors.New("user already exists")
	ErrUserDoesNotExist    = errors.New("user does not exist")
	ErrWrongCredentials    = errors.New("incorrect username or password")
	ErrRefreshTokenMissing = errors.New("refresh token missing")
	ErrRefreshTokenExpired = errors.New("refresh token expired")
	ErrRefreshTokenInvalid = errors.New("invalid refresh token")
	ErrAccessTokenInvalid  = errors.New("invalid access token")
	ErrRoleAlreadyExists   = errors.New("role already exists")
	ErrRoleDoesNotExist    = errors.New("role does not exist")
	ErrRoleAlreadyAssigned = errors.New("role already assigned to user")
	ErrEmptyUserQuery      = errors.New("user query has no predicates")
	ErrFieldNotUpdatable   = errors.New("field cannot be updated")
	ErrInvalidInput        = errors.New("invalid input")
	ErrTooManyAttempts     = errors.New("too many failed sign-in attempts")
	ErrForbidden           = errors.New("access forbidden")
)
