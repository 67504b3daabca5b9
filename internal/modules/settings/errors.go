package settings

import "errors"

var (
	ErrForbidden  = errors.New("only admins can change school settings")
	ErrValidation = errors.New("invalid settings")
)
