package resources

import "errors"

var (
	ErrNotFound   = errors.New("resource not found")
	ErrForbidden  = errors.New("only admins can manage resources")
	ErrValidation = errors.New("invalid resource")
)
