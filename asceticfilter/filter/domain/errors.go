package filter

import "github.com/pkg/errors"

var (
	ErrFieldNotFound = errors.New("field not found")
	ErrCoercion      = errors.New("value cannot be coerced to the field type")
)
