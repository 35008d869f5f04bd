package configs

import (
	"github.com/pkg/errors"
)

var (
	ErrMissing        = errors.New("missing configuration")
	ErrInvalidSection = errors.New("invalid section")
	ErrInvalidKey     = errors.New("invalid key")
	ErrInvalidType    = errors.New("invalid type")
)
