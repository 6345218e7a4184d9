package services

import (
	"errors"
	"time"

	"github.com/samrato/QMMMUST/internal/store"
)

const defaultMailTimeout = 5 * time.Second

var (
	ErrNotFound     = store.ErrNotFound
	ErrConflict     = store.ErrConflict
	ErrTransient    = store.ErrTransient
	ErrDenied       = errors.New("denied")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalid      = errors.New("invalid request")
)
