package store

import "errors"

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidGrade = errors.New("invalid grade code")
)
