package btree

import "errors"

var (
	ErrKeyExists     = errors.New("key already exists")
	ErrKeyNotFound   = errors.New("key not found")
	ErrCorruptTree   = errors.New("index is corrupt")
	ErrInvalidDegree = errors.New("invalid tree degree")

	ErrCursorExhausted = errors.New("cursor is past the last entry")
)
