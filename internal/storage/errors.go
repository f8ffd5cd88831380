package storage

import "errors"

var (
	// file
	ErrCorruptFile        = errors.New("file is corrupt")
	ErrInvalidSignature   = errors.New("invalid file signature")
	ErrUnsupportedVersion = errors.New("unsupported file format version")
	ErrFileTooLarge       = errors.New("file would exceed maximum size")
	ErrClosed             = errors.New("storage is closed")
	ErrReadOnly           = errors.New("storage is opened read-only")
	// records
	ErrCorruptRecord    = errors.New("record is corrupt")
	ErrCorruptFreeList  = errors.New("free list is corrupt")
	ErrChecksumMismatch = errors.New("checksum does not match")
	ErrRecordTooLarge   = errors.New("record exceeds maximum length")
	ErrNoCursor         = errors.New("cursor is not positioned on a record")
)
