package pagecache

import "errors"

var (
	ErrStorageFault  = errors.New("storage fault")
	ErrReadOnly      = errors.New("file is opened read-only")
	ErrClosed        = errors.New("file is closed")
	ErrInvalidOffset = errors.New("invalid file offset")
)
