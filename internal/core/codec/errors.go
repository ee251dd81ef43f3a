package codec

import "errors"

var (
	ErrUnknownTypeTag   = errors.New("unknown component type tag")
	ErrUnregisteredType = errors.New("component type not registered")
	ErrDuplicateType    = errors.New("component type already registered")
	ErrTagCollision     = errors.New("component type tag collision")
	ErrTruncated        = errors.New("serialized component truncated")
	ErrServerOnly       = errors.New("server-only component cannot be serialized")
)
