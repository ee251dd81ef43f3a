package models

import "errors"

var (
	ErrComponentNotFound = errors.New("component not found")
	ErrComponentExists   = errors.New("component already present")
	ErrEntityExists      = errors.New("entity already exists")
	ErrEntityDestroyed   = errors.New("entity is destroyed")
	ErrNilComponent      = errors.New("nil component")
	ErrNilEntityID       = errors.New("nil entity id")
)
