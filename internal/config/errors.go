package config

import "errors"

// Validation errors returned by Config.Validate
var (
	ErrInvalidServerConfigs  = errors.New("invalid server configuration")
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	ErrInvalidAuthConfigs    = errors.New("invalid auth configuration")
	ErrInvalidSyncConfigs    = errors.New("invalid sync configuration")
)
