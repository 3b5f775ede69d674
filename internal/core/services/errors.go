package services

import "errors"

// Installer errors
var (
	ErrStepNotFound     = errors.New("installer: step not found")
	ErrInstallBusy      = errors.New("installer: another installation step is running")
	ErrAlreadyInstalled = errors.New("installer: application is already installed")
	ErrEnvPersistFailed = errors.New("installer: failed to persist environment file")
)

// Upload errors
var (
	ErrUploadNotFound     = errors.New("upload: not found")
	ErrUploadInvalidInput = errors.New("upload: invalid input")
	ErrUploadQueueFull    = errors.New("upload: processing queue is full")
	ErrUploadQueueClosed  = errors.New("upload: processing queue is closed")
)

// Request errors
var (
	ErrMediaNotFound     = errors.New("request: media not found")
	ErrRequestDuplicate  = errors.New("request: media is already in the queue")
	ErrRequestNotFound   = errors.New("request: not found")
	ErrRequestQueueEmpty = errors.New("request: queue is empty")
)

// Console errors
var (
	ErrKeysExist         = errors.New("passport: encryption keys already exist")
	ErrProductionNoForce = errors.New("console: refusing to run in production without --force")
	ErrUnknownCommand    = errors.New("console: command not defined")
)

// Task errors
var (
	ErrTaskNotFound = errors.New("task: not found")
)
