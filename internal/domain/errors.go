package domain

import "errors"

var (
	ErrProviderNotConfigured = errors.New("provider not configured")
	ErrNotFound              = errors.New("not found")
	ErrInvalidRequest        = errors.New("invalid request")
	ErrConflict              = errors.New("conflict")
	ErrRemoteRejected        = errors.New("provider rejected request")
	ErrMalformedResponse     = errors.New("malformed provider response")
	ErrDeploymentFailed      = errors.New("deployment failed")
	ErrDeploymentTimeout     = errors.New("deployment timed out")
	ErrUnsupported           = errors.New("operation not supported by provider")
)
