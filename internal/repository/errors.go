package repository

import "errors"

var (
	// ErrAnalysisNotFound indicates the analysis record was not found
	ErrAnalysisNotFound = errors.New("analysis record not found")

	// ErrRepositoryUnavailable indicates the repository is unavailable
	ErrRepositoryUnavailable = errors.New("repository unavailable")

	// ErrInvalidUploadName indicates a staging name that escapes the upload folder
	ErrInvalidUploadName = errors.New("invalid upload name")
)
