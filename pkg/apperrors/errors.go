package apperrors

import "errors"

var (
	ErrInvalidRequest     = errors.New("invalid request")
	ErrAIRequired         = errors.New("optimize_layout requires use_ai to be true")
	ErrUnsupportedFormat  = errors.New("unsupported file format")
	ErrFileTooLarge       = errors.New("file exceeds maximum allowed size")
	ErrEmptyInput         = errors.New("input contains no data")
	ErrSheetNotFound      = errors.New("sheet not found")
	ErrAIProcessingFailed = errors.New("ai processing failed")
)
