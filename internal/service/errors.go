package service

import "errors"

// Sentinel errors mapped to response codes at the handler boundary.
var (
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrSessionNotFound   = errors.New("session not found")
	ErrNotQuizOwner      = errors.New("teacher does not own this quiz")
	ErrSessionIDRequired = errors.New("session_id is required for per-student actions")
)
