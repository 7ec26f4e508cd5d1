package service

import "errors"

var (
	ErrEmptyMessage         = errors.New("message is required")
	ErrEmptyQuestion        = errors.New("question is required")
	ErrConversationNotFound = errors.New("conversation not found")
)
