package services

import "errors"

// Sentinel errors returned by services. Callers wrap them with context and
// controllers map them onto HTTP responses with errors.Is.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrProductNotFound  = errors.New("product not found")
	ErrRequestNotFound  = errors.New("design request not found")
	ErrQuestionNotFound = errors.New("question not found")
	ErrTemplateNotFound = errors.New("custom template not found")
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("request is not in a state that allows this action")
	ErrInvalidDiscount  = errors.New("invalid discount code")
	ErrZeroAmount       = errors.New("order total is zero")
	ErrNonZeroAmount    = errors.New("order total is not zero")
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrAINotEnabled     = errors.New("question does not support AI inspiration")
	ErrUpstream         = errors.New("upstream service failure")
	ErrNotConfigured    = errors.New("integration not configured")
)
