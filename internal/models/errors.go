package models

import "errors"

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found") // General not found

	// User & Authentication Errors
	ErrUnauthorized = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden    = errors.New("forbidden")    // Authenticated, but lacks permission

	// Token Errors
	ErrTokenInvalid   = errors.New("token is invalid")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Access Gate Errors
	ErrStoryNotPurchased = errors.New("story must be purchased first")

	// Traversal Errors
	// ErrInvalidOption - опция не принадлежит текущей сцене диалога
	// (устаревший/повторно отправленный выбор) либо диалог уже завершен.
	ErrInvalidOption = errors.New("invalid option for current scene")

	// Authoring Errors
	ErrDuplicateOptionOrder = errors.New("option order already used in this scene")
	ErrWelcomeSceneMismatch = errors.New("welcome scene does not belong to this story")
	ErrCrossStoryOption     = errors.New("next scene belongs to another story")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrInvalidInput   = errors.New("invalid input data")
)
