package models

import "net/http"

// ErrorResponse описывает ошибку с кодом и сообщением.
type ErrorResponse struct {
	StatusCode int    `json:"-"`
	Message    string `json:"reason"`
}

// NewErrorResponse создает новую ошибку с кодом и сообщением.
func NewErrorResponse(statusCode int, message string) *ErrorResponse {
	return &ErrorResponse{
		StatusCode: statusCode,
		Message:    message}
}

// NewValidationError создает ошибку валидации входных данных.
func NewValidationError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusBadRequest, message)
}

// NewPermissionDenied создает ошибку недостаточных прав роли.
func NewPermissionDenied(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusForbidden, message)
}

// NewNotFoundError создает ошибку отсутствия сущности.
func NewNotFoundError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusNotFound, message)
}

// NewInvalidStateError создает ошибку недопустимого перехода состояния.
func NewInvalidStateError(message string) *ErrorResponse {
	return NewErrorResponse(http.StatusConflict, message)
}

// Реализация метода Error() для удовлетворения интерфейса error.
func (e *ErrorResponse) Error() string {
	return e.Message
}
