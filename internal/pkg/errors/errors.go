package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда запись не найдена или не принадлежит пользователю.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidState используется, когда переход состояния недопустим
	// (например, повторная отправка уже завершенной попытки квиза).
	ErrInvalidState = errors.New("invalid state transition")

	// ErrExternalService используется при сбое внешнего сервиса (LLM, коллабораторы).
	ErrExternalService = errors.New("external service failure")

	// ErrUnauthorized используется для ошибок авторизации (неверный токен, нет прав).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у пользователя недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrExpiredToken используется, когда токен истек.
	ErrExpiredToken = errors.New("token is expired")

	// ErrConflict используется для конфликтов состояния (квиз для недели уже существует,
	// профиль изменен параллельным запросом).
	ErrConflict = errors.New("resource state conflict")
)
