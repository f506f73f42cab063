package errors

import "errors"

// Общие ошибки приложения
var (
	// ErrNotFound используется, когда персонаж или другая запись не найдены.
	ErrNotFound = errors.New("record not found")

	// ErrUnauthorized используется для ошибок авторизации (нет токена, неверный токен).
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden используется, когда у клиента недостаточно прав для действия.
	ErrForbidden = errors.New("forbidden")

	// ErrValidation используется для ошибок валидации входных данных.
	ErrValidation = errors.New("validation failed")

	// ErrConflict используется для конфликтов состояния (персонаж уже зарегистрирован).
	ErrConflict = errors.New("resource state conflict")

	// ErrRepository оборачивает любые сбои хранилища, которые нельзя показать клиенту.
	ErrRepository = errors.New("repository failure")
)
