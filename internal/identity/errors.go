package identity

import (
	"errors"
	"fmt"
)

var (
	// ErrTransport сетевая ошибка, таймаут или неуспешный HTTP-статус провайдера
	ErrTransport = errors.New("identity provider unreachable")
	// ErrParse ответ получен, но не соответствует ожидаемой XML-структуре
	ErrParse = errors.New("identity payload malformed")
)

// LookupError описывает сбой конкретного запроса к провайдеру
type LookupError struct {
	Op  string // "CharacterID" или "CharacterInfo"
	Err error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("identity %s: %v", e.Op, e.Err)
}

func (e *LookupError) Unwrap() error {
	return e.Err
}

func transportError(op string, format string, args ...interface{}) error {
	return &LookupError{Op: op, Err: fmt.Errorf("%w: %s", ErrTransport, fmt.Sprintf(format, args...))}
}

func parseError(op string, format string, args ...interface{}) error {
	return &LookupError{Op: op, Err: fmt.Errorf("%w: %s", ErrParse, fmt.Sprintf(format, args...))}
}
