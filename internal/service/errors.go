package service

import (
	"errors"
	"fmt"

	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

// Stage этап конвейера регистрации
type Stage int

const (
	StageIdentify Stage = iota + 1
	StageDuplicateCheck
	StageProfile
	StagePersist
)

func (s Stage) String() string {
	switch s {
	case StageIdentify:
		return "identify"
	case StageDuplicateCheck:
		return "duplicate-check"
	case StageProfile:
		return "profile"
	case StagePersist:
		return "persist"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// RegistrationError сбой внешнего поиска на этапах Identify и Profile.
// Err оборачивает identity.ErrTransport или identity.ErrParse.
type RegistrationError struct {
	Stage Stage
	Name  string
	Err   error
}

func (e *RegistrationError) Error() string {
	return fmt.Sprintf("registration of %q failed at %s: %v", e.Name, e.Stage, e.Err)
}

func (e *RegistrationError) Unwrap() error {
	return e.Err
}

// DuplicateError персонаж с таким characterId уже зарегистрирован
type DuplicateError struct {
	CharacterID  string
	ExistingName string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s is already in the database.", e.ExistingName)
}

func (e *DuplicateError) Unwrap() error {
	return apperrors.ErrConflict
}

// repositoryError оборачивает сбой хранилища так, чтобы errors.Is находил
// и apperrors.ErrRepository, и исходную ошибку
func repositoryError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", apperrors.ErrRepository, op, err)
}

// validationError оборачивает apperrors.ErrValidation с пояснением для клиента
func validationError(msg string) error {
	return fmt.Errorf("%w: %s", apperrors.ErrValidation, msg)
}

// ValidationMessage извлекает пояснение из ошибки валидации
func ValidationMessage(err error) string {
	prefix := apperrors.ErrValidation.Error() + ": "
	msg := err.Error()
	if errors.Is(err, apperrors.ErrValidation) && len(msg) > len(prefix) && msg[:len(prefix)] == prefix {
		return msg[len(prefix):]
	}
	return msg
}
