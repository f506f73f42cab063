package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"unicode/utf8"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	"github.com/yourusername/newedenfaces-api/internal/identity"
	"github.com/yourusername/newedenfaces-api/internal/metrics"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

const maxCharacterNameLength = 100

// IdentityClient внешний провайдер идентичности персонажей
type IdentityClient interface {
	LookupID(ctx context.Context, name string) (string, error)
	LookupProfile(ctx context.Context, characterID string) (identity.Profile, error)
}

// RegistrationService добавляет персонажа в четыре последовательных этапа:
// Identify -> DuplicateCheck -> Profile -> Persist. Первый сбой прерывает цепочку.
type RegistrationService struct {
	identity      IdentityClient
	characterRepo repository.CharacterRepository
	rnd           Randomizer
	cache         *characterCache
	metrics       *metrics.Metrics
}

// NewRegistrationService создает сервис регистрации
func NewRegistrationService(
	identityClient IdentityClient,
	characterRepo repository.CharacterRepository,
	rnd Randomizer,
	cacheRepo repository.CacheRepository,
	m *metrics.Metrics,
) *RegistrationService {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	return &RegistrationService{
		identity:      identityClient,
		characterRepo: characterRepo,
		rnd:           rnd,
		cache:         newCharacterCache(cacheRepo, 0, 0),
		metrics:       m,
	}
}

// registration состояние одной регистрации, передаваемое между этапами
type registration struct {
	name        string
	gender      entity.Gender
	characterID string
	profile     identity.Profile
	character   *entity.Character
}

// Register регистрирует персонажа и возвращает сообщение для пользователя
func (s *RegistrationService) Register(ctx context.Context, name, gender string) (string, error) {
	reg, err := s.validate(name, gender)
	if err != nil {
		s.metrics.IncrementRegistration("invalid")
		return "", err
	}

	stages := []struct {
		stage Stage
		run   func(context.Context, *registration) error
	}{
		{StageIdentify, s.identify},
		{StageDuplicateCheck, s.checkDuplicate},
		{StageProfile, s.loadProfile},
		{StagePersist, s.persist},
	}

	for _, st := range stages {
		if err := st.run(ctx, reg); err != nil {
			s.recordFailure(st.stage, err)
			return "", err
		}
	}

	s.metrics.IncrementRegistration("success")
	s.cache.invalidateCount(ctx)
	s.cache.invalidateTop(ctx)
	log.Printf("[RegistrationService] Персонаж %s (%s) зарегистрирован", reg.character.Name, reg.characterID)

	return fmt.Sprintf("%s has been added successfully!", reg.name), nil
}

func (s *RegistrationService) validate(name, gender string) (*registration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationError("character name is required")
	}
	if utf8.RuneCountInString(name) > maxCharacterNameLength {
		return nil, validationError(fmt.Sprintf("character name must be at most %d characters", maxCharacterNameLength))
	}
	g, err := entity.ParseGender(gender)
	if err != nil {
		return nil, validationError("gender must be Male or Female")
	}
	return &registration{name: name, gender: g}, nil
}

// identify: имя -> characterID
func (s *RegistrationService) identify(ctx context.Context, reg *registration) error {
	id, err := s.identity.LookupID(ctx, reg.name)
	if err != nil {
		return &RegistrationError{Stage: StageIdentify, Name: reg.name, Err: err}
	}
	reg.characterID = id
	return nil
}

// checkDuplicate: найденный персонаж завершает регистрацию до запроса профиля
func (s *RegistrationService) checkDuplicate(ctx context.Context, reg *registration) error {
	existing, err := s.characterRepo.GetByCharacterID(ctx, reg.characterID)
	switch {
	case err == nil:
		return &DuplicateError{CharacterID: reg.characterID, ExistingName: existing.Name}
	case errors.Is(err, apperrors.ErrNotFound):
		return nil
	default:
		return repositoryError("duplicate check", err)
	}
}

// loadProfile: characterID -> имя, раса, родословная
func (s *RegistrationService) loadProfile(ctx context.Context, reg *registration) error {
	profile, err := s.identity.LookupProfile(ctx, reg.characterID)
	if err != nil {
		return &RegistrationError{Stage: StageProfile, Name: reg.name, Err: err}
	}
	reg.profile = profile
	return nil
}

func (s *RegistrationService) persist(ctx context.Context, reg *registration) error {
	character := &entity.Character{
		CharacterID: reg.characterID,
		Name:        reg.profile.Name,
		Race:        reg.profile.Race,
		Bloodline:   reg.profile.Bloodline,
		Gender:      reg.gender,
		Random:      entity.NewRandomKey(s.rnd.Float64()),
	}
	if err := character.Validate(); err != nil {
		return repositoryError("validate character", err)
	}

	if err := s.characterRepo.Create(ctx, character); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Параллельная регистрация успела раньше
			return &DuplicateError{CharacterID: reg.characterID, ExistingName: character.Name}
		}
		return repositoryError("create character", err)
	}
	reg.character = character
	return nil
}

func (s *RegistrationService) recordFailure(stage Stage, err error) {
	var dupErr *DuplicateError
	switch {
	case errors.As(err, &dupErr):
		s.metrics.IncrementRegistration("duplicate")
	case errors.Is(err, identity.ErrParse):
		s.metrics.IncrementRegistration("unrecognized")
		s.metrics.IncrementIdentityFailure("parse")
	case errors.Is(err, identity.ErrTransport):
		s.metrics.IncrementRegistration("identity_unavailable")
		s.metrics.IncrementIdentityFailure("transport")
		log.Printf("[RegistrationService] Провайдер идентичности недоступен на этапе %s: %v", stage, err)
	default:
		s.metrics.IncrementRegistration("error")
		log.Printf("[RegistrationService] Ошибка на этапе %s: %v", stage, err)
	}
}
