package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

const (
	DefaultTopLimit = 100
	MaxTopLimit     = 100
)

// CharacterService чтение рейтинга и административные операции над персонажами
type CharacterService struct {
	characterRepo repository.CharacterRepository
	cache         *characterCache
}

// NewCharacterService создает сервис персонажей
func NewCharacterService(
	characterRepo repository.CharacterRepository,
	cacheRepo repository.CacheRepository,
	countTTL, topTTL time.Duration,
) *CharacterService {
	return &CharacterService{
		characterRepo: characterRepo,
		cache:         newCharacterCache(cacheRepo, countTTL, topTTL),
	}
}

// GetCharacter возвращает персонажа по characterId
func (s *CharacterService) GetCharacter(ctx context.Context, characterID string) (*entity.Character, error) {
	characterID = strings.TrimSpace(characterID)
	if characterID == "" {
		return nil, validationError("character id is required")
	}
	character, err := s.characterRepo.GetByCharacterID(ctx, characterID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
		return nil, repositoryError("get character", err)
	}
	return character, nil
}

// Count возвращает общее число персонажей (кешируется)
func (s *CharacterService) Count(ctx context.Context) (int64, error) {
	if count, ok := s.cache.getCount(ctx); ok {
		return count, nil
	}
	count, err := s.characterRepo.Count(ctx)
	if err != nil {
		return 0, repositoryError("count characters", err)
	}
	s.cache.setCount(ctx, count)
	return count, nil
}

// NormalizeTopFilter приводит лимит к допустимому диапазону и проверяет пол
func NormalizeTopFilter(filter repository.TopFilter) (repository.TopFilter, error) {
	filter.Race = strings.TrimSpace(filter.Race)
	filter.Bloodline = strings.TrimSpace(filter.Bloodline)
	if filter.Gender != "" {
		g, err := entity.ParseGender(string(filter.Gender))
		if err != nil {
			return filter, validationError("gender must be Male or Female")
		}
		filter.Gender = g
	}
	if filter.Limit <= 0 {
		filter.Limit = DefaultTopLimit
	}
	if filter.Limit > MaxTopLimit {
		filter.Limit = MaxTopLimit
	}
	return filter, nil
}

// Top возвращает персонажей с наибольшим числом побед (кешируется по фильтру)
func (s *CharacterService) Top(ctx context.Context, filter repository.TopFilter) ([]entity.Character, error) {
	filter, err := NormalizeTopFilter(filter)
	if err != nil {
		return nil, err
	}

	cached, key, ok := s.cache.getTop(ctx, filter)
	if ok {
		return cached, nil
	}

	characters, err := s.characterRepo.Top(ctx, filter)
	if err != nil {
		return nil, repositoryError("top characters", err)
	}
	if characters == nil {
		characters = []entity.Character{}
	}
	s.cache.setTop(ctx, key, characters)
	return characters, nil
}

// Delete удаляет персонажа (администратор)
func (s *CharacterService) Delete(ctx context.Context, characterID string) error {
	characterID = strings.TrimSpace(characterID)
	if characterID == "" {
		return validationError("character id is required")
	}
	if err := s.characterRepo.Delete(ctx, characterID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return repositoryError("delete character", err)
	}
	log.Printf("[CharacterService] Персонаж %s удален администратором", characterID)
	s.cache.invalidateCount(ctx)
	s.cache.invalidateTop(ctx)
	return nil
}

// ResetVotes вручную сбрасывает пул голосования (администратор)
func (s *CharacterService) ResetVotes(ctx context.Context) (int64, error) {
	reset, err := s.characterRepo.ResetVoted(ctx)
	if err != nil {
		return 0, repositoryError("reset voted pool", err)
	}
	log.Printf("[CharacterService] Ручной сброс пула: %d персонажей", reset)
	s.cache.invalidateTop(ctx)
	return reset, nil
}

// ExportRows возвращает весь рейтинг для выгрузки
func (s *CharacterService) ExportRows(ctx context.Context) ([]entity.Character, error) {
	characters, err := s.characterRepo.ListRanked(ctx)
	if err != nil {
		return nil, repositoryError("list ranked characters", err)
	}
	return characters, nil
}
