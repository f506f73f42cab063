package repository

import (
	"context"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
)

// TopFilter параметры выборки лучших персонажей
type TopFilter struct {
	Race      string
	Bloodline string
	Gender    entity.Gender
	Limit     int
}

// CharacterRepository определяет методы для работы с персонажами
type CharacterRepository interface {
	Create(ctx context.Context, character *entity.Character) error
	// GetByCharacterID возвращает apperrors.ErrNotFound, если персонажа нет
	GetByCharacterID(ctx context.Context, characterID string) (*entity.Character, error)
	Delete(ctx context.Context, characterID string) error
	Count(ctx context.Context) (int64, error)

	// Методы пула голосования
	// SampleUnvoted возвращает до limit непроголосованных персонажей пола gender,
	// ближайших к точке near по случайному ключу
	SampleUnvoted(ctx context.Context, gender entity.Gender, near entity.RandomKey, limit int) ([]entity.Character, error)
	// MarkVoted атомарно помечает обоих участников сравнения и обновляет счетчики побед/поражений
	MarkVoted(ctx context.Context, winnerID, loserID string) error
	// ResetVoted одним запросом сбрасывает voted = false у всех персонажей
	ResetVoted(ctx context.Context) (int64, error)

	// Рейтинг
	Top(ctx context.Context, filter TopFilter) ([]entity.Character, error)
	ListRanked(ctx context.Context) ([]entity.Character, error)
}
