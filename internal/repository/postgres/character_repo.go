package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

// CharacterRepo реализует repository.CharacterRepository
type CharacterRepo struct {
	db *gorm.DB
}

// NewCharacterRepo создает новый репозиторий персонажей
func NewCharacterRepo(db *gorm.DB) *CharacterRepo {
	return &CharacterRepo{db: db}
}

// Create сохраняет нового персонажа.
// Нарушение уникального индекса по character_id возвращается как apperrors.ErrConflict
// (требует gorm.Config{TranslateError: true}, см. pkg/database).
func (r *CharacterRepo) Create(ctx context.Context, character *entity.Character) error {
	err := r.db.WithContext(ctx).Create(character).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("character %s: %w", character.CharacterID, apperrors.ErrConflict)
	}
	return err
}

// GetByCharacterID возвращает персонажа по внешнему идентификатору
func (r *CharacterRepo) GetByCharacterID(ctx context.Context, characterID string) (*entity.Character, error) {
	var character entity.Character
	err := r.db.WithContext(ctx).Where("character_id = ?", characterID).First(&character).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, err
	}
	return &character, nil
}

// Delete удаляет персонажа (только административная операция)
func (r *CharacterRepo) Delete(ctx context.Context, characterID string) error {
	result := r.db.WithContext(ctx).Where("character_id = ?", characterID).Delete(&entity.Character{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

// Count возвращает общее количество персонажей
func (r *CharacterRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&entity.Character{}).Count(&count).Error
	return count, err
}

// SampleUnvoted возвращает непроголосованных персонажей заданного пола, ближайших к точке near.
// Сортировка по расстоянию point <-> point обслуживается GiST индексом (KNN),
// поэтому запрос остается дешевым и без ORDER BY RANDOM().
func (r *CharacterRepo) SampleUnvoted(ctx context.Context, gender entity.Gender, near entity.RandomKey, limit int) ([]entity.Character, error) {
	var characters []entity.Character

	err := r.db.WithContext(ctx).
		Where("voted = ? AND gender = ?", false, gender).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{
				SQL:                "point(random_x, random_y) <-> point(?, ?)",
				Vars:               []interface{}{near.X, near.Y},
				WithoutParentheses: true,
			},
		}).
		Limit(limit).
		Find(&characters).Error
	if err != nil {
		return nil, err
	}
	return characters, nil
}

// MarkVoted помечает победителя и проигравшего как проголосованных в одной транзакции.
// Если любой из персонажей не найден, транзакция откатывается с apperrors.ErrNotFound.
func (r *CharacterRepo) MarkVoted(ctx context.Context, winnerID, loserID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		result := tx.Model(&entity.Character{}).
			Where("character_id = ?", winnerID).
			Updates(map[string]interface{}{
				"voted":      true,
				"wins":       gorm.Expr("wins + ?", 1),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("winner %s: %w", winnerID, apperrors.ErrNotFound)
		}

		result = tx.Model(&entity.Character{}).
			Where("character_id = ?", loserID).
			Updates(map[string]interface{}{
				"voted":      true,
				"losses":     gorm.Expr("losses + ?", 1),
				"updated_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("loser %s: %w", loserID, apperrors.ErrNotFound)
		}

		return nil
	})
}

// ResetVoted сбрасывает voted = false для всех персонажей.
// Один UPDATE выполняется атомарно: конкурентные читатели видят либо старое, либо новое состояние.
func (r *CharacterRepo) ResetVoted(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Model(&entity.Character{}).
		Where("voted = ?", true).
		Update("voted", false)
	return result.RowsAffected, result.Error
}

// Top возвращает лучших персонажей по количеству побед с опциональными фильтрами
func (r *CharacterRepo) Top(ctx context.Context, filter repository.TopFilter) ([]entity.Character, error) {
	var characters []entity.Character

	query := r.db.WithContext(ctx).Model(&entity.Character{})
	if filter.Race != "" {
		query = query.Where("race = ?", filter.Race)
	}
	if filter.Bloodline != "" {
		query = query.Where("bloodline = ?", filter.Bloodline)
	}
	if filter.Gender != "" {
		query = query.Where("gender = ?", filter.Gender)
	}

	err := query.Order("wins DESC, losses ASC, id ASC").
		Limit(filter.Limit).
		Find(&characters).Error
	return characters, err
}

// ListRanked возвращает всех персонажей в порядке рейтинга (для экспорта)
func (r *CharacterRepo) ListRanked(ctx context.Context) ([]entity.Character, error) {
	var characters []entity.Character
	err := r.db.WithContext(ctx).Order("wins DESC, losses ASC, id ASC").Find(&characters).Error
	return characters, err
}
