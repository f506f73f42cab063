package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

const (
	countCacheKey   = "characters:count"
	topVersionKey   = "characters:top:version"
	defaultCountTTL = time.Minute
	defaultTopTTL   = 30 * time.Second
)

// characterCache кеш выборок поверх CacheRepository.
// Ошибки Redis только логируются: кеш никогда не ломает основной запрос.
// Списки top инвалидируются сменой версии в ключе, без перебора ключей.
type characterCache struct {
	repo     repository.CacheRepository
	countTTL time.Duration
	topTTL   time.Duration
}

func newCharacterCache(repo repository.CacheRepository, countTTL, topTTL time.Duration) *characterCache {
	if countTTL <= 0 {
		countTTL = defaultCountTTL
	}
	if topTTL <= 0 {
		topTTL = defaultTopTTL
	}
	return &characterCache{repo: repo, countTTL: countTTL, topTTL: topTTL}
}

func (c *characterCache) enabled() bool {
	return c != nil && c.repo != nil
}

func (c *characterCache) topKey(ctx context.Context, filter repository.TopFilter) string {
	version, err := c.repo.Get(ctx, topVersionKey)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[CharacterCache] Ошибка чтения версии top: %v", err)
		}
		version = "0"
	}
	return fmt.Sprintf("characters:top:v%s:%s:%s:%s:%d", version, filter.Race, filter.Bloodline, filter.Gender, filter.Limit)
}

func (c *characterCache) getTop(ctx context.Context, filter repository.TopFilter) ([]entity.Character, string, bool) {
	if !c.enabled() {
		return nil, "", false
	}
	key := c.topKey(ctx, filter)
	var characters []entity.Character
	if err := c.repo.GetJSON(ctx, key, &characters); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[CharacterCache] Ошибка чтения %s: %v", key, err)
		}
		return nil, key, false
	}
	return characters, key, true
}

func (c *characterCache) setTop(ctx context.Context, key string, characters []entity.Character) {
	if !c.enabled() || key == "" {
		return
	}
	if err := c.repo.SetJSON(ctx, key, characters, c.topTTL); err != nil {
		log.Printf("[CharacterCache] Ошибка записи %s: %v", key, err)
	}
}

func (c *characterCache) getCount(ctx context.Context) (int64, bool) {
	if !c.enabled() {
		return 0, false
	}
	var count int64
	if err := c.repo.GetJSON(ctx, countCacheKey, &count); err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[CharacterCache] Ошибка чтения %s: %v", countCacheKey, err)
		}
		return 0, false
	}
	return count, true
}

func (c *characterCache) setCount(ctx context.Context, count int64) {
	if !c.enabled() {
		return
	}
	if err := c.repo.SetJSON(ctx, countCacheKey, count, c.countTTL); err != nil {
		log.Printf("[CharacterCache] Ошибка записи %s: %v", countCacheKey, err)
	}
}

func (c *characterCache) invalidateTop(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if _, err := c.repo.Increment(ctx, topVersionKey); err != nil {
		log.Printf("[CharacterCache] Ошибка инвалидации top: %v", err)
	}
}

func (c *characterCache) invalidateCount(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.repo.Delete(ctx, countCacheKey); err != nil {
		log.Printf("[CharacterCache] Ошибка инвалидации count: %v", err)
	}
}
