package service

import (
	"context"
	"log"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	"github.com/yourusername/newedenfaces-api/internal/metrics"
)

const pairSize = 2

// PairService выбирает двух еще не проголосованных персонажей одного пола.
//
// Порядок: случайный пол, затем противоположный, затем сброс пула.
// Выборка по ближайшему к случайной точке ключу лишь приближает равномерное
// распределение: персонажи с большим зазором до соседа выпадают чаще.
// Одновременные запросы могут получить пересекающиеся пары.
type PairService struct {
	characterRepo repository.CharacterRepository
	rnd           Randomizer
	cache         *characterCache
	metrics       *metrics.Metrics
}

// NewPairService создает сервис выбора пар
func NewPairService(
	characterRepo repository.CharacterRepository,
	rnd Randomizer,
	cacheRepo repository.CacheRepository,
	m *metrics.Metrics,
) *PairService {
	if rnd == nil {
		rnd = NewRandomizer()
	}
	return &PairService{
		characterRepo: characterRepo,
		rnd:           rnd,
		cache:         newCharacterCache(cacheRepo, 0, 0),
		metrics:       m,
	}
}

// SelectPair возвращает ровно двух персонажей одного пола либо пустой срез,
// если пул исчерпан. Во втором случае флаги voted сбрасываются у всех персонажей,
// и следующий вызов снова найдет пару.
func (s *PairService) SelectPair(ctx context.Context) ([]entity.Character, error) {
	primary := s.rnd.Gender()

	pair, err := s.sample(ctx, primary)
	if err != nil {
		return nil, err
	}
	if len(pair) == pairSize {
		s.metrics.IncrementPairSelection(metrics.PairPrimary)
		return pair, nil
	}

	pair, err = s.sample(ctx, primary.Opposite())
	if err != nil {
		return nil, err
	}
	if len(pair) == pairSize {
		s.metrics.IncrementPairSelection(metrics.PairFallback)
		return pair, nil
	}

	reset, err := s.characterRepo.ResetVoted(ctx)
	if err != nil {
		return nil, repositoryError("reset voted pool", err)
	}
	log.Printf("[PairService] Пул исчерпан для обоих полов, флаги voted сброшены у %d персонажей", reset)
	s.metrics.IncrementPairSelection(metrics.PairReset)
	s.cache.invalidateTop(ctx)

	return []entity.Character{}, nil
}

func (s *PairService) sample(ctx context.Context, gender entity.Gender) ([]entity.Character, error) {
	near := entity.NewRandomKey(s.rnd.Float64())
	characters, err := s.characterRepo.SampleUnvoted(ctx, gender, near, pairSize)
	if err != nil {
		return nil, repositoryError("sample "+string(gender)+" pool", err)
	}
	return characters, nil
}
