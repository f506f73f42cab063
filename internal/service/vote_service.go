package service

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	"github.com/yourusername/newedenfaces-api/internal/metrics"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

// VoteTopInvalidationInterval — как часто голоса сбрасывают кэш топа.
// Между сбросами топ может отставать не дольше TTL кэша.
const VoteTopInvalidationInterval = 5 * time.Second

// VoteService фиксирует результат сравнения двух персонажей
type VoteService struct {
	characterRepo repository.CharacterRepository
	cache         *characterCache
	metrics       *metrics.Metrics

	now              func() time.Time
	lastInvalidation atomic.Int64 // unix nano последнего сброса топа
}

// NewVoteService создает сервис голосования
func NewVoteService(characterRepo repository.CharacterRepository, cacheRepo repository.CacheRepository, m *metrics.Metrics) *VoteService {
	return &VoteService{
		characterRepo: characterRepo,
		cache:         newCharacterCache(cacheRepo, 0, 0),
		metrics:       m,
		now:           time.Now,
	}
}

// RecordVote помечает обоих участников как проголосованных и обновляет счетчики.
// Повторный голос за ту же пару применяется снова.
func (s *VoteService) RecordVote(ctx context.Context, winnerID, loserID string) error {
	winnerID = strings.TrimSpace(winnerID)
	loserID = strings.TrimSpace(loserID)

	if winnerID == "" || loserID == "" {
		return validationError("winner and loser are required")
	}
	if winnerID == loserID {
		return validationError("winner and loser must be different characters")
	}

	if err := s.characterRepo.MarkVoted(ctx, winnerID, loserID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		return repositoryError("mark voted", err)
	}

	s.metrics.IncrementVotes()
	s.invalidateTopThrottled(ctx)
	return nil
}

// invalidateTopThrottled сбрасывает версию топа не чаще VoteTopInvalidationInterval
func (s *VoteService) invalidateTopThrottled(ctx context.Context) {
	now := s.now().UnixNano()
	last := s.lastInvalidation.Load()
	if last != 0 && now-last < int64(VoteTopInvalidationInterval) {
		return
	}
	if !s.lastInvalidation.CompareAndSwap(last, now) {
		return // другой голос уже сбросил
	}
	s.cache.invalidateTop(ctx)
}
