package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

func TestVoteService_RecordVote_Success(t *testing.T) {
	repo := new(MockCharacterRepository)
	cache := new(MockCacheRepository)

	repo.On("MarkVoted", mock.Anything, "1", "2").Return(nil).Once()
	cache.On("Increment", mock.Anything, topVersionKey).Return(int64(4), nil).Once()

	svc := NewVoteService(repo, cache, nil)
	require.NoError(t, svc.RecordVote(context.Background(), " 1 ", "2"))

	repo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestVoteService_RecordVote_ThrottlesTopInvalidation(t *testing.T) {
	repo := new(MockCharacterRepository)
	cache := new(MockCacheRepository)
	repo.On("MarkVoted", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	cache.On("Increment", mock.Anything, topVersionKey).Return(int64(1), nil)

	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	svc := NewVoteService(repo, cache, nil)
	svc.now = func() time.Time { return clock }
	ctx := context.Background()

	require.NoError(t, svc.RecordVote(ctx, "1", "2"))
	cache.AssertNumberOfCalls(t, "Increment", 1)

	// Поток голосов внутри интервала не трогает версию топа
	for i := 0; i < 10; i++ {
		clock = clock.Add(100 * time.Millisecond)
		require.NoError(t, svc.RecordVote(ctx, "3", "4"))
	}
	cache.AssertNumberOfCalls(t, "Increment", 1)

	clock = clock.Add(VoteTopInvalidationInterval)
	require.NoError(t, svc.RecordVote(ctx, "5", "6"))
	cache.AssertNumberOfCalls(t, "Increment", 2)
	repo.AssertNumberOfCalls(t, "MarkVoted", 12)
}

func TestVoteService_RecordVote_Validation(t *testing.T) {
	tests := []struct {
		name          string
		winner, loser string
	}{
		{"missing winner", "", "2"},
		{"missing loser", "1", "  "},
		{"same character", "7", "7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockCharacterRepository)
			svc := NewVoteService(repo, nil, nil)

			err := svc.RecordVote(context.Background(), tt.winner, tt.loser)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
			repo.AssertNotCalled(t, "MarkVoted", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestVoteService_RecordVote_UnknownCharacter(t *testing.T) {
	repo := new(MockCharacterRepository)
	cache := new(MockCacheRepository)
	repo.On("MarkVoted", mock.Anything, "1", "404").
		Return(fmt.Errorf("loser 404: %w", apperrors.ErrNotFound))

	svc := NewVoteService(repo, cache, nil)
	err := svc.RecordVote(context.Background(), "1", "404")

	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NotErrorIs(t, err, apperrors.ErrRepository)
	cache.AssertNotCalled(t, "Increment", mock.Anything, mock.Anything)
}

func TestVoteService_RecordVote_RepositoryFailure(t *testing.T) {
	repo := new(MockCharacterRepository)
	repo.On("MarkVoted", mock.Anything, "1", "2").Return(errors.New("deadlock detected"))

	svc := NewVoteService(repo, nil, nil)
	err := svc.RecordVote(context.Background(), "1", "2")

	assert.ErrorIs(t, err, apperrors.ErrRepository)
}

// Голос помечает только двух участников и не трогает остальные поля
func TestVoteService_RecordVote_Correctness(t *testing.T) {
	repo := newMemoryCharacterRepo(
		newCharacter("1", entity.GenderMale, 0.1),
		newCharacter("2", entity.GenderMale, 0.2),
		newCharacter("3", entity.GenderMale, 0.3),
	)
	before, _ := repo.GetByCharacterID(context.Background(), "1")

	svc := NewVoteService(repo, nil, nil)
	require.NoError(t, svc.RecordVote(context.Background(), "1", "2"))

	winner, _ := repo.GetByCharacterID(context.Background(), "1")
	loser, _ := repo.GetByCharacterID(context.Background(), "2")
	bystander, _ := repo.GetByCharacterID(context.Background(), "3")

	assert.True(t, winner.Voted)
	assert.True(t, loser.Voted)
	assert.False(t, bystander.Voted)
	assert.Equal(t, int64(1), winner.Wins)
	assert.Equal(t, int64(1), loser.Losses)
	assert.Equal(t, before.Name, winner.Name)
	assert.Equal(t, before.Random, winner.Random)

	// Повторный голос применяется снова
	require.NoError(t, svc.RecordVote(context.Background(), "1", "2"))
	winner, _ = repo.GetByCharacterID(context.Background(), "1")
	assert.Equal(t, int64(2), winner.Wins)
}
