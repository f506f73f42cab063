package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	"github.com/yourusername/newedenfaces-api/internal/identity"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
)

// ============================================================================
// Моки
// ============================================================================

// MockCharacterRepository реализует repository.CharacterRepository
type MockCharacterRepository struct {
	mock.Mock
}

func (m *MockCharacterRepository) Create(ctx context.Context, character *entity.Character) error {
	args := m.Called(ctx, character)
	return args.Error(0)
}

func (m *MockCharacterRepository) GetByCharacterID(ctx context.Context, characterID string) (*entity.Character, error) {
	args := m.Called(ctx, characterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Character), args.Error(1)
}

func (m *MockCharacterRepository) Delete(ctx context.Context, characterID string) error {
	args := m.Called(ctx, characterID)
	return args.Error(0)
}

func (m *MockCharacterRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCharacterRepository) SampleUnvoted(ctx context.Context, gender entity.Gender, near entity.RandomKey, limit int) ([]entity.Character, error) {
	args := m.Called(ctx, gender, near, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Character), args.Error(1)
}

func (m *MockCharacterRepository) MarkVoted(ctx context.Context, winnerID, loserID string) error {
	args := m.Called(ctx, winnerID, loserID)
	return args.Error(0)
}

func (m *MockCharacterRepository) ResetVoted(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCharacterRepository) Top(ctx context.Context, filter repository.TopFilter) ([]entity.Character, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Character), args.Error(1)
}

func (m *MockCharacterRepository) ListRanked(ctx context.Context) ([]entity.Character, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Character), args.Error(1)
}

// MockCacheRepository реализует repository.CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockCacheRepository) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCacheRepository) Increment(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) Decrement(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	args := m.Called(ctx, key, value, expiration)
	return args.Error(0)
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) error {
	args := m.Called(ctx, key, dest)
	return args.Error(0)
}

// MockIdentityClient реализует IdentityClient
type MockIdentityClient struct {
	mock.Mock
}

func (m *MockIdentityClient) LookupID(ctx context.Context, name string) (string, error) {
	args := m.Called(ctx, name)
	return args.String(0), args.Error(1)
}

func (m *MockIdentityClient) LookupProfile(ctx context.Context, characterID string) (identity.Profile, error) {
	args := m.Called(ctx, characterID)
	return args.Get(0).(identity.Profile), args.Error(1)
}

// ============================================================================
// Детерминированный Randomizer
// ============================================================================

// fixedRandomizer возвращает значения по кругу из заданных последовательностей
type fixedRandomizer struct {
	mu      sync.Mutex
	genders []entity.Gender
	floats  []float64
	gi, fi  int
}

func newFixedRandomizer(genders []entity.Gender, floats []float64) *fixedRandomizer {
	return &fixedRandomizer{genders: genders, floats: floats}
}

func (r *fixedRandomizer) Gender() entity.Gender {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := r.genders[r.gi%len(r.genders)]
	r.gi++
	return g
}

func (r *fixedRandomizer) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	f := r.floats[r.fi%len(r.floats)]
	r.fi++
	return f
}

// ============================================================================
// In-memory репозиторий для проверки свойств выбора пар и голосования
// ============================================================================

type memoryCharacterRepo struct {
	mu         sync.Mutex
	characters map[string]*entity.Character
	resets     int
}

func newMemoryCharacterRepo(characters ...entity.Character) *memoryCharacterRepo {
	repo := &memoryCharacterRepo{characters: make(map[string]*entity.Character)}
	for i := range characters {
		c := characters[i]
		repo.characters[c.CharacterID] = &c
	}
	return repo
}

func (r *memoryCharacterRepo) Create(_ context.Context, character *entity.Character) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.characters[character.CharacterID]; ok {
		return apperrors.ErrConflict
	}
	c := *character
	r.characters[c.CharacterID] = &c
	return nil
}

func (r *memoryCharacterRepo) GetByCharacterID(_ context.Context, characterID string) (*entity.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.characters[characterID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *memoryCharacterRepo) Delete(_ context.Context, characterID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.characters[characterID]; !ok {
		return apperrors.ErrNotFound
	}
	delete(r.characters, characterID)
	return nil
}

func (r *memoryCharacterRepo) Count(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.characters)), nil
}

func (r *memoryCharacterRepo) SampleUnvoted(_ context.Context, gender entity.Gender, near entity.RandomKey, limit int) ([]entity.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var pool []entity.Character
	for _, c := range r.characters {
		if !c.Voted && c.Gender == gender {
			pool = append(pool, *c)
		}
	}
	dist := func(c entity.Character) float64 {
		dx, dy := c.Random.X-near.X, c.Random.Y-near.Y
		return dx*dx + dy*dy
	}
	sort.Slice(pool, func(i, j int) bool {
		if dist(pool[i]) == dist(pool[j]) {
			return pool[i].CharacterID < pool[j].CharacterID
		}
		return dist(pool[i]) < dist(pool[j])
	})
	if len(pool) > limit {
		pool = pool[:limit]
	}
	return pool, nil
}

func (r *memoryCharacterRepo) MarkVoted(_ context.Context, winnerID, loserID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	winner, ok := r.characters[winnerID]
	if !ok {
		return apperrors.ErrNotFound
	}
	loser, ok := r.characters[loserID]
	if !ok {
		return apperrors.ErrNotFound
	}
	winner.Voted, winner.Wins = true, winner.Wins+1
	loser.Voted, loser.Losses = true, loser.Losses+1
	return nil
}

func (r *memoryCharacterRepo) ResetVoted(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, c := range r.characters {
		if c.Voted {
			c.Voted = false
			n++
		}
	}
	r.resets++
	return n, nil
}

func (r *memoryCharacterRepo) Top(_ context.Context, filter repository.TopFilter) ([]entity.Character, error) {
	ranked, _ := r.ListRanked(context.Background())
	var out []entity.Character
	for _, c := range ranked {
		if filter.Race != "" && c.Race != filter.Race {
			continue
		}
		if filter.Bloodline != "" && c.Bloodline != filter.Bloodline {
			continue
		}
		if filter.Gender != "" && c.Gender != filter.Gender {
			continue
		}
		out = append(out, c)
		if len(out) == filter.Limit {
			break
		}
	}
	return out, nil
}

func (r *memoryCharacterRepo) ListRanked(_ context.Context) ([]entity.Character, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Character, 0, len(r.characters))
	for _, c := range r.characters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wins != out[j].Wins {
			return out[i].Wins > out[j].Wins
		}
		return out[i].Losses < out[j].Losses
	})
	return out, nil
}

func (r *memoryCharacterRepo) votedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.characters {
		if c.Voted {
			n++
		}
	}
	return n
}

func newCharacter(id string, gender entity.Gender, x float64) entity.Character {
	return entity.Character{
		CharacterID: id,
		Name:        "Pilot " + id,
		Race:        "Caldari",
		Bloodline:   "Achura",
		Gender:      gender,
		Random:      entity.NewRandomKey(x),
	}
}
