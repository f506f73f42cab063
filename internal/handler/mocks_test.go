package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type MockPairSelector struct{ mock.Mock }

func (m *MockPairSelector) SelectPair(ctx context.Context) ([]entity.Character, error) {
	args := m.Called(ctx)
	pair, _ := args.Get(0).([]entity.Character)
	return pair, args.Error(1)
}

type MockVoteRecorder struct{ mock.Mock }

func (m *MockVoteRecorder) RecordVote(ctx context.Context, winnerID, loserID string) error {
	return m.Called(ctx, winnerID, loserID).Error(0)
}

type MockRegistrar struct{ mock.Mock }

func (m *MockRegistrar) Register(ctx context.Context, name, gender string) (string, error) {
	args := m.Called(ctx, name, gender)
	return args.String(0), args.Error(1)
}

type MockCharacterService struct{ mock.Mock }

func (m *MockCharacterService) GetCharacter(ctx context.Context, characterID string) (*entity.Character, error) {
	args := m.Called(ctx, characterID)
	ch, _ := args.Get(0).(*entity.Character)
	return ch, args.Error(1)
}

func (m *MockCharacterService) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCharacterService) Top(ctx context.Context, filter repository.TopFilter) ([]entity.Character, error) {
	args := m.Called(ctx, filter)
	list, _ := args.Get(0).([]entity.Character)
	return list, args.Error(1)
}

func (m *MockCharacterService) ResetVotes(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCharacterService) Delete(ctx context.Context, characterID string) error {
	return m.Called(ctx, characterID).Error(0)
}

func (m *MockCharacterService) ExportRows(ctx context.Context) ([]entity.Character, error) {
	args := m.Called(ctx)
	list, _ := args.Get(0).([]entity.Character)
	return list, args.Error(1)
}

// performJSON выполняет запрос с JSON body через роутер
func performJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var req *http.Request
	if body != nil {
		bodyBytes, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(bodyBytes))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// performWithHeader выполняет запрос без тела с заданными заголовками
func performWithHeader(r http.Handler, method, path string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// parseMessage достает поле message из JSON ответа
func parseMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Response body should be valid JSON: %s", w.Body.String())
	msg, _ := resp["message"].(string)
	return msg
}

func testCharacter(id, name string, gender entity.Gender) entity.Character {
	return entity.Character{
		CharacterID: id,
		Name:        name,
		Race:        "Caldari",
		Bloodline:   "Achura",
		Gender:      gender,
		Random:      entity.NewRandomKey(0.5),
	}
}
