package handler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/domain/repository"
	"github.com/yourusername/newedenfaces-api/internal/handler/dto"
	"github.com/yourusername/newedenfaces-api/internal/identity"
	"github.com/yourusername/newedenfaces-api/internal/middleware"
	apperrors "github.com/yourusername/newedenfaces-api/internal/pkg/errors"
	"github.com/yourusername/newedenfaces-api/internal/service"
)

// PairSelector выбирает следующую пару для сравнения
type PairSelector interface {
	SelectPair(ctx context.Context) ([]entity.Character, error)
}

// VoteRecorder фиксирует результат сравнения
type VoteRecorder interface {
	RecordVote(ctx context.Context, winnerID, loserID string) error
}

// Registrar регистрирует новых персонажей
type Registrar interface {
	Register(ctx context.Context, name, gender string) (string, error)
}

// CharacterReader публичное чтение рейтинга
type CharacterReader interface {
	GetCharacter(ctx context.Context, characterID string) (*entity.Character, error)
	Count(ctx context.Context) (int64, error)
	Top(ctx context.Context, filter repository.TopFilter) ([]entity.Character, error)
}

// CharacterHandler обрабатывает публичные запросы /api/characters
type CharacterHandler struct {
	pairs      PairSelector
	votes      VoteRecorder
	registrar  Registrar
	characters CharacterReader
}

// NewCharacterHandler создает новый обработчик персонажей
func NewCharacterHandler(pairs PairSelector, votes VoteRecorder, registrar Registrar, characters CharacterReader) *CharacterHandler {
	return &CharacterHandler{
		pairs:      pairs,
		votes:      votes,
		registrar:  registrar,
		characters: characters,
	}
}

// GetPair обрабатывает GET /api/characters
func (h *CharacterHandler) GetPair(c *gin.Context) {
	h.respondWithPair(c)
}

// Vote обрабатывает PUT /api/characters: голос, затем новая пара
func (h *CharacterHandler) Vote(c *gin.Context) {
	var req dto.VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Winner and loser are required."})
		return
	}

	if err := h.votes.RecordVote(c.Request.Context(), req.Winner, req.Loser); err != nil {
		handleCharacterError(c, err)
		return
	}

	h.respondWithPair(c)
}

func (h *CharacterHandler) respondWithPair(c *gin.Context) {
	pair, err := h.pairs.SelectPair(c.Request.Context())
	if err != nil {
		handleCharacterError(c, err)
		return
	}
	if pair == nil {
		pair = []entity.Character{}
	}
	c.JSON(http.StatusOK, pair)
}

// Register обрабатывает POST /api/characters
func (h *CharacterHandler) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Name and gender are required."})
		return
	}

	message, err := h.registrar.Register(c.Request.Context(), req.Name, req.Gender)
	if err != nil {
		handleCharacterError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.MessageResponse{Message: message})
}

// Count обрабатывает GET /api/characters/count
func (h *CharacterHandler) Count(c *gin.Context) {
	count, err := h.characters.Count(c.Request.Context())
	if err != nil {
		handleCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CountResponse{Count: count})
}

// Top обрабатывает GET /api/characters/top
func (h *CharacterHandler) Top(c *gin.Context) {
	var query dto.TopQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Invalid query parameters."})
		return
	}

	characters, err := h.characters.Top(c.Request.Context(), repository.TopFilter{
		Race:      query.Race,
		Bloodline: query.Bloodline,
		Gender:    entity.Gender(query.Gender),
		Limit:     query.Limit,
	})
	if err != nil {
		handleCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, characters)
}

// GetCharacter обрабатывает GET /api/characters/:id
func (h *CharacterHandler) GetCharacter(c *gin.Context) {
	characterID := c.GetString(middleware.CharacterIDKey)

	character, err := h.characters.GetCharacter(c.Request.Context(), characterID)
	if err != nil {
		handleCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, character)
}

// handleCharacterError переводит ошибки сервисов в HTTP-ответ {"message": ...}.
// Внутренние детали клиенту не отдаются.
func handleCharacterError(c *gin.Context, err error) {
	var duplicate *service.DuplicateError
	var registration *service.RegistrationError

	switch {
	case errors.Is(err, apperrors.ErrValidation):
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: service.ValidationMessage(err)})
	case errors.As(err, &duplicate):
		c.JSON(http.StatusConflict, dto.MessageResponse{Message: duplicate.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.MessageResponse{Message: "Character not found."})
	case errors.As(err, &registration) && errors.Is(err, identity.ErrParse):
		log.Printf("[CharacterHandler] Персонаж не распознан: %v", err)
		c.JSON(http.StatusBadRequest, dto.MessageResponse{
			Message: fmt.Sprintf("%s is not a registered citizen of New Eden.", registration.Name),
		})
	case errors.Is(err, identity.ErrTransport):
		log.Printf("[CharacterHandler] EVE API недоступен: %v", err)
		c.JSON(http.StatusBadGateway, dto.MessageResponse{Message: "Failed to reach the EVE identity service."})
	default:
		log.Printf("ERROR: Internal server error in CharacterHandler: %v", err)
		c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Internal server error."})
	}
}
