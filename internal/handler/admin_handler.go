package handler

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/yourusername/newedenfaces-api/internal/domain/entity"
	"github.com/yourusername/newedenfaces-api/internal/handler/dto"
	"github.com/yourusername/newedenfaces-api/internal/middleware"
)

// AdminService административные операции над пулом персонажей
type AdminService interface {
	ResetVotes(ctx context.Context) (int64, error)
	Delete(ctx context.Context, characterID string) error
	ExportRows(ctx context.Context) ([]entity.Character, error)
}

// AdminHandler обрабатывает запросы /api/admin
type AdminHandler struct {
	service AdminService
}

// NewAdminHandler создает новый административный обработчик
func NewAdminHandler(service AdminService) *AdminHandler {
	return &AdminHandler{service: service}
}

// ResetVotes обрабатывает POST /api/admin/characters/reset
func (h *AdminHandler) ResetVotes(c *gin.Context) {
	reset, err := h.service.ResetVotes(c.Request.Context())
	if err != nil {
		handleCharacterError(c, err)
		return
	}
	log.Printf("[AdminHandler] Пул голосования сброшен (%s): %d персонажей", c.GetString("admin_subject"), reset)
	c.JSON(http.StatusOK, dto.ResetResponse{Message: "Voting pool has been reset.", Reset: reset})
}

// DeleteCharacter обрабатывает DELETE /api/admin/characters/:id
func (h *AdminHandler) DeleteCharacter(c *gin.Context) {
	characterID := c.GetString(middleware.CharacterIDKey)

	if err := h.service.Delete(c.Request.Context(), characterID); err != nil {
		handleCharacterError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.MessageResponse{Message: fmt.Sprintf("Character %s has been deleted.", characterID)})
}

// ExportLeaderboard обрабатывает GET /api/admin/characters/export?format=csv|xlsx
func (h *AdminHandler) ExportLeaderboard(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		c.JSON(http.StatusBadRequest, dto.MessageResponse{Message: "Format must be csv or xlsx."})
		return
	}

	rows, err := h.service.ExportRows(c.Request.Context())
	if err != nil {
		handleCharacterError(c, err)
		return
	}

	filename := fmt.Sprintf("leaderboard_%s", time.Now().UTC().Format("20060102_150405"))
	if format == "xlsx" {
		h.exportXLSX(c, rows, filename)
		return
	}
	h.exportCSV(c, rows, filename)
}

var exportHeaders = []string{"Rank", "Character ID", "Name", "Race", "Bloodline", "Gender", "Wins", "Losses", "Win Ratio"}

func winRatioText(ch *entity.Character) string {
	return strconv.FormatFloat(ch.WinRatio()*100, 'f', 1, 64) + "%"
}

// exportCSV экспортирует рейтинг в CSV
func (h *AdminHandler) exportCSV(c *gin.Context, rows []entity.Character, filename string) {
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.csv\"", filename))

	// BOM для корректного отображения UTF-8 в Excel
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	defer writer.Flush()

	writer.Write(exportHeaders)

	for i := range rows {
		ch := &rows[i]
		writer.Write([]string{
			strconv.Itoa(i + 1),
			ch.CharacterID,
			sanitizeForExcel(ch.Name),
			sanitizeForExcel(ch.Race),
			sanitizeForExcel(ch.Bloodline),
			string(ch.Gender),
			strconv.FormatInt(ch.Wins, 10),
			strconv.FormatInt(ch.Losses, 10),
			winRatioText(ch),
		})
	}
}

// exportXLSX экспортирует рейтинг в Excel с использованием StreamWriter
func (h *AdminHandler) exportXLSX(c *gin.Context, rows []entity.Character, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Leaderboard"
	f.SetSheetName("Sheet1", sheetName)

	sw, err := f.NewStreamWriter(sheetName)
	if err != nil {
		log.Printf("[AdminHandler] Ошибка создания StreamWriter: %v", err)
		c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Failed to create Excel file."})
		return
	}

	headers := make([]interface{}, len(exportHeaders))
	for i, v := range exportHeaders {
		headers[i] = v
	}
	if err := sw.SetRow("A1", headers); err != nil {
		log.Printf("[AdminHandler] Ошибка записи заголовков: %v", err)
	}

	for i := range rows {
		ch := &rows[i]
		rowNum := i + 2 // 1 - заголовки
		row := []interface{}{
			i + 1,
			ch.CharacterID,
			sanitizeForExcel(ch.Name),
			sanitizeForExcel(ch.Race),
			sanitizeForExcel(ch.Bloodline),
			string(ch.Gender),
			ch.Wins,
			ch.Losses,
			winRatioText(ch),
		}
		if err := sw.SetRow(fmt.Sprintf("A%d", rowNum), row); err != nil {
			log.Printf("[AdminHandler] Ошибка записи строки %d: %v", rowNum, err)
		}
	}

	if err := sw.Flush(); err != nil {
		log.Printf("[AdminHandler] Ошибка при Flush: %v", err)
		c.JSON(http.StatusInternalServerError, dto.MessageResponse{Message: "Failed to create Excel file."})
		return
	}

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.xlsx\"", filename))
	if err := f.Write(c.Writer); err != nil {
		log.Printf("[AdminHandler] Ошибка записи Excel в response: %v", err)
	}
}

// sanitizeForExcel экранирует данные для защиты от formula injection в Excel/CSV
func sanitizeForExcel(s string) string {
	if len(s) == 0 {
		return s
	}
	// Символы, начинающие формулу в Excel/LibreOffice: = + - @ \t \r
	if s[0] == '=' || s[0] == '+' || s[0] == '-' || s[0] == '@' || s[0] == '\t' || s[0] == '\r' {
		return "'" + s
	}
	return s
}
