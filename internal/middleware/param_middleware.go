package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

// CharacterIDKey ключ контекста gin для проверенного characterId
const CharacterIDKey = "characterID"

// ExtractCharacterIDParam создает middleware для извлечения и валидации characterId из URL.
// Идентификаторы EVE числовые, поэтому все остальное отклоняется с 400 до обращения к базе.
func ExtractCharacterIDParam(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.Param(paramName))
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"message": fmt.Sprintf("Invalid %s.", paramName)})
			return
		}
		// Храним в каноническом строковом виде, как в базе
		c.Set(CharacterIDKey, strconv.FormatUint(id, 10))
		c.Next()
	}
}
