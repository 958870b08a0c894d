package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"mercury-erp/internal/services"

	"github.com/gin-gonic/gin"
)

// respondError переводит типизированный отказ ядра в HTTP-ответ.
// Инфраструктурные ошибки хранилища отдаем как 500 - их безопасно повторять
// с теми же входными данными.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, services.ErrValidationFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// parseID читает числовой параметр пути.
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректный ID"})
		return 0, false
	}
	return uint(id), true
}

// actorID достает ID аутентифицированного пользователя из контекста.
// Ядро не аутентифицирует, оно только записывает актора на созданных записях.
func actorID(c *gin.Context) uint {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}
