package handlers

import (
	"net/http"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AnalyticAccountInput определяет структуру для входящих данных центра затрат.
type AnalyticAccountInput struct {
	Code     string `json:"code" binding:"required"`
	Name     string `json:"name" binding:"required"`
	ParentID *uint  `json:"parentId"`
}

// CreateAnalyticAccountHandler создает центр затрат в статусе DRAFT.
func CreateAnalyticAccountHandler(c *gin.Context) {
	var input AnalyticAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var account models.AnalyticAccount
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		account = models.AnalyticAccount{
			Code:     input.Code,
			Name:     input.Name,
			ParentID: input.ParentID,
			Status:   models.AnalyticDraft,
		}
		if input.ParentID != nil {
			var parent models.AnalyticAccount
			if err := tx.First(&parent, *input.ParentID).Error; err != nil {
				return services.NotFoundf("родительский аналитический счет %d не найден", *input.ParentID)
			}
		}
		return tx.Create(&account).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, account)
}

// ListAnalyticAccountsHandler возвращает дерево центров затрат плоским списком.
func ListAnalyticAccountsHandler(c *gin.Context) {
	var accounts []models.AnalyticAccount
	query := config.DB.Model(&models.AnalyticAccount{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("code asc").Find(&accounts).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить аналитические счета"})
		return
	}
	if accounts == nil {
		accounts = make([]models.AnalyticAccount, 0)
	}
	c.JSON(http.StatusOK, accounts)
}

// UpdateAnalyticAccountHandler правит центр затрат. Разрешено только в DRAFT;
// смена родителя проходит проверку на цикл в той же транзакции.
func UpdateAnalyticAccountHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input AnalyticAccountInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var account models.AnalyticAccount
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&account, id).Error; err != nil {
			return services.NotFoundf("аналитический счет %d не найден", id)
		}
		if account.Status != models.AnalyticDraft {
			return services.InvalidStatef("аналитический счет %s в статусе %s не подлежит редактированию",
				account.Code, account.Status)
		}
		if err := services.EnsureNoAncestorCycle(tx, account.ID, input.ParentID); err != nil {
			return err
		}
		account.Code = input.Code
		account.Name = input.Name
		account.ParentID = input.ParentID
		return tx.Save(&account).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// ConfirmAnalyticAccountHandler подтверждает центр затрат.
func ConfirmAnalyticAccountHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var account *models.AnalyticAccount
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = services.ConfirmAnalyticAccount(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// ArchiveAnalyticAccountHandler архивирует подтвержденный центр затрат.
func ArchiveAnalyticAccountHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var account *models.AnalyticAccount
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		account, err = services.ArchiveAnalyticAccount(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, account)
}

// DeleteAnalyticAccountHandler удаляет черновик центра затрат.
func DeleteAnalyticAccountHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var account models.AnalyticAccount
		if err := tx.First(&account, id).Error; err != nil {
			return services.NotFoundf("аналитический счет %d не найден", id)
		}
		if account.Status != models.AnalyticDraft {
			return services.InvalidStatef("удалять можно только черновики аналитических счетов")
		}
		var children int64
		if err := tx.Model(&models.AnalyticAccount{}).Where("parent_id = ?", id).Count(&children).Error; err != nil {
			return err
		}
		if children > 0 {
			return services.Conflictf("у счета %s есть дочерние счета, удаление запрещено", account.Code)
		}
		return tx.Delete(&account).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Аналитический счет удален"})
}
