package handlers

import (
	"net/http"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// AutoRuleInput определяет структуру для входящих данных правила автоаналитики.
type AutoRuleInput struct {
	Name              string `json:"name"`
	PartnerTagID      *uint  `json:"partnerTagId"`
	PartnerID         *uint  `json:"partnerId"`
	ProductCategoryID *uint  `json:"productCategoryId"`
	ProductID         *uint  `json:"productId"`
	AnalyticAccountID uint   `json:"analyticAccountId" binding:"required"`
}

// CreateAutoRuleHandler создает правило. Правило без единого условия не
// существует: проверка выполняется здесь, при записи, а не при чтении.
func CreateAutoRuleHandler(c *gin.Context) {
	var input AutoRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	attrs := services.RuleAttributes{
		PartnerTagID:      input.PartnerTagID,
		PartnerID:         input.PartnerID,
		ProductCategoryID: input.ProductCategoryID,
		ProductID:         input.ProductID,
	}
	if err := services.ValidateRuleAttributes(attrs); err != nil {
		respondError(c, err)
		return
	}

	rule := models.AutoAnalyticalRule{
		Name:              input.Name,
		PartnerTagID:      input.PartnerTagID,
		PartnerID:         input.PartnerID,
		ProductCategoryID: input.ProductCategoryID,
		ProductID:         input.ProductID,
		AnalyticAccountID: input.AnalyticAccountID,
		Priority:          services.RulePriority(attrs),
		Status:            models.RuleDraft,
	}
	if err := config.DB.Create(&rule).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать правило"})
		return
	}
	c.JSON(http.StatusCreated, rule)
}

// UpdateAutoRuleHandler обновляет правило. Приоритет пересчитывается как
// чистая функция над объединенным набором атрибутов - включая те, что в этом
// запросе не менялись, - иначе он разъезжается с фактическим составом правила.
func UpdateAutoRuleHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input AutoRuleInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var rule models.AutoAnalyticalRule
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, id).Error; err != nil {
			return services.NotFoundf("правило %d не найдено", id)
		}
		if rule.Status == models.RuleArchived {
			return services.InvalidStatef("архивное правило не подлежит редактированию")
		}

		attrs := services.RuleAttributes{
			PartnerTagID:      input.PartnerTagID,
			PartnerID:         input.PartnerID,
			ProductCategoryID: input.ProductCategoryID,
			ProductID:         input.ProductID,
		}
		if err := services.ValidateRuleAttributes(attrs); err != nil {
			return err
		}

		rule.Name = input.Name
		rule.PartnerTagID = input.PartnerTagID
		rule.PartnerID = input.PartnerID
		rule.ProductCategoryID = input.ProductCategoryID
		rule.ProductID = input.ProductID
		rule.AnalyticAccountID = input.AnalyticAccountID
		rule.Priority = services.RulePriority(attrs)
		return tx.Save(&rule).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ListAutoRulesHandler возвращает правила, по убыванию приоритета.
func ListAutoRulesHandler(c *gin.Context) {
	var rules []models.AutoAnalyticalRule
	query := config.DB.Model(&models.AutoAnalyticalRule{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Order("priority desc, created_at desc").Find(&rules).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить правила"})
		return
	}
	if rules == nil {
		rules = make([]models.AutoAnalyticalRule, 0)
	}
	c.JSON(http.StatusOK, rules)
}

// ConfirmAutoRuleHandler переводит правило DRAFT -> CONFIRMED.
func ConfirmAutoRuleHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var rule models.AutoAnalyticalRule
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, id).Error; err != nil {
			return services.NotFoundf("правило %d не найдено", id)
		}
		if rule.Status != models.RuleDraft {
			return services.InvalidStatef("подтвердить можно только черновик правила, текущий статус %s", rule.Status)
		}
		rule.Status = models.RuleConfirmed
		return tx.Model(&rule).Update("status", models.RuleConfirmed).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// ArchiveAutoRuleHandler выводит правило из действия.
func ArchiveAutoRuleHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var rule models.AutoAnalyticalRule
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&rule, id).Error; err != nil {
			return services.NotFoundf("правило %d не найдено", id)
		}
		if rule.Status != models.RuleConfirmed {
			return services.InvalidStatef("архивировать можно только подтвержденное правило")
		}
		rule.Status = models.RuleArchived
		return tx.Model(&rule).Update("status", models.RuleArchived).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

// SuggestAnalyticHandler - пробный подбор аналитики по атрибутам строки.
// Используется UI для подсказки до сохранения документа.
func SuggestAnalyticHandler(c *gin.Context) {
	var input struct {
		PartnerID *uint `json:"partnerId"`
		ProductID *uint `json:"productId"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	accountID, err := services.SuggestAnalyticAccount(config.DB, input.PartnerID, input.ProductID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analyticAccountId": accountID})
}
