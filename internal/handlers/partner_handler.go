package handlers

import (
	"net/http"
	"strings"

	"mercury-erp/config"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// PartnerInput определяет структуру для входящих данных контрагента.
type PartnerInput struct {
	Name         string `json:"name" binding:"required"`
	Bin          string `json:"bin"`
	IsVendor     bool   `json:"isVendor"`
	IsCustomer   bool   `json:"isCustomer"`
	PartnerTagID *uint  `json:"partnerTagId"`
}

// CreatePartnerHandler создает нового контрагента.
func CreatePartnerHandler(c *gin.Context) {
	var input PartnerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	if !input.IsVendor && !input.IsCustomer {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Контрагент должен быть поставщиком, покупателем или обоими сразу"})
		return
	}

	partner := models.Partner{
		Name:         input.Name,
		Bin:          input.Bin,
		IsVendor:     input.IsVendor,
		IsCustomer:   input.IsCustomer,
		PartnerTagID: input.PartnerTagID,
	}
	if err := config.DB.Create(&partner).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать контрагента"})
		return
	}
	c.JSON(http.StatusCreated, partner)
}

// ListPartnersHandler возвращает контрагентов с пагинацией и поиском по имени/БИН.
func ListPartnersHandler(c *gin.Context) {
	var partners []models.Partner
	var totalRows int64

	query := config.DB.Model(&models.Partner{}).Preload("PartnerTag")
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR bin LIKE ?", pattern, pattern)
	}
	if role := c.Query("role"); role == "vendor" {
		query = query.Where("is_vendor = ?", true)
	} else if role == "customer" {
		query = query.Where("is_customer = ?", true)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("name asc").Find(&partners).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить контрагентов"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, partners, totalRows))
}

// GetPartnerHandler возвращает одного контрагента.
func GetPartnerHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var partner models.Partner
	if err := config.DB.Preload("PartnerTag").First(&partner, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Контрагент не найден"})
		return
	}
	c.JSON(http.StatusOK, partner)
}

// UpdatePartnerHandler обновляет контрагента.
func UpdatePartnerHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input PartnerInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}

	var partner models.Partner
	if err := config.DB.First(&partner, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Контрагент не найден"})
		return
	}

	partner.Name = input.Name
	partner.Bin = input.Bin
	partner.IsVendor = input.IsVendor
	partner.IsCustomer = input.IsCustomer
	partner.PartnerTagID = input.PartnerTagID
	if err := config.DB.Save(&partner).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить контрагента"})
		return
	}
	c.JSON(http.StatusOK, partner)
}

// DeletePartnerHandler удаляет контрагента, если на нем нет документов.
func DeletePartnerHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var count int64
	if err := config.DB.Model(&models.Invoice{}).Where("partner_id = ?", id).Count(&count).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка проверки связанных счетов"})
		return
	}
	if count > 0 {
		c.JSON(http.StatusConflict, gin.H{"error": "Нельзя удалить контрагента: у него есть счета"})
		return
	}

	if result := config.DB.Delete(&models.Partner{}, id); result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить контрагента"})
	} else if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Контрагент не найден"})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Контрагент успешно удален"})
	}
}

// CreatePartnerTagsHandler создает одну или несколько меток контрагентов.
func CreatePartnerTagsHandler(c *gin.Context) {
	var tags []models.PartnerTag
	if err := c.ShouldBindJSON(&tags); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := config.DB.Create(&tags).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Не удалось создать метки: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, tags)
}

// ListPartnerTagsHandler возвращает все метки контрагентов.
func ListPartnerTagsHandler(c *gin.Context) {
	var tags []models.PartnerTag
	if err := config.DB.Order("name asc").Find(&tags).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить метки"})
		return
	}
	if tags == nil {
		tags = make([]models.PartnerTag, 0)
	}
	c.JSON(http.StatusOK, tags)
}

// DeletePartnerTagHandler удаляет метку, отвязывая ее от контрагентов.
func DeletePartnerTagHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Partner{}).Where("partner_tag_id = ?", id).
			Update("partner_tag_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.PartnerTag{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить метку"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Метка удалена"})
}
