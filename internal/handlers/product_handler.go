package handlers

import (
	"net/http"
	"strings"

	"mercury-erp/config"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
)

// ProductInput определяет структуру для входящих данных товара.
type ProductInput struct {
	Name       string  `json:"name" binding:"required"`
	CategoryID *uint   `json:"categoryId"`
	UnitPrice  float64 `json:"unitPrice"`
	TaxRate    float64 `json:"taxRate"`
}

// CreateProductHandler создает товар или услугу.
func CreateProductHandler(c *gin.Context) {
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	product := models.Product{
		Name:       input.Name,
		CategoryID: input.CategoryID,
		UnitPrice:  input.UnitPrice,
		TaxRate:    input.TaxRate,
	}
	if err := config.DB.Create(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать товар"})
		return
	}
	c.JSON(http.StatusCreated, product)
}

// ListProductsHandler возвращает товары с пагинацией и поиском.
func ListProductsHandler(c *gin.Context) {
	var products []models.Product
	var totalRows int64

	query := config.DB.Model(&models.Product{}).Preload("Category")
	if search := c.Query("search"); search != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if categoryID := c.Query("category_id"); categoryID != "" {
		query = query.Where("category_id = ?", categoryID)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("name asc").Find(&products).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить товары"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, products, totalRows))
}

// UpdateProductHandler обновляет товар.
func UpdateProductHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input ProductInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	var product models.Product
	if err := config.DB.First(&product, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Товар не найден"})
		return
	}
	product.Name = input.Name
	product.CategoryID = input.CategoryID
	product.UnitPrice = input.UnitPrice
	product.TaxRate = input.TaxRate
	if err := config.DB.Save(&product).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить товар"})
		return
	}
	c.JSON(http.StatusOK, product)
}

// DeleteProductHandler удаляет товар.
func DeleteProductHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if result := config.DB.Delete(&models.Product{}, id); result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось удалить товар"})
	} else if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Товар не найден"})
	} else {
		c.JSON(http.StatusOK, gin.H{"message": "Товар удален"})
	}
}

// CreateProductCategoriesHandler создает одну или несколько категорий.
func CreateProductCategoriesHandler(c *gin.Context) {
	var categories []models.ProductCategory
	if err := c.ShouldBindJSON(&categories); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := config.DB.Create(&categories).Error; err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Не удалось создать категории: " + err.Error()})
		return
	}
	c.JSON(http.StatusCreated, categories)
}

// ListProductCategoriesHandler возвращает все категории.
func ListProductCategoriesHandler(c *gin.Context) {
	var categories []models.ProductCategory
	if err := config.DB.Order("name asc").Find(&categories).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить категории"})
		return
	}
	if categories == nil {
		categories = make([]models.ProductCategory, 0)
	}
	c.JSON(http.StatusOK, categories)
}
