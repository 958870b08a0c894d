package handlers

import (
	"net/http"
	"strings"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateSalesOrderHandler создает заказ покупателя в статусе DRAFT.
func CreateSalesOrderHandler(c *gin.Context) {
	var input OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	orderDate, err := time.Parse("2006-01-02", input.OrderDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}

	var order models.SalesOrder
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		var partner models.Partner
		if err := tx.First(&partner, input.PartnerID).Error; err != nil {
			return services.NotFoundf("контрагент %d не найден", input.PartnerID)
		}
		if !partner.IsCustomer {
			return services.Validationf("заказ покупателя требует контрагента-покупателя, а %q им не является", partner.Name)
		}
		if input.PaymentTermID != nil {
			var term models.PaymentTerm
			if err := tx.First(&term, *input.PaymentTermID).Error; err != nil {
				return services.NotFoundf("условие оплаты %d не найдено", *input.PaymentTermID)
			}
		}

		ref, err := services.NextReference(tx, services.SeqSalesOrder)
		if err != nil {
			return err
		}
		order = models.SalesOrder{
			Reference:     ref,
			PartnerID:     input.PartnerID,
			OrderDate:     orderDate,
			Status:        models.OrderDraft,
			PaymentTermID: input.PaymentTermID,
			Notes:         input.Notes,
			CreatedByID:   actorID(c),
		}
		for i := range input.Lines {
			desc, price, subtotal, analyticID, err := resolveLineDefaults(tx, input.PartnerID, &input.Lines[i])
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, models.SalesOrderLine{
				ProductID:         input.Lines[i].ProductID,
				Description:       desc,
				Quantity:          input.Lines[i].Quantity,
				UnitPrice:         price,
				Subtotal:          subtotal,
				AnalyticAccountID: analyticID,
			})
		}
		return tx.Create(&order).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// UpdateSalesOrderHandler правит черновик заказа покупателя.
func UpdateSalesOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input OrderInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	orderDate, err := time.Parse("2006-01-02", input.OrderDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}

	var order models.SalesOrder
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			return services.NotFoundf("заказ покупателя %d не найден", id)
		}
		if err := services.EnsureEditable(order.Status); err != nil {
			return err
		}

		order.PartnerID = input.PartnerID
		order.OrderDate = orderDate
		order.PaymentTermID = input.PaymentTermID
		order.Notes = input.Notes
		if err := tx.Save(&order).Error; err != nil {
			return err
		}

		if err := tx.Where("order_id = ?", order.ID).Delete(&models.SalesOrderLine{}).Error; err != nil {
			return err
		}
		order.Lines = nil
		for i := range input.Lines {
			desc, price, subtotal, analyticID, err := resolveLineDefaults(tx, input.PartnerID, &input.Lines[i])
			if err != nil {
				return err
			}
			order.Lines = append(order.Lines, models.SalesOrderLine{
				OrderID:           order.ID,
				ProductID:         input.Lines[i].ProductID,
				Description:       desc,
				Quantity:          input.Lines[i].Quantity,
				UnitPrice:         price,
				Subtotal:          subtotal,
				AnalyticAccountID: analyticID,
			})
		}
		if len(order.Lines) == 0 {
			return nil
		}
		return tx.Create(&order.Lines).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// ConfirmSalesOrderHandler подтверждает заказ покупателя.
func ConfirmSalesOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order *models.SalesOrder
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = services.ConfirmSalesOrder(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("sales_order.confirmed", order.Reference, actorID(c))
	c.JSON(http.StatusOK, order)
}

// CancelSalesOrderHandler отменяет подтвержденный заказ покупателя.
func CancelSalesOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order *models.SalesOrder
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		order, err = services.CancelSalesOrder(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("sales_order.cancelled", order.Reference, actorID(c))
	c.JSON(http.StatusOK, order)
}

// GetSalesOrderHandler возвращает заказ покупателя со строками и, если
// задано условие оплаты, рассчитанным графиком платежей.
func GetSalesOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var order models.SalesOrder
	if err := config.DB.Preload("Lines").Preload("Partner").First(&order, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Заказ покупателя не найден"})
		return
	}

	response := gin.H{"order": order}
	if order.PaymentTermID != nil {
		var total float64
		for _, line := range order.Lines {
			total += line.Subtotal
		}
		schedule, err := BuildInstallmentSchedule(config.DB, *order.PaymentTermID, total, order.OrderDate)
		if err == nil {
			response["paymentSchedule"] = schedule
		}
	}
	c.JSON(http.StatusOK, response)
}

// ListSalesOrdersHandler возвращает заказы покупателей с пагинацией.
func ListSalesOrdersHandler(c *gin.Context) {
	var orders []models.SalesOrder
	var totalRows int64

	query := config.DB.Model(&models.SalesOrder{}).Preload("Partner")
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN partners ON partners.id = sales_orders.partner_id").
			Where("LOWER(sales_orders.reference) LIKE ? OR LOWER(partners.name) LIKE ?", pattern, pattern)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("sales_orders.status = ?", status)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("sales_orders.created_at desc").Find(&orders).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить заказы"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, orders, totalRows))
}

// DeleteSalesOrderHandler удаляет заказ покупателя в черновике или отмене.
func DeleteSalesOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var order models.SalesOrder
		if err := tx.First(&order, id).Error; err != nil {
			return services.NotFoundf("заказ покупателя %d не найден", id)
		}
		if order.Status == models.OrderConfirmed {
			return services.InvalidStatef("подтвержденный заказ %s нельзя удалить, только отменить", order.Reference)
		}
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.SalesOrderLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Заказ удален"})
}
