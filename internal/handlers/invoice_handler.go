package handlers

import (
	"encoding/csv"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/divan/num2words"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InvoiceInput - входящие данные счета.
type InvoiceInput struct {
	Type        string           `json:"type" binding:"required"`
	PartnerID   uint             `json:"partnerId" binding:"required"`
	InvoiceDate string           `json:"invoiceDate" binding:"required"`
	Lines       []OrderLineInput `json:"lines" binding:"required"`
}

func invoiceSequenceCode(invoiceType string) (string, error) {
	switch invoiceType {
	case models.InvoiceVendorBill:
		return services.SeqVendorBill, nil
	case models.InvoiceCustomerInvoice:
		return services.SeqCustomerInvoice, nil
	default:
		return "", services.Validationf("неизвестный тип счета %q", invoiceType)
	}
}

// buildInvoiceLines собирает строки счета из запроса: подставляет данные
// товара, пересчитывает подытоги и подбирает аналитику по правилам.
// Возвращает также итоговую сумму счета.
func buildInvoiceLines(tx *gorm.DB, partnerID uint, inputs []OrderLineInput) ([]models.InvoiceLine, float64, error) {
	var lines []models.InvoiceLine
	var total float64
	for i := range inputs {
		desc, price, subtotal, analyticID, err := resolveLineDefaults(tx, partnerID, &inputs[i])
		if err != nil {
			return nil, 0, err
		}
		lines = append(lines, models.InvoiceLine{
			ProductID:         inputs[i].ProductID,
			Description:       desc,
			Quantity:          inputs[i].Quantity,
			UnitPrice:         price,
			Subtotal:          subtotal,
			AnalyticAccountID: analyticID,
		})
		total += subtotal
	}
	return lines, round2(total), nil
}

// CreateInvoiceHandler создает счет в статусе DRAFT.
func CreateInvoiceHandler(c *gin.Context) {
	var input InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	invoiceDate, err := time.Parse("2006-01-02", input.InvoiceDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}

	var invoice models.Invoice
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		seqCode, err := invoiceSequenceCode(input.Type)
		if err != nil {
			return err
		}
		var partner models.Partner
		if err := tx.First(&partner, input.PartnerID).Error; err != nil {
			return services.NotFoundf("контрагент %d не найден", input.PartnerID)
		}
		if input.Type == models.InvoiceVendorBill && !partner.IsVendor {
			return services.Validationf("счет поставщика требует контрагента-поставщика, а %q им не является", partner.Name)
		}
		if input.Type == models.InvoiceCustomerInvoice && !partner.IsCustomer {
			return services.Validationf("счет покупателю требует контрагента-покупателя, а %q им не является", partner.Name)
		}

		lines, total, err := buildInvoiceLines(tx, input.PartnerID, input.Lines)
		if err != nil {
			return err
		}
		ref, err := services.NextReference(tx, seqCode)
		if err != nil {
			return err
		}
		invoice = models.Invoice{
			Reference:    ref,
			Type:         input.Type,
			PartnerID:    input.PartnerID,
			InvoiceDate:  invoiceDate,
			Status:       models.InvoiceDraft,
			PaymentState: models.PaymentStateNotPaid,
			TotalAmount:  total,
			CreatedByID:  actorID(c),
			Lines:        lines,
		}
		return tx.Create(&invoice).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// CreateInvoiceFromOrderHandler создает черновик счета поставщика из
// подтвержденного заказа, перенося строки вместе с аналитикой.
func CreateInvoiceFromOrderHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var invoice models.Invoice
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var order models.PurchaseOrder
		if err := tx.Preload("Lines").First(&order, id).Error; err != nil {
			return services.NotFoundf("заказ поставщику %d не найден", id)
		}
		if order.Status != models.OrderConfirmed {
			return services.InvalidStatef("счет можно выставить только по подтвержденному заказу, статус %s", order.Status)
		}

		ref, err := services.NextReference(tx, services.SeqVendorBill)
		if err != nil {
			return err
		}
		invoice = models.Invoice{
			Reference:    ref,
			Type:         models.InvoiceVendorBill,
			PartnerID:    order.PartnerID,
			InvoiceDate:  time.Now(),
			Status:       models.InvoiceDraft,
			PaymentState: models.PaymentStateNotPaid,
			CreatedByID:  actorID(c),
		}
		var total float64
		for _, line := range order.Lines {
			invoice.Lines = append(invoice.Lines, models.InvoiceLine{
				ProductID:         line.ProductID,
				Description:       line.Description,
				Quantity:          line.Quantity,
				UnitPrice:         line.UnitPrice,
				Subtotal:          line.Subtotal,
				AnalyticAccountID: line.AnalyticAccountID,
			})
			total += line.Subtotal
		}
		invoice.TotalAmount = round2(total)
		return tx.Create(&invoice).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, invoice)
}

// UpdateInvoiceHandler правит черновик счета. Строки заменяются целиком,
// итог пересчитывается. Проведенный счет неизменяем.
func UpdateInvoiceHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input InvoiceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	invoiceDate, err := time.Parse("2006-01-02", input.InvoiceDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
		return
	}

	var invoice models.Invoice
	err = config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&invoice, id).Error; err != nil {
			return services.NotFoundf("счет %d не найден", id)
		}
		if invoice.Status != models.InvoiceDraft {
			return services.InvalidStatef("проведенный счет %s неизменяем", invoice.Reference)
		}

		lines, total, err := buildInvoiceLines(tx, input.PartnerID, input.Lines)
		if err != nil {
			return err
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		invoice.PartnerID = input.PartnerID
		invoice.InvoiceDate = invoiceDate
		invoice.TotalAmount = total
		invoice.Lines = nil
		if err := tx.Save(&invoice).Error; err != nil {
			return err
		}
		for i := range lines {
			lines[i].InvoiceID = invoice.ID
		}
		invoice.Lines = lines
		if len(lines) == 0 {
			return nil
		}
		return tx.Create(&invoice.Lines).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

// PostInvoiceHandler проводит счет: строит сбалансированную проводку,
// переводит счет в POSTED и возвращает влияние на бюджеты. Превышение
// бюджета проводку не блокирует, оно возвращается как предупреждение.
func PostInvoiceHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var result *services.PostInvoiceResult
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = services.PostInvoice(tx, id, actorID(c))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	GlobalHub.BroadcastEvent("invoice.posted", result.Invoice.Reference, actorID(c))
	c.JSON(http.StatusOK, gin.H{
		"invoice":        result.Invoice,
		"journalEntry":   result.JournalEntry,
		"budgetImpacts":  result.BudgetImpacts,
		"budgetWarnings": result.BudgetWarnings(),
	})
}

// amountInWords переводит сумму в словесную форму для печатной формы счета.
func amountInWords(amount float64) string {
	whole := int(amount)
	cents := int(math.Round((amount - float64(whole)) * 100))
	return fmt.Sprintf("%s and %02d/100", num2words.Convert(whole), cents)
}

// GetInvoiceHandler возвращает счет со строками, остатком к оплате и
// суммой прописью.
func GetInvoiceHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var invoice models.Invoice
	if err := config.DB.Preload("Lines").Preload("Partner").First(&invoice, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Счет не найден"})
		return
	}
	outstanding, err := services.Outstanding(config.DB, invoice.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"invoice":       invoice,
		"outstanding":   outstanding,
		"amountInWords": amountInWords(invoice.TotalAmount),
	})
}

// ListInvoicesHandler возвращает счета с фильтрами и пагинацией.
func ListInvoicesHandler(c *gin.Context) {
	var invoices []models.Invoice
	var totalRows int64

	query := config.DB.Model(&models.Invoice{}).Preload("Partner")
	if invoiceType := c.Query("type"); invoiceType != "" {
		query = query.Where("invoices.type = ?", invoiceType)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("invoices.status = ?", status)
	}
	if paymentState := c.Query("paymentState"); paymentState != "" {
		query = query.Where("invoices.payment_state = ?", paymentState)
	}
	if search := c.Query("search"); search != "" {
		pattern := "%" + strings.ToLower(search) + "%"
		query = query.Joins("JOIN partners ON partners.id = invoices.partner_id").
			Where("LOWER(invoices.reference) LIKE ? OR LOWER(partners.name) LIKE ?", pattern, pattern)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("invoices.created_at desc").Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить счета"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, invoices, totalRows))
}

// DeleteInvoiceHandler удаляет черновик счета. Проведенный счет удалить
// нельзя: проводка уже в журнале.
func DeleteInvoiceHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var invoice models.Invoice
		if err := tx.First(&invoice, id).Error; err != nil {
			return services.NotFoundf("счет %d не найден", id)
		}
		if invoice.Status == models.InvoicePosted {
			return services.InvalidStatef("проведенный счет %s удалить нельзя", invoice.Reference)
		}
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceLine{}).Error; err != nil {
			return err
		}
		return tx.Delete(&invoice).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Счет удален"})
}

// DownloadInvoiceArchiveHandler выгружает счета за период в CSV.
func DownloadInvoiceArchiveHandler(c *gin.Context) {
	query := config.DB.Model(&models.Invoice{}).Preload("Partner").Order("invoice_date asc")
	if from := c.Query("from"); from != "" {
		fromDate, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты from"})
			return
		}
		query = query.Where("invoice_date >= ?", fromDate)
	}
	if to := c.Query("to"); to != "" {
		toDate, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты to"})
			return
		}
		query = query.Where("invoice_date <= ?", toDate)
	}

	var invoices []models.Invoice
	if err := query.Find(&invoices).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить счета"})
		return
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", `attachment; filename="invoices.csv"`)
	writer := csv.NewWriter(c.Writer)
	writer.Write([]string{"Reference", "Type", "Partner", "Date", "Status", "PaymentState", "Total"})
	for _, inv := range invoices {
		writer.Write([]string{
			inv.Reference,
			inv.Type,
			inv.Partner.Name,
			inv.InvoiceDate.Format("2006-01-02"),
			inv.Status,
			inv.PaymentState,
			fmt.Sprintf("%.2f", inv.TotalAmount),
		})
	}
	writer.Flush()
}
