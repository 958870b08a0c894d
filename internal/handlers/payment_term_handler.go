package handlers

import (
	"net/http"
	"sort"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/Knetic/govaluate"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// InstallmentInput - плановый платеж условий оплаты.
type InstallmentInput struct {
	Sequence  int    `json:"sequence"`
	DaysAfter int    `json:"daysAfter"`
	Formula   string `json:"formula" binding:"required"`
}

// PaymentTermInput - входящие данные условий оплаты.
type PaymentTermInput struct {
	Name         string             `json:"name" binding:"required"`
	Installments []InstallmentInput `json:"installments" binding:"required"`
}

// ScheduledPayment - строка рассчитанного графика платежей.
type ScheduledPayment struct {
	Sequence    int     `json:"sequence"`
	PaymentDate string  `json:"paymentDate"`
	Amount      float64 `json:"amount"`
}

// validateFormulas проверяет, что каждая формула компилируется и вычисляется
// на пробной сумме. Ошибка в формуле должна всплывать при сохранении условий,
// а не при первом расчете графика.
func validateFormulas(installments []InstallmentInput) error {
	parameters := map[string]interface{}{"total": 1000.0}
	for _, inst := range installments {
		expression, err := govaluate.NewEvaluableExpression(inst.Formula)
		if err != nil {
			return services.Validationf("ошибка в формуле %q: %v", inst.Formula, err)
		}
		result, err := expression.Evaluate(parameters)
		if err != nil {
			return services.Validationf("формула %q не вычисляется: %v", inst.Formula, err)
		}
		if _, ok := result.(float64); !ok {
			return services.Validationf("формула %q возвращает не число", inst.Formula)
		}
	}
	return nil
}

// BuildInstallmentSchedule рассчитывает график платежей по условиям оплаты:
// для каждого планового платежа вычисляется формула от общей суммы и дата
// относительно базовой.
func BuildInstallmentSchedule(db *gorm.DB, termID uint, total float64, baseDate time.Time) ([]ScheduledPayment, error) {
	var term models.PaymentTerm
	if err := db.Preload("Installments").First(&term, termID).Error; err != nil {
		return nil, services.NotFoundf("условие оплаты %d не найдено", termID)
	}

	installments := term.Installments
	sort.Slice(installments, func(i, j int) bool {
		return installments[i].Sequence < installments[j].Sequence
	})

	parameters := map[string]interface{}{"total": total}
	var schedule []ScheduledPayment
	for _, inst := range installments {
		expression, err := govaluate.NewEvaluableExpression(inst.Formula)
		if err != nil {
			return nil, services.Validationf("ошибка в формуле %q: %v", inst.Formula, err)
		}
		result, err := expression.Evaluate(parameters)
		if err != nil {
			return nil, services.Validationf("формула %q не вычисляется: %v", inst.Formula, err)
		}
		amount, ok := result.(float64)
		if !ok {
			return nil, services.Validationf("формула %q возвращает не число", inst.Formula)
		}
		schedule = append(schedule, ScheduledPayment{
			Sequence:    inst.Sequence,
			PaymentDate: baseDate.AddDate(0, 0, inst.DaysAfter).Format("2006-01-02"),
			Amount:      round2(amount),
		})
	}
	return schedule, nil
}

// CreatePaymentTermHandler создает условия оплаты с плановыми платежами.
func CreatePaymentTermHandler(c *gin.Context) {
	var input PaymentTermInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	if err := validateFormulas(input.Installments); err != nil {
		respondError(c, err)
		return
	}

	term := models.PaymentTerm{
		Name:              input.Name,
		InstallmentsCount: len(input.Installments),
	}
	for _, inst := range input.Installments {
		term.Installments = append(term.Installments, models.PaymentTermInstallment{
			Sequence:  inst.Sequence,
			DaysAfter: inst.DaysAfter,
			Formula:   inst.Formula,
		})
	}
	if err := config.DB.Create(&term).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось создать условия оплаты"})
		return
	}
	c.JSON(http.StatusCreated, term)
}

// UpdatePaymentTermHandler обновляет условия оплаты. Плановые платежи
// заменяются целиком: старые удаляются, новые создаются одной транзакцией.
func UpdatePaymentTermHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input PaymentTermInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	if err := validateFormulas(input.Installments); err != nil {
		respondError(c, err)
		return
	}

	var term models.PaymentTerm
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&term, id).Error; err != nil {
			return services.NotFoundf("условие оплаты %d не найдено", id)
		}
		term.Name = input.Name
		term.InstallmentsCount = len(input.Installments)
		if err := tx.Save(&term).Error; err != nil {
			return err
		}
		if err := tx.Where("payment_term_id = ?", term.ID).Delete(&models.PaymentTermInstallment{}).Error; err != nil {
			return err
		}
		term.Installments = nil
		for _, inst := range input.Installments {
			term.Installments = append(term.Installments, models.PaymentTermInstallment{
				PaymentTermID: term.ID,
				Sequence:      inst.Sequence,
				DaysAfter:     inst.DaysAfter,
				Formula:       inst.Formula,
			})
		}
		if len(term.Installments) == 0 {
			return nil
		}
		return tx.Create(&term.Installments).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, term)
}

// ListPaymentTermsHandler возвращает все условия оплаты.
func ListPaymentTermsHandler(c *gin.Context) {
	var terms []models.PaymentTerm
	if err := config.DB.Preload("Installments").Order("name asc").Find(&terms).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить условия оплаты"})
		return
	}
	c.JSON(http.StatusOK, terms)
}

// PreviewScheduleHandler рассчитывает график платежей по условиям оплаты для
// произвольной суммы и даты без привязки к заказу.
func PreviewScheduleHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var query struct {
		Total float64 `form:"total" binding:"required"`
		Date  string  `form:"date"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные параметры: " + err.Error()})
		return
	}
	baseDate := time.Now()
	if query.Date != "" {
		parsed, err := time.Parse("2006-01-02", query.Date)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты. Используйте YYYY-MM-DD."})
			return
		}
		baseDate = parsed
	}

	schedule, err := BuildInstallmentSchedule(config.DB, id, query.Total, baseDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"schedule": schedule})
}

// DeletePaymentTermHandler удаляет условия оплаты, если на них не ссылается
// ни один заказ.
func DeletePaymentTermHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var term models.PaymentTerm
		if err := tx.First(&term, id).Error; err != nil {
			return services.NotFoundf("условие оплаты %d не найдено", id)
		}
		var count int64
		if err := tx.Model(&models.SalesOrder{}).Where("payment_term_id = ?", term.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return services.Conflictf("условия оплаты %q используются в %d заказах", term.Name, count)
		}
		if err := tx.Where("payment_term_id = ?", term.ID).Delete(&models.PaymentTermInstallment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&term).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Условия оплаты удалены"})
}
