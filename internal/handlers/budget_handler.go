package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// budgetDashboardCacheKey - ключ кэша сводки исполнения бюджетов в Redis.
const budgetDashboardCacheKey = "budgets:dashboard"

// BudgetInput - входящие данные бюджета.
type BudgetInput struct {
	Name              string  `json:"name" binding:"required"`
	AnalyticAccountID uint    `json:"analyticAccountId" binding:"required"`
	StartDate         string  `json:"startDate" binding:"required"`
	EndDate           string  `json:"endDate" binding:"required"`
	BudgetedAmount    float64 `json:"budgetedAmount" binding:"required"`
}

func parseBudgetDates(c *gin.Context, in *BudgetInput) (start, end time.Time, ok bool) {
	start, err := time.Parse("2006-01-02", in.StartDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат startDate. Используйте YYYY-MM-DD."})
		return start, end, false
	}
	end, err = time.Parse("2006-01-02", in.EndDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат endDate. Используйте YYYY-MM-DD."})
		return start, end, false
	}
	if end.Before(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Дата окончания раньше даты начала"})
		return start, end, false
	}
	return start, end, true
}

func invalidateBudgetDashboard() {
	if config.RDB == nil {
		return
	}
	if err := config.RDB.Del(context.Background(), budgetDashboardCacheKey).Err(); err != nil {
		slog.Error("Не удалось сбросить кэш сводки бюджетов", "error", err)
	}
}

// CreateBudgetHandler создает бюджет в статусе DRAFT.
func CreateBudgetHandler(c *gin.Context) {
	var input BudgetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	start, end, ok := parseBudgetDates(c, &input)
	if !ok {
		return
	}

	var budget models.Budget
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var account models.AnalyticAccount
		if err := tx.First(&account, input.AnalyticAccountID).Error; err != nil {
			return services.NotFoundf("аналитический счет %d не найден", input.AnalyticAccountID)
		}
		budget = models.Budget{
			Name:              input.Name,
			AnalyticAccountID: input.AnalyticAccountID,
			StartDate:         start,
			EndDate:           end,
			BudgetedAmount:    input.BudgetedAmount,
			Status:            models.BudgetDraft,
			CreatedByID:       actorID(c),
		}
		return tx.Create(&budget).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, budget)
}

// UpdateBudgetHandler правит черновик бюджета. Подтвержденный бюджет
// неизменяем, его правят через ревизию.
func UpdateBudgetHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input BudgetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	start, end, ok := parseBudgetDates(c, &input)
	if !ok {
		return
	}

	var budget models.Budget
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&budget, id).Error; err != nil {
			return services.NotFoundf("бюджет %d не найден", id)
		}
		if budget.Status != models.BudgetDraft {
			return services.InvalidStatef("бюджет в статусе %s правится только через ревизию", budget.Status)
		}
		budget.Name = input.Name
		budget.AnalyticAccountID = input.AnalyticAccountID
		budget.StartDate = start
		budget.EndDate = end
		budget.BudgetedAmount = input.BudgetedAmount
		return tx.Save(&budget).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, budget)
}

// ConfirmBudgetHandler подтверждает бюджет. Пересечение периодов с другим
// подтвержденным бюджетом того же аналитического счета отклоняется.
func ConfirmBudgetHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var budget *models.Budget
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		budget, err = services.ConfirmBudget(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateBudgetDashboard()
	GlobalHub.BroadcastEvent("budget.confirmed", budget.Name, actorID(c))
	c.JSON(http.StatusOK, budget)
}

// ArchiveBudgetHandler переводит бюджет в архив.
func ArchiveBudgetHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var budget *models.Budget
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		budget, err = services.ArchiveBudget(tx, id)
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateBudgetDashboard()
	c.JSON(http.StatusOK, budget)
}

// ReviseBudgetHandler создает ревизию подтвержденного бюджета.
func ReviseBudgetHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var input BudgetInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Некорректные данные: " + err.Error()})
		return
	}
	start, end, ok := parseBudgetDates(c, &input)
	if !ok {
		return
	}

	var revision *models.Budget
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		revision, err = services.ReviseBudget(tx, id, services.ReviseBudgetInput{
			Name:           input.Name,
			StartDate:      start,
			EndDate:        end,
			BudgetedAmount: input.BudgetedAmount,
		}, actorID(c))
		return err
	})
	if err != nil {
		respondError(c, err)
		return
	}
	invalidateBudgetDashboard()
	c.JSON(http.StatusCreated, revision)
}

// GetBudgetHandler возвращает бюджет с фактом и процентом исполнения.
func GetBudgetHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var budget models.Budget
	if err := config.DB.Preload("AnalyticAccount").First(&budget, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Бюджет не найден"})
		return
	}
	actual, err := services.ActualForBudget(config.DB, &budget)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"budget":          budget,
		"actualAmount":    actual,
		"achievedPercent": services.AchievedPercent(actual, budget.BudgetedAmount),
	})
}

// ListBudgetsHandler возвращает бюджеты с фильтрами и пагинацией.
func ListBudgetsHandler(c *gin.Context) {
	var budgets []models.Budget
	var totalRows int64

	query := config.DB.Model(&models.Budget{}).Preload("AnalyticAccount")
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if accountID := c.Query("analyticAccountId"); accountID != "" {
		query = query.Where("analytic_account_id = ?", accountID)
	}

	query.Count(&totalRows)
	if err := query.Scopes(Paginate(c)).Order("created_at desc").Find(&budgets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить бюджеты"})
		return
	}
	c.JSON(http.StatusOK, CreatePaginatedResponse(c, budgets, totalRows))
}

// DeleteBudgetHandler удаляет черновик бюджета.
func DeleteBudgetHandler(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	err := config.DB.Transaction(func(tx *gorm.DB) error {
		var budget models.Budget
		if err := tx.First(&budget, id).Error; err != nil {
			return services.NotFoundf("бюджет %d не найден", id)
		}
		if budget.Status != models.BudgetDraft {
			return services.InvalidStatef("удалить можно только черновик бюджета, статус %s", budget.Status)
		}
		return tx.Delete(&budget).Error
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Бюджет удален"})
}

// budgetDashboardRow - строка сводки исполнения бюджетов.
type budgetDashboardRow struct {
	BudgetID        uint    `json:"budgetId"`
	Name            string  `json:"name"`
	AnalyticCode    string  `json:"analyticCode"`
	BudgetedAmount  float64 `json:"budgetedAmount"`
	ActualAmount    float64 `json:"actualAmount"`
	AchievedPercent float64 `json:"achievedPercent"`
	OverBudget      bool    `json:"overBudget"`
}

// BudgetDashboardHandler возвращает сводку исполнения по всем подтвержденным
// бюджетам. Результат кэшируется в Redis на пять минут, кэш сбрасывается при
// любом изменении статуса бюджета.
func BudgetDashboardHandler(c *gin.Context) {
	ctx := context.Background()

	if config.RDB != nil {
		cached, err := config.RDB.Get(ctx, budgetDashboardCacheKey).Result()
		if err == nil {
			var rows []budgetDashboardRow
			if json.Unmarshal([]byte(cached), &rows) == nil {
				c.JSON(http.StatusOK, gin.H{"rows": rows, "cached": true})
				return
			}
		} else if err != redis.Nil {
			slog.Error("Ошибка чтения кэша сводки бюджетов", "error", err)
		}
	}

	var budgets []models.Budget
	if err := config.DB.Preload("AnalyticAccount").
		Where("status = ?", models.BudgetConfirmed).
		Order("start_date asc").Find(&budgets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить бюджеты"})
		return
	}

	rows := make([]budgetDashboardRow, 0, len(budgets))
	for i := range budgets {
		actual, err := services.ActualForBudget(config.DB, &budgets[i])
		if err != nil {
			respondError(c, err)
			return
		}
		rows = append(rows, budgetDashboardRow{
			BudgetID:        budgets[i].ID,
			Name:            budgets[i].Name,
			AnalyticCode:    budgets[i].AnalyticAccount.Code,
			BudgetedAmount:  budgets[i].BudgetedAmount,
			ActualAmount:    actual,
			AchievedPercent: services.AchievedPercent(actual, budgets[i].BudgetedAmount),
			OverBudget:      actual > budgets[i].BudgetedAmount+services.Epsilon,
		})
	}

	if config.RDB != nil {
		if payload, err := json.Marshal(rows); err == nil {
			if err := config.RDB.Set(ctx, budgetDashboardCacheKey, payload, 5*time.Minute).Err(); err != nil {
				slog.Error("Не удалось записать кэш сводки бюджетов", "error", err)
			}
		}
	}
	c.JSON(http.StatusOK, gin.H{"rows": rows, "cached": false})
}
