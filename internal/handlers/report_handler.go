package handlers

import (
	"fmt"
	"net/http"
	"time"

	"mercury-erp/config"
	"mercury-erp/internal/services"
	"mercury-erp/models"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

// ExportBudgetReportHandler выгружает отчет об исполнении бюджетов в Excel:
// по каждому подтвержденному бюджету план, факт по проведенным счетам
// поставщиков и процент исполнения.
func ExportBudgetReportHandler(c *gin.Context) {
	var budgets []models.Budget
	query := config.DB.Preload("AnalyticAccount").Where("status = ?", models.BudgetConfirmed)
	if accountID := c.Query("analyticAccountId"); accountID != "" {
		query = query.Where("analytic_account_id = ?", accountID)
	}
	if err := query.Order("start_date asc").Find(&budgets).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить бюджеты"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Исполнение бюджетов"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Бюджет", "Аналитический счет", "Период с", "Период по", "План", "Факт", "Исполнение, %", "Превышение"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	for i := range budgets {
		actual, err := services.ActualForBudget(config.DB, &budgets[i])
		if err != nil {
			respondError(c, err)
			return
		}
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), budgets[i].Name)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), budgets[i].AnalyticAccount.Code)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), budgets[i].StartDate.Format("02.01.2006"))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), budgets[i].EndDate.Format("02.01.2006"))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), budgets[i].BudgetedAmount)
		f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), actual)
		f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), services.AchievedPercent(actual, budgets[i].BudgetedAmount))
		if actual > budgets[i].BudgetedAmount+services.Epsilon {
			f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), "да")
		}
	}

	fileName := fmt.Sprintf("budget_report_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сформировать файл Excel"})
	}
}

// ExportJournalHandler выгружает журнал проводок за период в Excel.
func ExportJournalHandler(c *gin.Context) {
	query := config.DB.Model(&models.JournalEntry{}).Preload("Lines").Order("entry_date asc")
	if from := c.Query("from"); from != "" {
		fromDate, err := time.Parse("2006-01-02", from)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты from"})
			return
		}
		query = query.Where("entry_date >= ?", fromDate)
	}
	if to := c.Query("to"); to != "" {
		toDate, err := time.Parse("2006-01-02", to)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный формат даты to"})
			return
		}
		query = query.Where("entry_date <= ?", toDate)
	}

	var entries []models.JournalEntry
	if err := query.Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить проводки"})
		return
	}

	f := excelize.NewFile()
	sheetName := "Журнал проводок"
	index, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Проводка", "Дата", "Источник", "Счет", "Дебет", "Кредит"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	row := 2
	for _, entry := range entries {
		for _, line := range entry.Lines {
			f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), entry.Reference)
			f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), entry.EntryDate.Format("02.01.2006"))
			f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), entry.SourceType)
			f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), line.Account)
			f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), line.Debit)
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), line.Credit)
			row++
		}
	}

	fileName := fmt.Sprintf("journal_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	if err := f.Write(c.Writer); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сформировать файл Excel"})
	}
}
