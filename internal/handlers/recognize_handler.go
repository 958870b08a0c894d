package handlers

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"mercury-erp/config"

	"github.com/gin-gonic/gin"
	"github.com/google/generative-ai-go/genai"
)

// RecognizeBillResponse - поля, извлекаемые из файла счета поставщика.
type RecognizeBillResponse struct {
	PartnerName   string `json:"partnerName"`
	TaxID         string `json:"taxId"`
	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
	TotalAmount   string `json:"totalAmount"`
}

// RecognizeBillHandler распознает данные из файла счета поставщика с помощью
// Gemini. Результат - черновые поля для формы, пользователь проверяет их
// перед созданием счета.
func RecognizeBillHandler(c *gin.Context) {
	if config.GeminiClient == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Распознавание счетов отключено: не задан GEMINI_API_KEY"})
		return
	}

	file, header, err := c.Request.FormFile("billFile")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Файл счета обязателен"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось прочитать файл"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 45*time.Second)
	defer cancel()

	prompt := []genai.Part{
		genai.Text("Извлеки из приложенного счета поставщика следующие поля и верни строго JSON без пояснений: " +
			"{\"partnerName\": \"\", \"taxId\": \"\", \"invoiceNumber\": \"\", \"invoiceDate\": \"гггг-мм-дд\", \"totalAmount\": \"0.00\"}"),
		&genai.Blob{MIMEType: header.Header.Get("Content-Type"), Data: data},
	}

	resp, err := config.GeminiClient.GenerateContent(ctx, prompt...)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка распознавания Gemini: " + err.Error()})
		return
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Gemini не вернул результат"})
		return
	}

	jsonResponse, ok := resp.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось преобразовать ответ Gemini в текст"})
		return
	}

	cleanJSON := strings.Trim(string(jsonResponse), "```json \n")
	c.Data(http.StatusOK, "application/json", []byte(cleanJSON))
}
