// mercury-erp/config/settings.go
package config

import (
	"log/slog"
	"os"
)

// JwtKey - секрет для подписи токенов аутентификации.
var JwtKey []byte

// GatewaySecret - общий секрет платежного шлюза. Сама проверка HMAC-подписи
// выполняется на стороне шлюза, мы лишь получаем итог (signatureValid).
var GatewaySecret string

// GeminiAPIKey - ключ для распознавания счетов. Пустое значение отключает функцию.
var GeminiAPIKey string

func LoadSettings() {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		slog.Error("Критическая ошибка: переменная окружения JWT_SECRET не установлена.")
		os.Exit(1)
	}
	JwtKey = []byte(secret)

	GatewaySecret = os.Getenv("GATEWAY_SECRET")
	if GatewaySecret == "" {
		slog.Warn("GATEWAY_SECRET не установлен, вебхук платежного шлюза будет отклонять запросы.")
	}

	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if GeminiAPIKey == "" {
		slog.Warn("GEMINI_API_KEY не установлен, распознавание счетов отключено.")
	}
}
