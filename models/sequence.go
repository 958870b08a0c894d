package models

// Sequence - счетчик для генерации человекочитаемых номеров документов
// (PO, SO, BILL, INV, PAY). Инкремент выполняется под блокировкой строки
// внутри транзакции вызывающего; счетчик в памяти процесса недопустим,
// он ломается при нескольких параллельных писателях.
type Sequence struct {
	ID         uint   `json:"id" gorm:"primaryKey"`
	Code       string `json:"code" gorm:"uniqueIndex;not null"`
	Prefix     string `json:"prefix"`
	LastNumber uint64 `json:"lastNumber"`
}
