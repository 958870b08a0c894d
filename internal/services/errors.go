// internal/services/errors.go
package services

import (
	"errors"
	"fmt"
)

// Базовые виды отказов ядра. Все они - нарушения бизнес-правил, а не сбои
// инфраструктуры: повторять такой запрос без изменения входных данных бессмысленно.
var (
	// ErrNotFound - указанная сущность отсутствует.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState - переход или правка вне допустимого статуса документа.
	ErrInvalidState = errors.New("invalid state")

	// ErrValidationFailed - расхождение сумм, несоответствие роли,
	// отсутствие обязательного атрибута и т.п.
	ErrValidationFailed = errors.New("validation failed")

	// ErrConflict - конфликт уникальности (код центра затрат, номер документа).
	ErrConflict = errors.New("conflict")
)

// Error - типизированный отказ ядра. Kind - один из базовых видов выше,
// Message описывает нарушенное правило и значения, его нарушившие.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap возвращает вид отказа, чтобы работали errors.Is(err, ErrNotFound) и т.д.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFoundf создает отказ вида ErrNotFound.
func NotFoundf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

// InvalidStatef создает отказ вида ErrInvalidState.
func InvalidStatef(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrInvalidState, Message: fmt.Sprintf(format, args...)}
}

// Validationf создает отказ вида ErrValidationFailed.
func Validationf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrValidationFailed, Message: fmt.Sprintf(format, args...)}
}

// Conflictf создает отказ вида ErrConflict.
func Conflictf(format string, args ...interface{}) *Error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}
