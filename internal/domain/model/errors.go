package model

import (
	"errors"
	"fmt"
)

// Kind - класс ошибки реестра или провайдера аутентификации.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindNetwork    Kind = "network"
	KindValidation Kind = "validation"
	KindNotFound   Kind = "not_found"
)

// Сигнальные ошибки по классам. errors.Is(err, ErrNotFound) истинно
// для любой *Error с KindNotFound.
var (
	ErrAuth       = errors.New("ошибка аутентификации")
	ErrNetwork    = errors.New("ошибка сети")
	ErrValidation = errors.New("ошибка валидации")
	ErrNotFound   = errors.New("не найдено")
)

var sentinels = map[Kind]error{
	KindAuth:       ErrAuth,
	KindNetwork:    ErrNetwork,
	KindValidation: ErrValidation,
	KindNotFound:   ErrNotFound,
}

// Error - типизированная ошибка операции.
type Error struct {
	Kind Kind
	// Op - операция, например "registry.List"
	Op  string
	Err error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, sentinels[e.Kind])
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is сопоставляет ошибку с сигнальной ошибкой её класса.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// NewError создаёт типизированную ошибку.
func NewError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf создаёт типизированную ошибку с форматированным сообщением.
func Errorf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf возвращает класс ошибки. ok == false для нетипизированных ошибок.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
