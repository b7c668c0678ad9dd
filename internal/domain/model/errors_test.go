package model

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_IsAndAs(t *testing.T) {
	base := errors.New("connection refused")
	err := fmt.Errorf("список файлов: %w", NewError(KindNetwork, "registry.List", base))

	if !errors.Is(err, ErrNetwork) {
		t.Error("errors.Is(err, ErrNetwork) = false")
	}
	if errors.Is(err, ErrAuth) {
		t.Error("errors.Is(err, ErrAuth) = true для сетевой ошибки")
	}
	if !errors.Is(err, base) {
		t.Error("исходная ошибка не доступна через Unwrap")
	}

	kind, ok := KindOf(err)
	if !ok || kind != KindNetwork {
		t.Errorf("KindOf = %q, %v; ожидается network", kind, ok)
	}
	if _, ok := KindOf(base); ok {
		t.Error("KindOf для нетипизированной ошибки должен вернуть ok == false")
	}
}

func TestError_Message(t *testing.T) {
	err := &Error{Kind: KindNotFound, Op: "registry.Get"}
	if got := err.Error(); got != "registry.Get: не найдено" {
		t.Errorf("Error() = %q", got)
	}
	err = Errorf(KindValidation, "files.Rename", "пустое имя")
	if got := err.Error(); got != "files.Rename: пустое имя" {
		t.Errorf("Error() = %q", got)
	}
}
