package service

import (
	"testing"
	"time"

	"github.com/bigkaa/goartstore/drive-module/internal/domain/model"
)

// TestRecordCache_GetSet проверяет базовые операции Get/Set.
func TestRecordCache_GetSet(t *testing.T) {
	cache := NewRecordCache(100, 5*time.Minute)

	if _, ok := cache.Get("f1"); ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	cache.Set(model.FileRecord{ID: "f1", Name: "a.pdf", SharedWith: []string{"a@b.io"}})
	got, ok := cache.Get("f1")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.Name != "a.pdf" {
		t.Errorf("Name = %q, ожидался a.pdf", got.Name)
	}

	// Изменение полученной копии не влияет на кэш
	got.SharedWith[0] = "x@y.io"
	again, _ := cache.Get("f1")
	if again.SharedWith[0] != "a@b.io" {
		t.Errorf("кэш изменён через копию: %v", again.SharedWith)
	}
}

// TestRecordCache_Delete проверяет инвалидацию.
func TestRecordCache_Delete(t *testing.T) {
	cache := NewRecordCache(100, 5*time.Minute)
	cache.Set(model.FileRecord{ID: "f1"})
	cache.Delete("f1")
	if _, ok := cache.Get("f1"); ok {
		t.Error("запись должна быть удалена")
	}
}

// TestRecordCache_Eviction проверяет вытеснение по размеру.
func TestRecordCache_Eviction(t *testing.T) {
	cache := NewRecordCache(2, 5*time.Minute)
	cache.Set(model.FileRecord{ID: "f1"})
	cache.Set(model.FileRecord{ID: "f2"})
	cache.Set(model.FileRecord{ID: "f3"})

	if cache.Len() != 2 {
		t.Errorf("Len = %d, ожидается 2", cache.Len())
	}
	if _, ok := cache.Get("f1"); ok {
		t.Error("самая старая запись должна быть вытеснена")
	}
}

// TestRecordCache_TTL проверяет истечение записи.
func TestRecordCache_TTL(t *testing.T) {
	cache := NewRecordCache(10, 50*time.Millisecond)
	cache.Set(model.FileRecord{ID: "f1"})
	time.Sleep(120 * time.Millisecond)
	if _, ok := cache.Get("f1"); ok {
		t.Error("запись должна истечь")
	}

	cache.Set(model.FileRecord{ID: "f2"})
	cache.Purge()
	if cache.Len() != 0 {
		t.Errorf("после Purge Len = %d", cache.Len())
	}
}
