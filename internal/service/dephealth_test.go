package service

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// TestNewDephealthService_NoDependencies - в режиме mock мониторить нечего.
func TestNewDephealthService_NoDependencies(t *testing.T) {
	_, err := NewDephealthService(DephealthConfig{
		ServiceID:     "drive-module",
		Group:         "drive",
		CheckInterval: 15 * time.Second,
	}, testLogger())
	if !errors.Is(err, ErrNoDependencies) {
		t.Errorf("ожидается ErrNoDependencies, получено %v", err)
	}
}

// TestNewDephealthService_Gateway - создание с HTTP-зависимостью и изолированным registry.
func TestNewDephealthService_Gateway(t *testing.T) {
	ds, err := NewDephealthService(DephealthConfig{
		ServiceID:     "drive-module",
		Group:         "drive",
		CheckInterval: 15 * time.Second,
		GatewayURL:    "http://gateway.local:8080",
		Registerer:    prometheus.NewRegistry(),
	}, testLogger())
	if err != nil {
		t.Fatalf("NewDephealthService ошибка: %v", err)
	}
	if len(ds.names) != 1 || ds.names[0] != "api-gateway" {
		t.Errorf("зависимости = %v, ожидается [api-gateway]", ds.names)
	}
}
