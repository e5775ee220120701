package logger_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluescreen10/storefront/logger"
)

func TestLogger(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(404)
	})

	output := &bytes.Buffer{}
	logger := logger.New(logger.WithOutput(output))

	r := httptest.NewRequest("GET", "/endpoint", &bytes.Buffer{})
	w := httptest.NewRecorder()

	logger.Handler(h).ServeHTTP(w, r)

	var entry struct {
		Level  string `json:"level"`
		Status int    `json:"status"`
		Method string `json:"method"`
		Path   string `json:"path"`
		IP     string `json:"ip"`
	}
	if err := json.Unmarshal(output.Bytes(), &entry); err != nil {
		t.Fatalf("invalid log '%s': %v", output.String(), err)
	}

	if entry.Method != "GET" || entry.Path != "/endpoint" || entry.Status != 404 {
		t.Fatalf("invalid log '%s'", output.String())
	}

	if entry.Level != "warn" {
		t.Fatalf("expected 'warn' got '%s'", entry.Level)
	}

	if entry.IP != "192.0.2.1" {
		t.Fatalf("expected '192.0.2.1' got '%s'", entry.IP)
	}
}

func TestLoggerDefaultStatus(t *testing.T) {
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	output := &bytes.Buffer{}
	l := logger.New(logger.WithOutput(output), logger.WithMessage("served"))

	r := httptest.NewRequest("POST", "/tokens", &bytes.Buffer{})
	l.Handler(h).ServeHTTP(httptest.NewRecorder(), r)

	var entry map[string]any
	if err := json.Unmarshal(output.Bytes(), &entry); err != nil {
		t.Fatal(err)
	}

	if entry["status"] != float64(200) || entry["level"] != "info" || entry["message"] != "served" {
		t.Fatalf("invalid log '%s'", output.String())
	}
}
