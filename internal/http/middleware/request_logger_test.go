package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/leadrelay/pkg/logging"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWithWriter("info", &buf)
	handler := chimw.RequestID(RequestLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/demo", nil))

	var line map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &line); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, buf.String())
	}
	if line["msg"] != "request completed" {
		t.Fatalf("unexpected msg %v", line["msg"])
	}
	if line["status"] != float64(http.StatusBadRequest) {
		t.Fatalf("expected status 400, got %v", line["status"])
	}
	if line["path"] != "/api/demo" {
		t.Fatalf("unexpected path %v", line["path"])
	}
	if id, _ := line["request_id"].(string); id == "" {
		t.Fatalf("expected request id")
	}
}
