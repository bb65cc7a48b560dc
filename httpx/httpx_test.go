package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/user/listkeeper-go/apperror"
)

type createBody struct {
	Name string  `json:"name" validate:"required"`
	Note *string `json:"note"`
}

func TestDecode(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		wantErr  bool
		wantName string
	}{
		{"valid", `{"name":"groceries"}`, false, "groceries"},
		{"unknown fields ignored", `{"name":"a","owner":"x","items":[1]}`, false, "a"},
		{"missing required", `{"note":"n"}`, true, ""},
		{"empty body", ``, true, ""},
		{"malformed json", `{"name":`, true, ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			w := httptest.NewRecorder()
			var dst createBody
			err := Decode(w, r, &dst)
			if tc.wantErr {
				if !apperror.IsValidationError(err) {
					t.Fatalf("Decode error = %v, want validation error", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if dst.Name != tc.wantName {
				t.Errorf("Name = %q, want %q", dst.Name, tc.wantName)
			}
		})
	}
}

func TestErrorWritesPublicMessageOnly(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   apperror.ErrorResponse
	}{
		{"not found", apperror.NewNotFoundError("list 1234 missing", nil), http.StatusNotFound, apperror.ErrorResponse{Error: "Not Found"}},
		{"plain error", errors.New("pq: relation does not exist"), http.StatusInternalServerError, apperror.ErrorResponse{Error: "Internal Server Error"}},
		{"retryable", apperror.NewDatabaseError("timeout", nil, true), http.StatusServiceUnavailable, apperror.ErrorResponse{Error: "Service Unavailable"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, httptest.NewRequest(http.MethodGet, "/lists", nil), tc.err)

			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
			var got apperror.ErrorResponse
			if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if diff := cmp.Diff(tc.wantBody, got); diff != "" {
				t.Errorf("body mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestErrorLogsThroughRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/lists/42", nil)
	UseLogger(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		Error(w, r, apperror.NewNotFoundError("list 42 missing", nil))
	})).ServeHTTP(w, r)

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("request logger got %q: %v", buf.String(), err)
	}
	if line["msg"] != "request failed" || line["error"] != "list 42 missing" || line["status"] != float64(404) {
		t.Errorf("log line = %v", line)
	}
}

func TestLoggerFallsBackToDefault(t *testing.T) {
	if got := Logger(httptest.NewRequest(http.MethodGet, "/", nil).Context()); got != slog.Default() {
		t.Errorf("Logger = %p, want slog.Default()", got)
	}
}
