// Package httpx holds the request/response plumbing shared by every handler:
// JSON body decoding with struct-tag validation, JSON responses, and the
// error writer that turns any error into the public {"error": ...} body.
package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/user/listkeeper-go/apperror"
)

// MaxBodyBytes bounds every decoded request body.
const MaxBodyBytes = 1 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate runs the `validate` struct tags of v.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
			return apperror.NewValidationError("invalid fields: "+strings.Join(fields, ", "), err)
		}
		return apperror.NewInternalError("validator misuse", err)
	}
	return nil
}

// Decode reads a JSON body into dst and validates it.
func Decode(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := ReadJSON(w, r, dst); err != nil {
		return err
	}
	return Validate(dst)
}

// ReadJSON reads a JSON body into dst without validating it. Unknown fields
// are ignored so that clients echoing back immutable fields are not rejected.
func ReadJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return apperror.NewValidationError("request body is empty", nil)
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperror.NewValidationError("request body is empty", err)
		}
		return apperror.NewValidationError("invalid request body", err)
	}
	return nil
}

type loggerKey struct{}

// WithLogger returns a copy of ctx carrying logger for Error and JSON.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// Logger returns the logger stored by WithLogger, or slog.Default().
func Logger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// UseLogger is middleware that attaches logger to every request context.
func UseLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithLogger(r.Context(), logger)))
		})
	}
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		Logger(r.Context()).ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// Error writes err as a public error response. The internal message is
// logged with the request id; only the fixed public message is sent.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	ae := apperror.From(err)
	status := ae.StatusCode()

	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	Logger(r.Context()).Log(r.Context(), level, "request failed",
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"type", ae.Type.String(),
		"error", ae.Error(),
	)

	JSON(w, r, status, ae.ToResponse())
}
