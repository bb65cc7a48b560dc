package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

func strPtr(s string) *string { return &s }

func TestUpdateListSQL(t *testing.T) {
	id := uuid.MustParse("0b7a6c1e-1111-4222-8333-444455556666")

	testCases := []struct {
		name     string
		patch    model.ListPatch
		wantSQL  string
		wantArgs []any
	}{
		{
			name:     "name only",
			patch:    model.ListPatch{Name: strPtr("groceries")},
			wantSQL:  "UPDATE lists SET name = $1 WHERE id = $2 RETURNING " + listColumns,
			wantArgs: []any{"groceries", id},
		},
		{
			name:     "both fields",
			patch:    model.ListPatch{Name: strPtr("g"), Description: strPtr("d")},
			wantSQL:  "UPDATE lists SET name = $1, description = $2 WHERE id = $3 RETURNING " + listColumns,
			wantArgs: []any{"g", "d", id},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			sql, args, err := updateListSQL(id, tc.patch)
			if err != nil {
				t.Fatalf("updateListSQL: %v", err)
			}
			if sql != tc.wantSQL {
				t.Errorf("sql = %q\nwant  %q", sql, tc.wantSQL)
			}
			if diff := cmp.Diff(tc.wantArgs, args); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestUpdateItemSQL(t *testing.T) {
	id := uuid.New()
	sql, args, err := updateItemSQL(id, model.ItemPatch{Content: strPtr("2 liters")})
	if err != nil {
		t.Fatalf("updateItemSQL: %v", err)
	}
	want := "UPDATE items SET content = $1 WHERE id = $2 RETURNING " + itemColumns
	if sql != want {
		t.Errorf("sql = %q\nwant  %q", sql, want)
	}
	if diff := cmp.Diff([]any{"2 liters", id}, args); diff != "" {
		t.Errorf("args mismatch (-want +got):\n%s", diff)
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		wantNotFound  bool
		wantDupField  string
		wantRetryable bool
	}{
		{name: "no rows", err: fmt.Errorf("scan: %w", pgx.ErrNoRows), wantNotFound: true},
		{name: "unique username", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"}, wantDupField: "username"},
		{name: "unique email", err: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}, wantDupField: "email"},
		{name: "foreign key", err: &pgconn.PgError{Code: "23503"}, wantNotFound: true},
		{name: "serialization", err: &pgconn.PgError{Code: "40001"}, wantRetryable: true},
		{name: "connection failure", err: &pgconn.PgError{Code: "08006"}, wantRetryable: true},
		{name: "deadline", err: context.DeadlineExceeded, wantRetryable: true},
		{name: "syntax", err: &pgconn.PgError{Code: "42601"}},
		{name: "other", err: errors.New("boom")},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classify(tc.err, "op")
			if tc.wantNotFound {
				if !errors.Is(got, store.ErrNotFound) {
					t.Errorf("classify = %v, want ErrNotFound", got)
				}
				return
			}
			if tc.wantDupField != "" {
				var dup *store.DuplicateKeyError
				if !errors.As(got, &dup) || dup.Field != tc.wantDupField {
					t.Errorf("classify = %v, want duplicate on %s", got, tc.wantDupField)
				}
				return
			}
			ae, ok := apperror.FromError(got)
			if !ok || ae.Type != apperror.DatabaseError {
				t.Fatalf("classify = %v, want database error", got)
			}
			if ae.Retryable != tc.wantRetryable {
				t.Errorf("Retryable = %v, want %v", ae.Retryable, tc.wantRetryable)
			}
		})
	}
	if classify(nil, "op") != nil {
		t.Error("classify(nil) != nil")
	}
}

func TestClassifyDelete(t *testing.T) {
	testCases := []struct {
		name          string
		err           error
		wantNotFound  bool
		wantRetryable bool
	}{
		{name: "still referenced", err: &pgconn.PgError{Code: "23503", ConstraintName: "items_list_id_fkey"}, wantRetryable: true},
		{name: "no rows", err: pgx.ErrNoRows, wantNotFound: true},
		{name: "syntax", err: &pgconn.PgError{Code: "42601"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := classifyDelete(tc.err, "delete list")
			if tc.wantNotFound {
				if !errors.Is(got, store.ErrNotFound) {
					t.Errorf("classifyDelete = %v, want ErrNotFound", got)
				}
				return
			}
			ae, ok := apperror.FromError(got)
			if !ok || ae.Type != apperror.DatabaseError {
				t.Fatalf("classifyDelete = %v, want database error", got)
			}
			if ae.Retryable != tc.wantRetryable {
				t.Errorf("Retryable = %v, want %v", ae.Retryable, tc.wantRetryable)
			}
			if tc.wantRetryable && ae.StatusCode() != 503 {
				t.Errorf("status = %d, want 503", ae.StatusCode())
			}
		})
	}
}
