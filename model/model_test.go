package model

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
)

func strPtr(s string) *string { return &s }

func TestUserJSONOmitsPasswordHash(t *testing.T) {
	u := &User{ID: uuid.New(), Username: "alice", Email: "a@x.io", PasswordHash: "$2a$10$secret"}
	b, err := json.Marshal(u)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(b), "secret") || strings.Contains(string(b), "password") {
		t.Errorf("serialized user leaks the hash: %s", b)
	}
}

func TestCloneRendersEmptyChildrenAsArray(t *testing.T) {
	l := (&List{ID: uuid.New(), Name: "x"}).Clone()
	b, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if !strings.Contains(string(b), `"items":[]`) {
		t.Errorf("items not rendered as empty array: %s", b)
	}
}

func TestCloneIsDeep(t *testing.T) {
	id := uuid.New()
	orig := &List{Name: "a", Description: strPtr("d"), Items: []uuid.UUID{id}}
	c := orig.Clone()
	c.Items[0] = uuid.New()
	*c.Description = "changed"

	if orig.Items[0] != id {
		t.Error("clone shares the Items backing array")
	}
	if *orig.Description != "d" {
		t.Error("clone shares the Description pointer")
	}
}

func TestPatchApply(t *testing.T) {
	testCases := []struct {
		name  string
		patch ItemPatch
		want  Item
	}{
		{"empty", ItemPatch{}, Item{Name: "milk"}},
		{"name only", ItemPatch{Name: strPtr("bread")}, Item{Name: "bread"}},
		{"content only", ItemPatch{Content: strPtr("2l")}, Item{Name: "milk", Content: strPtr("2l")}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			it := Item{Name: "milk"}
			tc.patch.Apply(&it)
			if diff := cmp.Diff(tc.want, it); diff != "" {
				t.Errorf("Apply mismatch (-want +got):\n%s", diff)
			}
			if got, want := tc.patch.IsEmpty(), tc.name == "empty"; got != want {
				t.Errorf("IsEmpty() = %v, want %v", got, want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q", got)
	}
	if got := NormalizeUsername("  Alice "); got != "Alice" {
		t.Errorf("NormalizeUsername = %q", got)
	}
}
