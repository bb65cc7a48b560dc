package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

func strPtr(s string) *string { return &s }

func TestDocumentRoundTrip(t *testing.T) {
	created := time.Date(2024, 4, 1, 8, 30, 0, 0, time.UTC)
	list := &model.List{
		ID:          uuid.New(),
		Name:        "groceries",
		Description: strPtr("weekly"),
		CreatedAt:   created,
		OwnerID:     uuid.New(),
		Items:       []uuid.UUID{uuid.New(), uuid.New()},
	}

	raw, err := bson.Marshal(toListDoc(list))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var d listDoc
	if err := bson.Unmarshal(raw, &d); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	got, err := d.model()
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if diff := cmp.Diff(list, got); diff != "" {
		t.Errorf("list round trip (-want +got):\n%s", diff)
	}
}

func TestMalformedDocument(t *testing.T) {
	d := itemDoc{ID: "not-a-uuid", ListID: uuid.NewString()}
	if _, err := d.model(); err == nil {
		t.Error("model() accepted a malformed id")
	}
}

func TestPatchSets(t *testing.T) {
	testCases := []struct {
		name string
		got  bson.M
		want bson.M
	}{
		{"list name", listSet(model.ListPatch{Name: strPtr("n")}), bson.M{"name": "n"}},
		{"list both", listSet(model.ListPatch{Name: strPtr("n"), Description: strPtr("d")}), bson.M{"name": "n", "description": "d"}},
		{"item content", itemSet(model.ItemPatch{Content: strPtr("c")}), bson.M{"content": "c"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, tc.got); diff != "" {
				t.Errorf("$set mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	dup := mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    11000,
		Message: "E11000 duplicate key error collection: listkeeper.users index: email_unique dup key: { email: \"a@b.c\" }",
	}}}

	var dk *store.DuplicateKeyError
	if err := classify(dup, "insert user"); !errors.As(err, &dk) || dk.Field != "email" {
		t.Errorf("classify(dup) = %v, want duplicate on email", err)
	}
	if err := classify(mongo.ErrNoDocuments, "find"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("classify(no documents) = %v, want ErrNotFound", err)
	}
	if err := classify(context.DeadlineExceeded, "find"); !apperror.IsRetryable(err) {
		t.Errorf("classify(deadline) = %v, want retryable", err)
	}
	err := classify(errors.New("unauthorized"), "find")
	if ae, ok := apperror.FromError(err); !ok || ae.Type != apperror.DatabaseError || ae.Retryable {
		t.Errorf("classify(other) = %v, want fatal database error", err)
	}
	if classify(nil, "x") != nil {
		t.Error("classify(nil) != nil")
	}
}
