// Package mongo implements store.Store on MongoDB.
//
// Ids are stored as canonical uuid strings in _id. Child-id sets are arrays
// changed with $addToSet and $pull, which are atomic per document. MongoDB
// multi-document transactions need a replica set, so this store is not
// transactional and the graph manager compensates instead.
package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/user/listkeeper-go/apperror"
	"github.com/user/listkeeper-go/model"
	"github.com/user/listkeeper-go/store"
)

// Collection names.
const (
	UsersCollection = "users"
	ListsCollection = "lists"
	ItemsCollection = "items"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password_hash"`
	CreatedAt    time.Time `bson:"created_at"`
	Lists        []string  `bson:"lists"`
}

type listDoc struct {
	ID          string    `bson:"_id"`
	Name        string    `bson:"name"`
	Description *string   `bson:"description"`
	CreatedAt   time.Time `bson:"created_at"`
	OwnerID     string    `bson:"owner"`
	Items       []string  `bson:"items"`
}

type itemDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Content   *string   `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	ListID    string    `bson:"list"`
}

// Store is a MongoDB-backed store.Store.
type Store struct {
	client  *mongo.Client
	users   *mongo.Collection
	lists   *mongo.Collection
	items   *mongo.Collection
	timeout time.Duration
}

var _ store.Store = (*Store)(nil)

// New uses database db of client. timeout bounds every operation.
func New(client *mongo.Client, db string, timeout time.Duration) *Store {
	d := client.Database(db)
	return &Store{
		client:  client,
		users:   d.Collection(UsersCollection),
		lists:   d.Collection(ListsCollection),
		items:   d.Collection(ItemsCollection),
		timeout: timeout,
	}
}

// EnsureIndexes creates the unique and lookup indexes. It is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetName("username_unique")},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
	}); err != nil {
		return classify(err, "create user indexes")
	}
	if _, err := s.lists.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "owner", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return classify(err, "create list indexes")
	}
	if _, err := s.items.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "list", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return classify(err, "create item indexes")
	}
	return nil
}

func (s *Store) Users() store.Users { return userRepo{s} }
func (s *Store) Lists() store.Lists { return listRepo{s} }
func (s *Store) Items() store.Items { return itemRepo{s} }

func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx store.Store) error) error {
	return fn(ctx, s)
}

func (s *Store) Transactional() bool { return false }

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.client.Ping(ctx, nil); err != nil {
		return classify(err, "ping")
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// classify maps driver errors onto the store contract.
func classify(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.ErrNotFound
	}
	if mongo.IsDuplicateKeyError(err) {
		return &store.DuplicateKeyError{Field: fieldFromMessage(err.Error())}
	}
	retryable := errors.Is(err, context.DeadlineExceeded) ||
		mongo.IsTimeout(err) ||
		mongo.IsNetworkError(err)
	return apperror.NewDatabaseError(what, err, retryable)
}

func fieldFromMessage(msg string) string {
	switch {
	case strings.Contains(msg, "username"):
		return "username"
	case strings.Contains(msg, "email"):
		return "email"
	default:
		return "id"
	}
}

func matched(res *mongo.UpdateResult) error {
	if res.MatchedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func deleted(res *mongo.DeleteResult) error {
	if res.DeletedCount == 0 {
		return store.ErrNotFound
	}
	return nil
}

func idStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func parseIDs(ss []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(ss))
	for _, s := range ss {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func toUserDoc(u *model.User) userDoc {
	return userDoc{
		ID:           u.ID.String(),
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
		Lists:        idStrings(u.Lists),
	}
}

func (d userDoc) model() (*model.User, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	lists, err := parseIDs(d.Lists)
	if err != nil {
		return nil, err
	}
	return &model.User{
		ID: id, Username: d.Username, Email: d.Email, PasswordHash: d.PasswordHash,
		CreatedAt: d.CreatedAt.UTC(), Lists: lists,
	}, nil
}

func toListDoc(l *model.List) listDoc {
	return listDoc{
		ID:          l.ID.String(),
		Name:        l.Name,
		Description: l.Description,
		CreatedAt:   l.CreatedAt,
		OwnerID:     l.OwnerID.String(),
		Items:       idStrings(l.Items),
	}
}

func (d listDoc) model() (*model.List, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	owner, err := uuid.Parse(d.OwnerID)
	if err != nil {
		return nil, err
	}
	items, err := parseIDs(d.Items)
	if err != nil {
		return nil, err
	}
	return &model.List{
		ID: id, Name: d.Name, Description: d.Description, CreatedAt: d.CreatedAt.UTC(),
		OwnerID: owner, Items: items,
	}, nil
}

func toItemDoc(it *model.Item) itemDoc {
	return itemDoc{
		ID:        it.ID.String(),
		Name:      it.Name,
		Content:   it.Content,
		CreatedAt: it.CreatedAt,
		ListID:    it.ListID.String(),
	}
}

func (d itemDoc) model() (*model.Item, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	list, err := uuid.Parse(d.ListID)
	if err != nil {
		return nil, err
	}
	return &model.Item{ID: id, Name: d.Name, Content: d.Content, CreatedAt: d.CreatedAt.UTC(), ListID: list}, nil
}

func corrupt(err error, what string) error {
	return apperror.NewDatabaseError(what+": stored document is malformed", err, false)
}

var oldestFirst = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})

type userRepo struct{ s *Store }

func (r userRepo) Create(ctx context.Context, u *model.User) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	_, err := r.s.users.InsertOne(ctx, toUserDoc(u))
	return classify(err, "insert user")
}

func (r userRepo) findOne(ctx context.Context, filter bson.M, what string) (*model.User, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	var d userDoc
	if err := r.s.users.FindOne(ctx, filter).Decode(&d); err != nil {
		return nil, classify(err, what)
	}
	u, err := d.model()
	if err != nil {
		return nil, corrupt(err, what)
	}
	return u, nil
}

func (r userRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()}, "find user")
}

func (r userRepo) FindOne(ctx context.Context, f store.UserFilter) (*model.User, error) {
	if f.IsEmpty() {
		return nil, store.ErrNotFound
	}
	or := bson.A{}
	if f.Username != "" {
		or = append(or, bson.M{"username": f.Username})
	}
	if f.Email != "" {
		or = append(or, bson.M{"email": f.Email})
	}
	return r.findOne(ctx, bson.M{"$or": or}, "find user by filter")
}

func (r userRepo) PushList(ctx context.Context, userID, listID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.users.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{"$addToSet": bson.M{"lists": listID.String()}})
	if err != nil {
		return classify(err, "push list id")
	}
	return matched(res)
}

func (r userRepo) PullList(ctx context.Context, userID, listID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.users.UpdateOne(ctx,
		bson.M{"_id": userID.String()},
		bson.M{"$pull": bson.M{"lists": listID.String()}})
	if err != nil {
		return classify(err, "pull list id")
	}
	return matched(res)
}

func (r userRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.users.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify(err, "delete user")
	}
	return deleted(res)
}

type listRepo struct{ s *Store }

func (r listRepo) Create(ctx context.Context, l *model.List) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	_, err := r.s.lists.InsertOne(ctx, toListDoc(l))
	return classify(err, "insert list")
}

func (r listRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.List, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	var d listDoc
	if err := r.s.lists.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return nil, classify(err, "find list")
	}
	l, err := d.model()
	if err != nil {
		return nil, corrupt(err, "find list")
	}
	return l, nil
}

func (r listRepo) FindByOwner(ctx context.Context, ownerID uuid.UUID) ([]*model.List, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	cur, err := r.s.lists.Find(ctx, bson.M{"owner": ownerID.String()}, oldestFirst)
	if err != nil {
		return nil, classify(err, "find lists by owner")
	}
	var docs []listDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, "decode lists")
	}
	out := make([]*model.List, 0, len(docs))
	for _, d := range docs {
		l, err := d.model()
		if err != nil {
			return nil, corrupt(err, "decode lists")
		}
		out = append(out, l)
	}
	return out, nil
}

// listSet renders the $set document for the fields present in p.
func listSet(p model.ListPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	return set
}

func (r listRepo) UpdateFields(ctx context.Context, id uuid.UUID, p model.ListPatch) (*model.List, error) {
	if p.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	var d listDoc
	err := r.s.lists.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": listSet(p)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, classify(err, "update list")
	}
	l, err := d.model()
	if err != nil {
		return nil, corrupt(err, "update list")
	}
	return l, nil
}

func (r listRepo) PushItem(ctx context.Context, listID, itemID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.lists.UpdateOne(ctx,
		bson.M{"_id": listID.String()},
		bson.M{"$addToSet": bson.M{"items": itemID.String()}})
	if err != nil {
		return classify(err, "push item id")
	}
	return matched(res)
}

func (r listRepo) PullItem(ctx context.Context, listID, itemID uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.lists.UpdateOne(ctx,
		bson.M{"_id": listID.String()},
		bson.M{"$pull": bson.M{"items": itemID.String()}})
	if err != nil {
		return classify(err, "pull item id")
	}
	return matched(res)
}

func (r listRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.lists.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify(err, "delete list")
	}
	return deleted(res)
}

type itemRepo struct{ s *Store }

func (r itemRepo) Create(ctx context.Context, it *model.Item) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	_, err := r.s.items.InsertOne(ctx, toItemDoc(it))
	return classify(err, "insert item")
}

func (r itemRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Item, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	var d itemDoc
	if err := r.s.items.FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d); err != nil {
		return nil, classify(err, "find item")
	}
	it, err := d.model()
	if err != nil {
		return nil, corrupt(err, "find item")
	}
	return it, nil
}

func (r itemRepo) FindByList(ctx context.Context, listID uuid.UUID) ([]*model.Item, error) {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	cur, err := r.s.items.Find(ctx, bson.M{"list": listID.String()}, oldestFirst)
	if err != nil {
		return nil, classify(err, "find items by list")
	}
	var docs []itemDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify(err, "decode items")
	}
	out := make([]*model.Item, 0, len(docs))
	for _, d := range docs {
		it, err := d.model()
		if err != nil {
			return nil, corrupt(err, "decode items")
		}
		out = append(out, it)
	}
	return out, nil
}

func itemSet(p model.ItemPatch) bson.M {
	set := bson.M{}
	if p.Name != nil {
		set["name"] = *p.Name
	}
	if p.Content != nil {
		set["content"] = *p.Content
	}
	return set
}

func (r itemRepo) UpdateFields(ctx context.Context, id uuid.UUID, p model.ItemPatch) (*model.Item, error) {
	if p.IsEmpty() {
		return r.FindByID(ctx, id)
	}
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	var d itemDoc
	err := r.s.items.FindOneAndUpdate(ctx,
		bson.M{"_id": id.String()},
		bson.M{"$set": itemSet(p)},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if err != nil {
		return nil, classify(err, "update item")
	}
	it, err := d.model()
	if err != nil {
		return nil, corrupt(err, "update item")
	}
	return it, nil
}

func (r itemRepo) DeleteByID(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.s.bound(ctx)
	defer cancel()
	res, err := r.s.items.DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return classify(err, "delete item")
	}
	return deleted(res)
}
