package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/cottonstock/invoicedesk/internal/domain"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/gorm"
)

// UserStore persists accounts. Emails are unique and stored lower-cased.
type UserStore interface {
	Create(ctx context.Context, user *domain.User) error
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	Save(ctx context.Context, user *domain.User) error
}

// GormUserStore is the GORM implementation of UserStore
type GormUserStore struct {
	db *gorm.DB
}

func NewGormUserStore(db *gorm.DB) *GormUserStore {
	return &GormUserStore{db: db}
}

func (r *GormUserStore) Create(ctx context.Context, user *domain.User) error {
	return translateError(r.db.WithContext(ctx).Create(user).Error)
}

func (r *GormUserStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *GormUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

func (r *GormUserStore) Save(ctx context.Context, user *domain.User) error {
	return translateError(r.db.WithContext(ctx).Save(user).Error)
}

func translateError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), mongo.IsDuplicateKeyError(err),
		strings.Contains(strings.ToLower(err.Error()), "unique constraint"):
		return domain.ErrConflict
	}
	return errors.Wrapf(domain.ErrStoreUnavailable, "user store: %v", err)
}

const UserCollection = "users"

type MongoUserStore struct {
	coll *mongo.Collection
}

func NewMongoUserStore(ctx context.Context, db *mongo.Database) (*MongoUserStore, error) {
	coll := db.Collection(UserCollection)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniq_user_email"),
	})
	if err != nil {
		return nil, errors.Wrap(err, "create user indexes")
	}
	return &MongoUserStore{coll: coll}, nil
}

type userDoc struct {
	ID            int64     `bson:"_id"`
	Name          string    `bson:"name"`
	Email         string    `bson:"email"`
	Password      string    `bson:"password"`
	BusinessName  string    `bson:"businessName"`
	BusinessEmail string    `bson:"businessEmail"`
	BusinessPhone string    `bson:"businessPhone"`
	Address       string    `bson:"address"`
	Phone         string    `bson:"phone"`
	LastLogin     time.Time `bson:"lastLogin"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

func (r *MongoUserStore) Create(ctx context.Context, user *domain.User) error {
	_, err := r.coll.InsertOne(ctx, userDoc(*user))
	return translateError(err)
}

func (r *MongoUserStore) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translateError(err)
	}
	user := domain.User(doc)
	return &user, nil
}

func (r *MongoUserStore) Save(ctx context.Context, user *domain.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, userDoc(*user))
	if err != nil {
		return translateError(err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MemoryUserStore backs tests and the memory database type.
type MemoryUserStore struct {
	mu      sync.RWMutex
	byID    map[int64]domain.User
	byEmail map[string]int64
}

func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{byID: map[int64]domain.User{}, byEmail: map[string]int64{}}
}

func (r *MemoryUserStore) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byEmail[user.Email]; ok {
		return domain.ErrConflict
	}
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserStore) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[email]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *MemoryUserStore) Save(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	old, ok := r.byID[user.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if owner, taken := r.byEmail[user.Email]; taken && owner != user.ID {
		return domain.ErrConflict
	}
	delete(r.byEmail, old.Email)
	r.byID[user.ID] = *user
	r.byEmail[user.Email] = user.ID
	return nil
}
