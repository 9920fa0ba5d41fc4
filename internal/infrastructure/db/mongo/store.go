package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/apilogin/auth-api/internal/core/domain"
	"github.com/apilogin/auth-api/internal/core/ports"
)

const (
	indexUsername   = "users_username_key"
	indexEmail      = "users_email_key"
	indexResetToken = "users_reset_token_key"
)

type userDoc struct {
	ID           string     `bson:"_id"`
	Username     string     `bson:"username"`
	Password     string     `bson:"password"`
	Email        string     `bson:"email"`
	RoleID       int64      `bson:"role_id"`
	ResetToken   *string    `bson:"reset_token,omitempty"`
	ResetExpires *time.Time `bson:"reset_expires,omitempty"`
	CreatedAt    time.Time  `bson:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at"`
}

func (d userDoc) toDomain() *domain.User {
	u := &domain.User{
		ID:           d.ID,
		Username:     d.Username,
		PasswordHash: d.Password,
		Email:        d.Email,
		RoleID:       d.RoleID,
		ResetToken:   d.ResetToken,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}
	if d.ResetExpires != nil {
		exp := d.ResetExpires.UTC()
		u.ResetExpires = &exp
	}
	return u
}

type roleDoc struct {
	ID   int64  `bson:"_id"`
	Name string `bson:"role_name"`
}

// Store implements ports.CredentialStore. Transactions need a replica set.
type Store struct {
	client *mongo.Client
	users  *mongo.Collection
	roles  *mongo.Collection
}

func NewStore(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client: client,
		users:  db.Collection(usersCollection),
		roles:  db.Collection(rolesCollection),
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, repo ports.UserRepository) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, s)
	})
	return err
}

func (s *Store) FindConflicts(ctx context.Context, username, email string) (bool, bool, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{"username": username}, options.Count().SetLimit(1))
	if err != nil {
		return false, false, fmt.Errorf("count usernames: %w", err)
	}
	m, err := s.users.CountDocuments(ctx, bson.M{"email": email}, options.Count().SetLimit(1))
	if err != nil {
		return false, false, fmt.Errorf("count emails: %w", err)
	}
	return n > 0, m > 0, nil
}

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	_, err := s.users.InsertOne(ctx, userDoc{
		ID:        u.ID,
		Username:  u.Username,
		Password:  u.PasswordHash,
		Email:     u.Email,
		RoleID:    u.RoleID,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	})
	if err != nil {
		if mapped := mapDuplicate(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var doc userDoc
	if err := s.users.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"username": username})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *Store) FindByResetToken(ctx context.Context, code string) (*domain.User, error) {
	return s.findOne(ctx, bson.M{"reset_token": code})
}

func (s *Store) UpdatePassword(ctx context.Context, userID, hash string, at time.Time) error {
	res, err := s.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"password": hash, "updated_at": at}})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) SetResetToken(ctx context.Context, userID, code string, expires, at time.Time) error {
	res, err := s.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"reset_token":   code,
		"reset_expires": expires,
		"updated_at":    at,
	}})
	if err != nil {
		if mapped := mapDuplicate(err); mapped != nil {
			return mapped
		}
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (s *Store) ClearResetToken(ctx context.Context, userID string, at time.Time) error {
	_, err := s.users.UpdateByID(ctx, userID, bson.M{
		"$unset": bson.M{"reset_token": "", "reset_expires": ""},
		"$set":   bson.M{"updated_at": at},
	})
	if err != nil {
		return fmt.Errorf("clear reset token: %w", err)
	}
	return nil
}

func (s *Store) ConsumeResetToken(ctx context.Context, userID, code, hash string, at time.Time) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"_id": userID, "reset_token": code, "reset_expires": bson.M{"$gt": at}},
		bson.M{
			"$set":   bson.M{"password": hash, "updated_at": at},
			"$unset": bson.M{"reset_token": "", "reset_expires": ""},
		},
	)
	if err != nil {
		return false, fmt.Errorf("consume reset token: %w", err)
	}
	return res.MatchedCount == 1, nil
}

func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	if _, err := s.users.DeleteOne(ctx, bson.M{"_id": userID}); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// AssignRole checks the role explicitly since MongoDB has no foreign keys.
func (s *Store) AssignRole(ctx context.Context, userID string, roleID int64, at time.Time) error {
	n, err := s.roles.CountDocuments(ctx, bson.M{"_id": roleID}, options.Count().SetLimit(1))
	if err != nil {
		return fmt.Errorf("count roles: %w", err)
	}
	if n == 0 {
		return domain.ErrRoleNotFound
	}
	if _, err := s.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{"role_id": roleID, "updated_at": at}}); err != nil {
		return fmt.Errorf("assign role: %w", err)
	}
	return nil
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         rolesCollection,
			"localField":   "role_id",
			"foreignField": "_id",
			"as":           "role",
		}}},
		{{Key: "$unwind", Value: "$role"}},
		{{Key: "$project", Value: bson.M{
			"username":   1,
			"email":      1,
			"role_name":  "$role.role_name",
			"created_at": 1,
			"updated_at": 1,
		}}},
	}

	cur, err := s.users.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer cur.Close(ctx)

	var docs []struct {
		ID        string    `bson:"_id"`
		Username  string    `bson:"username"`
		Email     string    `bson:"email"`
		RoleName  string    `bson:"role_name"`
		CreatedAt time.Time `bson:"created_at"`
		UpdatedAt time.Time `bson:"updated_at"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]domain.UserSummary, 0, len(docs))
	for _, d := range docs {
		users = append(users, domain.UserSummary{
			ID:        d.ID,
			Username:  d.Username,
			Email:     d.Email,
			RoleName:  d.RoleName,
			CreatedAt: d.CreatedAt.UTC(),
			UpdatedAt: d.UpdatedAt.UTC(),
		})
	}
	return users, nil
}

func (s *Store) FindRoleByName(ctx context.Context, name string) (*domain.Role, error) {
	var doc roleDoc
	if err := s.roles.FindOne(ctx, bson.M{"role_name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("find role: %w", err)
	}
	return &domain.Role{ID: doc.ID, Name: doc.Name}, nil
}

// mapDuplicate names the unique index behind a duplicate key error, or returns nil.
func mapDuplicate(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, indexUsername):
		return domain.ErrUsernameTaken
	case strings.Contains(msg, indexEmail):
		return domain.ErrEmailTaken
	case strings.Contains(msg, indexResetToken):
		return ports.ErrResetTokenTaken
	}
	return nil
}
