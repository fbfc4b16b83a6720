package mongo

import (
	"context"
	"errors"
	"strings"
	"time"
	c "usermanager/internal/core/domain/common"
	e "usermanager/internal/core/domain/errors"
	"usermanager/internal/core/domain/user"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type userDocument struct {
	ID                  string     `bson:"_id"`
	Username            string     `bson:"username"`
	Email               string     `bson:"email"`
	PasswordHash        string     `bson:"password_hash"`
	Enabled             bool       `bson:"enabled"`
	Locked              bool       `bson:"locked"`
	Roles               []string   `bson:"roles"`
	IsSuperAdmin        bool       `bson:"is_super_admin"`
	ConfirmationToken   *string    `bson:"confirmation_token,omitempty"`
	PasswordRequestedAt *time.Time `bson:"password_requested_at,omitempty"`
	CreatedAt           time.Time  `bson:"created_at"`
	UpdatedAt           time.Time  `bson:"updated_at"`
	LockVersion         int64      `bson:"lock_version"`
}

type UserRepository struct {
	collection  *mongo.Collection
	idGenerator user.IDGenerator
	session     mongo.Session
}

func NewUserRepository(collection *mongo.Collection, idGenerator user.IDGenerator) *UserRepository {
	if collection == nil {
		panic(e.NewNilArgumentError("collection"))
	}
	if idGenerator == nil {
		panic(e.NewNilArgumentError("idGenerator"))
	}
	return &UserRepository{collection: collection, idGenerator: idGenerator}
}

func (r *UserRepository) withSession(session mongo.Session) *UserRepository {
	return &UserRepository{collection: r.collection, idGenerator: r.idGenerator, session: session}
}

func (r *UserRepository) context(ctx context.Context) context.Context {
	if r.session == nil {
		return ctx
	}
	return mongo.NewSessionContext(ctx, r.session)
}

func (r *UserRepository) Create(ctx context.Context, input user.CreateUserInput) (u user.User, err error) {
	u = user.User{
		ID:           r.idGenerator.GenerateUserID(),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Enabled:      input.Enabled,
		Roles:        input.Roles.Clone(),
		IsSuperAdmin: input.IsSuperAdmin,
		CreatedAt:    input.CreatedAt.UTC().Truncate(time.Millisecond),
		UpdatedAt:    input.CreatedAt.UTC().Truncate(time.Millisecond),
	}
	if err := u.Validate(); err != nil {
		return u, err
	}
	_, err = r.collection.InsertOne(r.context(ctx), encodeUser(u))
	if err != nil {
		return user.User{}, decodeError("create", err)
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id user.ID) (user.User, error) {
	return r.findOne(ctx, "get by id", bson.D{{Key: "_id", Value: string(id)}})
}

func (r *UserRepository) GetByUsername(ctx context.Context, username user.Username) (user.User, error) {
	return r.findOne(ctx, "get by username", bson.D{{Key: "username", Value: string(username)}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email c.Email) (user.User, error) {
	return r.findOne(ctx, "get by email", bson.D{{Key: "email", Value: string(email)}})
}

func (r *UserRepository) GetByConfirmationToken(
	ctx context.Context,
	token user.PasswordResetToken,
) (u user.User, err error) {
	if token == "" {
		return u, user.ErrUserDoesNotExist
	}
	return r.findOne(ctx, "get by confirmation token", bson.D{{Key: "confirmation_token", Value: string(token)}})
}

func (r *UserRepository) GetByIDWithLock(ctx context.Context, id user.ID) (u user.User, err error) {
	doc := userDocument{}
	err = r.collection.FindOneAndUpdate(
		r.context(ctx),
		bson.D{{Key: "_id", Value: string(id)}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "lock_version", Value: 1}}}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, user.ErrUserDoesNotExist
	}
	if err != nil {
		return u, decodeError("get by id with lock", err)
	}
	return decodeUser("get by id with lock", doc)
}

func (r *UserRepository) Save(ctx context.Context, u user.User) error {
	if err := u.Validate(); err != nil {
		return err
	}
	doc := encodeUser(u)
	set := bson.D{
		{Key: "username", Value: doc.Username},
		{Key: "email", Value: doc.Email},
		{Key: "password_hash", Value: doc.PasswordHash},
		{Key: "enabled", Value: doc.Enabled},
		{Key: "locked", Value: doc.Locked},
		{Key: "roles", Value: doc.Roles},
		{Key: "is_super_admin", Value: doc.IsSuperAdmin},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}
	unset := bson.D{}
	if doc.ConfirmationToken != nil {
		set = append(set,
			bson.E{Key: "confirmation_token", Value: *doc.ConfirmationToken},
			bson.E{Key: "password_requested_at", Value: *doc.PasswordRequestedAt},
		)
	} else {
		unset = append(unset,
			bson.E{Key: "confirmation_token", Value: ""},
			bson.E{Key: "password_requested_at", Value: ""},
		)
	}
	update := bson.D{{Key: "$set", Value: set}}
	if len(unset) > 0 {
		update = append(update, bson.E{Key: "$unset", Value: unset})
	}

	result, err := r.collection.UpdateByID(r.context(ctx), doc.ID, update)
	if err != nil {
		return decodeError("save", err)
	}
	if result.MatchedCount == 0 {
		return user.ErrUserDoesNotExist
	}
	return nil
}

func (r *UserRepository) findOne(ctx context.Context, op string, filter bson.D) (u user.User, err error) {
	doc := userDocument{}
	err = r.collection.FindOne(r.context(ctx), filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return u, user.ErrUserDoesNotExist
	}
	if err != nil {
		return u, decodeError(op, err)
	}
	return decodeUser(op, doc)
}

func encodeUser(u user.User) userDocument {
	doc := userDocument{
		ID:           string(u.ID),
		Username:     string(u.Username),
		Email:        string(u.Email),
		PasswordHash: string(u.PasswordHash),
		Enabled:      u.Enabled,
		Locked:       u.Locked,
		Roles:        u.Roles.Strings(),
		IsSuperAdmin: u.IsSuperAdmin,
		CreatedAt:    u.CreatedAt.UTC(),
		UpdatedAt:    u.UpdatedAt.UTC(),
	}
	if u.ConfirmationToken.IsPresent && u.PasswordRequestedAt.IsPresent {
		token := string(u.ConfirmationToken.Value)
		requestedAt := u.PasswordRequestedAt.Value.UTC()
		doc.ConfirmationToken = &token
		doc.PasswordRequestedAt = &requestedAt
	}
	return doc
}

func decodeUser(op string, doc userDocument) (user.User, error) {
	u := user.User{
		ID:           user.ID(doc.ID),
		Username:     user.Username(doc.Username),
		Email:        c.Email(doc.Email),
		PasswordHash: user.PasswordHash(doc.PasswordHash),
		Enabled:      doc.Enabled,
		Locked:       doc.Locked,
		Roles:        user.RolesFromStrings(doc.Roles),
		IsSuperAdmin: doc.IsSuperAdmin,
		CreatedAt:    doc.CreatedAt.UTC(),
		UpdatedAt:    doc.UpdatedAt.UTC(),
	}
	if doc.ConfirmationToken != nil {
		u.ConfirmationToken = c.Some(user.PasswordResetToken(*doc.ConfirmationToken))
	}
	if doc.PasswordRequestedAt != nil {
		u.PasswordRequestedAt = c.Some(doc.PasswordRequestedAt.UTC())
	}
	if err := u.Validate(); err != nil {
		return user.User{}, user.NewStorageError(op, err)
	}
	return u, nil
}

func decodeError(op string, err error) error {
	if mongo.IsDuplicateKeyError(err) {
		switch msg := err.Error(); {
		case strings.Contains(msg, USERNAME_INDEX_NAME):
			return user.ErrUsernameAlreadyExists
		case strings.Contains(msg, EMAIL_INDEX_NAME):
			return user.ErrEmailAlreadyExists
		}
	}
	return user.WrapStorageError(op, err)
}
