package user

import (
	"context"
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"sync"
	c "usermanager/internal/core/domain/common"
)

var errFakeStorage = errors.New("fake storage is unavailable")

type FakeUserRepository struct {
	Users       []User
	ReturnError bool
	SaveCount   int
	LockCount   int
	lock        sync.Mutex
}

func NewFakeUserRepository() *FakeUserRepository {
	return &FakeUserRepository{Users: make([]User, 0, 10)}
}

func (r *FakeUserRepository) Create(ctx context.Context, input CreateUserInput) (u User, err error) {
	if r.ReturnError {
		return u, NewStorageError("create", errFakeStorage)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, existing := range r.Users {
		if existing.Username == input.Username {
			return u, ErrUsernameAlreadyExists
		}
		if existing.Email == input.Email {
			return u, ErrEmailAlreadyExists
		}
	}
	u = User{
		ID:           ID(fmt.Sprintf("user-%d", len(r.Users)+1)),
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: input.PasswordHash,
		Enabled:      input.Enabled,
		Roles:        input.Roles.Clone(),
		IsSuperAdmin: input.IsSuperAdmin,
		CreatedAt:    input.CreatedAt,
		UpdatedAt:    input.CreatedAt,
	}
	r.Users = append(r.Users, u)
	return u.Clone(), nil
}

func (r *FakeUserRepository) GetByID(ctx context.Context, id ID) (User, error) {
	return r.find("get by id", func(u User) bool { return u.ID == id })
}

func (r *FakeUserRepository) GetByUsername(ctx context.Context, username Username) (User, error) {
	return r.find("get by username", func(u User) bool { return u.Username == username })
}

func (r *FakeUserRepository) GetByEmail(ctx context.Context, email c.Email) (User, error) {
	return r.find("get by email", func(u User) bool { return u.Email == email })
}

func (r *FakeUserRepository) GetByConfirmationToken(ctx context.Context, token PasswordResetToken) (User, error) {
	return r.find("get by confirmation token", func(u User) bool {
		return u.ConfirmationToken.IsPresent && u.ConfirmationToken.Value.Matches(token)
	})
}

func (r *FakeUserRepository) GetByIDWithLock(ctx context.Context, id ID) (User, error) {
	r.lock.Lock()
	r.LockCount++
	r.lock.Unlock()
	return r.GetByID(ctx, id)
}

func (r *FakeUserRepository) Save(ctx context.Context, u User) error {
	if r.ReturnError {
		return NewStorageError("save", errFakeStorage)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for ix, existing := range r.Users {
		if existing.ID == u.ID {
			r.Users[ix] = u.Clone()
			r.SaveCount++
			return nil
		}
	}
	return ErrUserDoesNotExist
}

func (r *FakeUserRepository) find(op string, match func(u User) bool) (u User, err error) {
	if r.ReturnError {
		return u, NewStorageError(op, errFakeStorage)
	}
	r.lock.Lock()
	defer r.lock.Unlock()
	for _, existing := range r.Users {
		if match(existing) {
			return existing.Clone(), nil
		}
	}
	return u, ErrUserDoesNotExist
}

// FakeIdentityResolver resolves by username first and by email second.
type FakeIdentityResolver struct {
	Repository UserRepository
}

func NewFakeIdentityResolver(repository UserRepository) *FakeIdentityResolver {
	return &FakeIdentityResolver{Repository: repository}
}

func (r *FakeIdentityResolver) Resolve(ctx context.Context, identifier string) (User, error) {
	u, err := r.Repository.GetByUsername(ctx, Username(identifier))
	if !errors.Is(err, ErrUserDoesNotExist) {
		return u, err
	}
	return r.Repository.GetByEmail(ctx, c.Email(identifier))
}

type FakePasswordHasher struct{}

func NewFakePasswordHasher() *FakePasswordHasher {
	return &FakePasswordHasher{}
}

func (h *FakePasswordHasher) HashPassword(password RawPassword) (PasswordHash, error) {
	hash := md5.New()
	io.WriteString(hash, string(password))
	return PasswordHash(fmt.Sprintf("%x", hash.Sum(nil))), nil
}

func (h *FakePasswordHasher) ValidatePassword(password RawPassword, hash PasswordHash) bool {
	actualHash, err := h.HashPassword(password)
	if err != nil {
		return false
	}
	return actualHash == hash
}

// FakePasswordResetTokenGenerator returns Tokens one by one and then repeats the last one.
type FakePasswordResetTokenGenerator struct {
	Tokens      []PasswordResetToken
	ReturnError bool
	generated   int
	lock        sync.Mutex
}

func NewFakePasswordResetTokenGenerator(tokens ...string) *FakePasswordResetTokenGenerator {
	g := &FakePasswordResetTokenGenerator{}
	for _, t := range tokens {
		g.Tokens = append(g.Tokens, PasswordResetToken(t))
	}
	return g
}

func (g *FakePasswordResetTokenGenerator) GeneratePasswordResetToken() (PasswordResetToken, error) {
	if g.ReturnError {
		return PasswordResetToken(""), errors.New("could not generate password reset token")
	}
	g.lock.Lock()
	defer g.lock.Unlock()
	ix := g.generated
	if ix >= len(g.Tokens) {
		ix = len(g.Tokens) - 1
	}
	g.generated++
	return g.Tokens[ix], nil
}

type FakePasswordResetTokenSender struct {
	Sent        []PasswordResetToken
	SentTo      []User
	ReturnError bool
	lock        sync.Mutex
}

func NewFakePasswordResetTokenSender() *FakePasswordResetTokenSender {
	return &FakePasswordResetTokenSender{}
}

func (s *FakePasswordResetTokenSender) SendPasswordResetToken(
	ctx context.Context,
	user User,
	token PasswordResetToken,
) error {
	if s.ReturnError {
		return fmt.Errorf("could not send password reset token")
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.Sent = append(s.Sent, token)
	s.SentTo = append(s.SentTo, user)
	return nil
}

type FakeEventListener struct {
	Events      []Event
	ReturnError bool
	lock        sync.Mutex
}

func NewFakeEventListener() *FakeEventListener {
	return &FakeEventListener{}
}

func (l *FakeEventListener) OnAccountEvent(ctx context.Context, event Event) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.Events = append(l.Events, event)
	if l.ReturnError {
		return errors.New("could not handle account event")
	}
	return nil
}

func (l *FakeEventListener) Types() []EventType {
	l.lock.Lock()
	defer l.lock.Unlock()
	types := make([]EventType, len(l.Events))
	for i, e := range l.Events {
		types[i] = e.Type
	}
	return types
}

type FakeIDGenerator struct {
	generated int
	lock      sync.Mutex
}

func NewFakeIDGenerator() *FakeIDGenerator {
	return &FakeIDGenerator{}
}

func (g *FakeIDGenerator) GenerateUserID() ID {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.generated++
	return ID(fmt.Sprintf("00000000-0000-0000-0000-%012d", g.generated))
}
