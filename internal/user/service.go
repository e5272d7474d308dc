package user

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"agriapp/internal/apperr"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// TokenIssuer creates and verifies session tokens bound to a user id.
type TokenIssuer interface {
	Issue(userID string) (string, error)
	Verify(token string) (userID string, err error)
}

// AuthResult is what registration and login hand back to the client.
type AuthResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type RegisterInput struct {
	Username string `validate:"required,min=3,max=32"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"required,max=72"`
	Profile  Profile
}

// CreateInput is the privileged variant of RegisterInput used by admins.
type CreateInput struct {
	RegisterInput
	Role   Role
	Badges []string
}

// UpdateInput replaces a user's editable fields. An empty Password keeps the
// current one; a nil Role keeps the current role.
type UpdateInput struct {
	Username string `validate:"required,min=3,max=32"`
	Email    string `validate:"required,email,max=254"`
	Password string `validate:"max=72"`
	Profile  Profile
	Role     *Role
}

type Page struct {
	Offset int
	Limit  int
}

type Service struct {
	store    Store
	hasher   Hasher
	tokens   TokenIssuer
	validate *validator.Validate
	log      *slog.Logger
	now      func() time.Time
	newID    func() string

	defaultPageSize int
	maxPageSize     int
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPageSizes(def, max int) Option {
	return func(s *Service) {
		s.defaultPageSize = def
		s.maxPageSize = max
	}
}

func NewService(store Store, hasher Hasher, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{
		store:           store,
		hasher:          hasher,
		tokens:          tokens,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		log:             slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:             time.Now,
		newID:           uuid.NewString,
		defaultPageSize: 50,
		maxPageSize:     200,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) validateInput(v any) error {
	if err := s.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return apperr.Invalid("invalid " + strings.ToLower(fe.Field()) + ": failed " + fe.Tag())
		}
		return apperr.Invalid("invalid input")
	}
	return nil
}

// ensureUnique rejects a username or email held by a user other than selfID.
func (s *Service) ensureUnique(ctx context.Context, username, email, selfID string) error {
	if selfID == "" {
		taken, err := s.store.ExistsByUsername(ctx, username)
		if err != nil {
			return apperr.Internal("check username", err)
		}
		if taken {
			return apperr.Conflict("username already taken")
		}
		inUse, err := s.store.ExistsByEmail(ctx, email)
		if err != nil {
			return apperr.Internal("check email", err)
		}
		if inUse {
			return apperr.Conflict("email already in use")
		}
		return nil
	}

	if other, err := s.store.FindByUsername(ctx, username); err == nil && other.ID != selfID {
		return apperr.Conflict("username already taken")
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return apperr.Internal("check username", err)
	}
	if other, err := s.store.FindByEmail(ctx, email); err == nil && other.ID != selfID {
		return apperr.Conflict("email already in use")
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return apperr.Internal("check email", err)
	}
	return nil
}

func (s *Service) create(ctx context.Context, in RegisterInput, role Role, badges []string) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, in.Username, in.Email, ""); err != nil {
		return nil, err
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Internal("hash password", err)
	}
	now := s.now().UTC()
	u := &User{
		ID:           s.newID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         role,
		Badges:       dedupe(badges),
		CreatedAt:    now,
		UpdatedAt:    now,
		Following:    []string{},
		Followers:    []string{},
	}
	u.applyProfile(in.Profile)
	if err := s.store.Create(ctx, u); err != nil {
		// The existence checks above are only a fast path; the unique
		// index has the final word when two registrations race.
		if errors.Is(err, ErrDuplicate) {
			return nil, apperr.Conflict("username or email already in use")
		}
		return nil, apperr.Internal("create user", err)
	}
	return u, nil
}

// Register creates a regular user and issues a session token for it. Any
// role the client asked for is ignored.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	u, err := s.create(ctx, in, RoleUser, nil)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	s.log.InfoContext(ctx, "user registered", "userId", u.ID, "username", u.Username)
	return &AuthResult{User: u, Token: token}, nil
}

// CreateUser is the admin path: role and badges may be preset.
func (s *Service) CreateUser(ctx context.Context, in CreateInput) (*User, error) {
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.Valid() {
		return nil, apperr.Invalid("invalid role")
	}
	u, err := s.create(ctx, in.RegisterInput, role, in.Badges)
	if err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "user created", "userId", u.ID, "role", u.Role)
	return u, nil
}

// Setup creates the first account as an admin and logs it in. It is refused
// once any user exists.
func (s *Service) Setup(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return nil, apperr.Internal("count users", err)
	}
	if n > 0 {
		return nil, apperr.Forbidden("setup not allowed; users already exist")
	}
	u, err := s.create(ctx, in, RoleAdmin, nil)
	if err != nil {
		return nil, err
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	s.log.InfoContext(ctx, "initial admin created", "userId", u.ID, "username", u.Username)
	return &AuthResult{User: u, Token: token}, nil
}

// NeedsSetup reports whether no user exists yet.
func (s *Service) NeedsSetup(ctx context.Context) (bool, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		return false, apperr.Internal("count users", err)
	}
	return n == 0, nil
}

// Login returns the same Unauthorized error for an unknown username and a
// wrong password.
func (s *Service) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	invalid := apperr.Unauthorized("invalid credentials")
	u, err := s.store.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, ErrNotFound) {
		return nil, invalid
	}
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	if err := s.hasher.Check(u.PasswordHash, password); err != nil {
		s.log.WarnContext(ctx, "login rejected", "userId", u.ID)
		return nil, invalid
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return nil, apperr.Internal("issue token", err)
	}
	return &AuthResult{User: u, Token: token}, nil
}

// UserFromToken resolves a bearer token to its user. Every failure, from a
// malformed token to a deleted user, is reported the same way.
func (s *Service) UserFromToken(ctx context.Context, token string) (*User, bool) {
	id, err := s.tokens.Verify(token)
	if err != nil || id == "" {
		return nil, false
	}
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.log.ErrorContext(ctx, "resolve session", "userId", id, "error", err)
		}
		return nil, false
	}
	return u, true
}

func (s *Service) lookup(ctx context.Context, find func(context.Context, string) (*User, error), key string) (*User, bool, error) {
	u, err := find(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, apperr.Internal("find user", err)
	}
	return u, true, nil
}

func (s *Service) GetUserByID(ctx context.Context, id string) (*User, bool, error) {
	return s.lookup(ctx, s.store.FindByID, id)
}

func (s *Service) GetUserByUsername(ctx context.Context, username string) (*User, bool, error) {
	return s.lookup(ctx, s.store.FindByUsername, username)
}

func (s *Service) GetUserByEmail(ctx context.Context, email string) (*User, bool, error) {
	return s.lookup(ctx, s.store.FindByEmail, email)
}

// ListUsers returns one page ordered by creation time. A zero limit means the
// default page size; larger limits are capped.
func (s *Service) ListUsers(ctx context.Context, p Page) ([]User, error) {
	if p.Offset < 0 || p.Limit < 0 {
		return nil, apperr.Invalid("offset and limit must not be negative")
	}
	if p.Limit == 0 {
		p.Limit = s.defaultPageSize
	}
	if p.Limit > s.maxPageSize {
		p.Limit = s.maxPageSize
	}
	users, err := s.store.List(ctx, p.Offset, p.Limit)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func (s *Service) mustFind(ctx context.Context, id string) (*User, error) {
	u, err := s.store.FindByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound("user not found")
	}
	if err != nil {
		return nil, apperr.Internal("find user", err)
	}
	return u, nil
}

func (s *Service) UpdateUser(ctx context.Context, id string, in UpdateInput) (*User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := s.validateInput(in); err != nil {
		return nil, err
	}
	if in.Role != nil && !in.Role.Valid() {
		return nil, apperr.Invalid("invalid role")
	}
	u, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUnique(ctx, in.Username, in.Email, u.ID); err != nil {
		return nil, err
	}
	u.Username = in.Username
	u.Email = in.Email
	u.applyProfile(in.Profile)
	if in.Password != "" {
		hash, err := s.hasher.Hash(in.Password)
		if err != nil {
			return nil, apperr.Internal("hash password", err)
		}
		u.PasswordHash = hash
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) save(ctx context.Context, u *User) error {
	u.UpdatedAt = s.now().UTC()
	err := s.store.Update(ctx, u)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return apperr.NotFound("user not found")
	case errors.Is(err, ErrDuplicate):
		return apperr.Conflict("username or email already in use")
	default:
		return apperr.Internal("update user", err)
	}
}

// DeleteUser removes the user and its follow edges. Unknown ids succeed.
func (s *Service) DeleteUser(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return apperr.Internal("delete user", err)
	}
	s.log.InfoContext(ctx, "user deleted", "userId", id)
	return nil
}

// AddBadge is idempotent: a badge the user already holds is left as is.
func (s *Service) AddBadge(ctx context.Context, id, badge string) (*User, error) {
	badge = strings.TrimSpace(badge)
	if badge == "" {
		return nil, apperr.Invalid("badge must not be empty")
	}
	u, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.HasBadge(badge) {
		return u, nil
	}
	u.Badges = append(u.Badges, badge)
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *Service) RemoveBadge(ctx context.Context, id, badge string) (*User, error) {
	badge = strings.TrimSpace(badge)
	u, err := s.mustFind(ctx, id)
	if err != nil {
		return nil, err
	}
	if !u.HasBadge(badge) {
		return u, nil
	}
	kept := make([]string, 0, len(u.Badges))
	for _, b := range u.Badges {
		if b != badge {
			kept = append(kept, b)
		}
	}
	u.Badges = kept
	if err := s.save(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// checkEdge resolves the follower first, so an unknown id is NotFound even
// when both ids are the same.
func (s *Service) checkEdge(ctx context.Context, followerID, targetID string) error {
	if _, err := s.mustFind(ctx, followerID); err != nil {
		return err
	}
	if followerID == targetID {
		return apperr.InvalidOperation("users cannot follow themselves")
	}
	if _, err := s.mustFind(ctx, targetID); err != nil {
		return err
	}
	return nil
}

// FollowUser adds the edge follower -> target. Following twice is a no-op.
func (s *Service) FollowUser(ctx context.Context, followerID, targetID string) error {
	if err := s.checkEdge(ctx, followerID, targetID); err != nil {
		return err
	}
	if err := s.store.Follow(ctx, followerID, targetID); err != nil {
		return apperr.Internal("follow user", err)
	}
	return nil
}

// UnfollowUser removes the edge follower -> target if present.
func (s *Service) UnfollowUser(ctx context.Context, followerID, targetID string) error {
	if err := s.checkEdge(ctx, followerID, targetID); err != nil {
		return err
	}
	if err := s.store.Unfollow(ctx, followerID, targetID); err != nil {
		return apperr.Internal("unfollow user", err)
	}
	return nil
}

func (s *Service) Followers(ctx context.Context, id string) ([]User, error) {
	return s.neighbours(ctx, id, s.store.Followers)
}

func (s *Service) Following(ctx context.Context, id string) ([]User, error) {
	return s.neighbours(ctx, id, s.store.Following)
}

func (s *Service) neighbours(ctx context.Context, id string, load func(context.Context, string) ([]User, error)) ([]User, error) {
	if _, err := s.mustFind(ctx, id); err != nil {
		return nil, err
	}
	users, err := load(ctx, id)
	if err != nil {
		return nil, apperr.Internal("load follow graph", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

func dedupe(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, b := range in {
		b = strings.TrimSpace(b)
		if b == "" {
			continue
		}
		if _, ok := seen[b]; ok {
			continue
		}
		seen[b] = struct{}{}
		out = append(out, b)
	}
	return out
}
