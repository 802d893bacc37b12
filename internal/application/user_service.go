package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// PasswordHasher derives the stored hash of a plaintext password.
type PasswordHasher func(password string) (string, error)

// DefaultAdminUsername is the account created by EnsureAdmin.
const DefaultAdminUsername = "admin"

// UserService orchestrates validation, authorization, and persistence for users.
type UserService struct {
	users       Repository[User]
	hash        PasswordHasher
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewUserService wires dependencies for the user service.
func NewUserService(users Repository[User], hash PasswordHasher, idGenerator func() string, now func() time.Time) *UserService {
	return NewUserServiceWithLogger(users, hash, idGenerator, now, nil)
}

// NewUserServiceWithLogger wires dependencies for the user service with a specified logger.
func NewUserServiceWithLogger(users Repository[User], hash PasswordHasher, idGenerator func() string, now func() time.Time, logger *slog.Logger) *UserService {
	if hash == nil {
		hash = func(password string) (string, error) {
			return CreatePasswordHash(password, DefaultArgon2idParams)
		}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &UserService{users: users, hash: hash, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// CreateUser validates input and persists a new user for administrators.
func (s *UserService) CreateUser(ctx context.Context, params CreateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "CreateUser", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("user_id", user.ID).InfoContext(ctx, "user created")
	}()

	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}

	normalized := normalizeUserInput(params.Input)
	vErr := validateStruct(normalized)
	if normalized.Password == "" {
		vErr.add("password", "password is required")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUniqueUsername(ctx, "", normalized.Username); err != nil {
		return
	}

	user = User{
		ID:        s.idGenerator(),
		Username:  normalized.Username,
		Name:      normalized.Name,
		IsAdmin:   normalized.IsAdmin,
		Category:  normalized.Category,
		CreatedAt: s.now(),
	}
	user.UpdatedAt = user.CreatedAt
	if user.PasswordHash, err = s.hash(normalized.Password); err != nil {
		err = fmt.Errorf("hash password: %w", err)
		return
	}

	if err = s.users.Put(ctx, user); err != nil {
		err = mapRepoError(err)
	}
	return
}

// UpdateUser validates input and updates an existing user for administrators.
// The password is replaced only when a new one is supplied.
func (s *UserService) UpdateUser(ctx context.Context, params UpdateUserParams) (user User, err error) {
	if s == nil {
		err = fmt.Errorf("UserService is nil")
		return
	}
	if !params.Principal.IsAdmin {
		err = ErrUnauthorized
		return
	}
	if s.users == nil {
		err = fmt.Errorf("user repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "UpdateUser",
		"principal_id", params.Principal.UserID,
		"user_id", params.UserID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update user", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user updated")
	}()

	var existing User
	existing, err = s.users.Get(ctx, params.UserID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	normalized := normalizeUserInput(params.Input)
	if vErr := validateStruct(normalized); vErr.HasErrors() {
		err = vErr
		return
	}
	if err = s.ensureUniqueUsername(ctx, existing.ID, normalized.Username); err != nil {
		return
	}

	user = existing
	user.Username = normalized.Username
	user.Name = normalized.Name
	user.IsAdmin = normalized.IsAdmin
	user.Category = normalized.Category
	user.UpdatedAt = s.now()
	if normalized.Password != "" {
		if user.PasswordHash, err = s.hash(normalized.Password); err != nil {
			err = fmt.Errorf("hash password: %w", err)
			return
		}
	}

	if err = s.users.Put(ctx, user); err != nil {
		err = mapRepoError(err)
	}
	return
}

// DeleteUser removes a user when requested by an administrator.
func (s *UserService) DeleteUser(ctx context.Context, principal Principal, userID string) error {
	if s == nil {
		return fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return ErrUnauthorized
	}
	if s.users == nil {
		return fmt.Errorf("user repository not configured")
	}

	logger := s.loggerWith(ctx, "DeleteUser",
		"principal_id", principal.UserID,
		"user_id", userID,
	)
	if err := s.users.Delete(ctx, userID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to delete user", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	logger.InfoContext(ctx, "user deleted")
	return nil
}

// GetUser returns a user to administrators or to the user themself.
func (s *UserService) GetUser(ctx context.Context, principal Principal, userID string) (User, error) {
	if s == nil {
		return User{}, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin && principal.UserID != userID {
		return User{}, ErrUnauthorized
	}
	if s.users == nil {
		return User{}, ErrNotFound
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// ListUsers returns all users for administrators ordered by name.
func (s *UserService) ListUsers(ctx context.Context, principal Principal) ([]User, error) {
	if s == nil {
		return nil, fmt.Errorf("UserService is nil")
	}
	if !principal.IsAdmin {
		return nil, ErrUnauthorized
	}
	if s.users == nil {
		return nil, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	sortByName(users, func(u User) string { return u.Name }, func(u User) string { return u.ID })
	return users, nil
}

// FindByUsername returns the account with username, compared case-insensitively.
func (s *UserService) FindByUsername(ctx context.Context, username string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrNotFound
	}
	username = strings.TrimSpace(username)
	users, err := s.users.List(ctx)
	if err != nil {
		return User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Username, username) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

// FindByID returns the account with id without an authorization check.
func (s *UserService) FindByID(ctx context.Context, id string) (User, error) {
	if s == nil || s.users == nil {
		return User{}, ErrNotFound
	}
	user, err := s.users.Get(ctx, id)
	if err != nil {
		return User{}, mapRepoError(err)
	}
	return user, nil
}

// EnsureAdmin creates the default administrator when no user exists yet.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, password string) (created bool, err error) {
	if s == nil || s.users == nil {
		return false, fmt.Errorf("UserService is not configured")
	}
	if strings.TrimSpace(password) == "" {
		return false, nil
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return false, err
	}
	if len(users) > 0 {
		return false, nil
	}

	_, err = s.CreateUser(ctx, CreateUserParams{
		Principal: Principal{UserID: "bootstrap", IsAdmin: true},
		Input: UserInput{
			Username: DefaultAdminUsername,
			Name:     "Administrador",
			Password: password,
			IsAdmin:  true,
		},
	})
	if errors.Is(err, ErrAlreadyExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) ensureUniqueUsername(ctx context.Context, selfID, username string) error {
	users, err := s.users.List(ctx)
	if err != nil {
		return err
	}
	for _, u := range users {
		if u.ID != selfID && strings.EqualFold(u.Username, username) {
			return ErrAlreadyExists
		}
	}
	return nil
}

func normalizeUserInput(input UserInput) UserInput {
	return UserInput{
		Username: strings.ToLower(strings.TrimSpace(input.Username)),
		Name:     strings.TrimSpace(input.Name),
		Password: input.Password,
		IsAdmin:  input.IsAdmin,
		Category: strings.TrimSpace(input.Category),
	}
}
