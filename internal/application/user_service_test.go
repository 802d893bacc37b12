package application

import (
	"context"
	"errors"
	"testing"
	"time"
)

func plainHasher(password string) (string, error) { return "hashed:" + password, nil }

func TestUserService_CreateUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)

	t.Run("requires administrator privileges", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepository(), plainHasher, sequenceIDs("user"), fixedNow(now))
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: techPrincipal,
			Input:     UserInput{Username: "joao", Name: "João", Password: "secret1"},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("validates required fields and password length", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepository(), plainHasher, sequenceIDs("user"), fixedNow(now))
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: " ", Password: "123"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		for _, field := range []string{"username", "name", "password"} {
			if _, ok := vErr.FieldErrors[field]; !ok {
				t.Fatalf("expected %s error, got %v", field, sortedKeys(vErr.FieldErrors))
			}
		}
	})

	t.Run("requires a password on creation", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepository(), plainHasher, sequenceIDs("user"), fixedNow(now))
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: "joao", Name: "João"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) || vErr.FieldErrors["password"] != "password is required" {
			t.Fatalf("expected password is required, got %v", err)
		}
	})

	t.Run("persists normalized users with hashed passwords", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepository()
		svc := NewUserService(repo, plainHasher, sequenceIDs("user"), fixedNow(now))
		user, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: " Joao ", Name: " João Silva ", Password: "secret1", Category: "Eletricista"},
		})
		if err != nil {
			t.Fatalf("CreateUser failed: %v", err)
		}
		if user.ID != "user-1" || user.Username != "joao" || user.Name != "João Silva" {
			t.Fatalf("unexpected user %#v", user)
		}
		if user.PasswordHash != "hashed:secret1" {
			t.Fatalf("expected hashed password, got %q", user.PasswordHash)
		}
		if !user.CreatedAt.Equal(now) || !user.UpdatedAt.Equal(now) {
			t.Fatalf("expected timestamps at %v, got %v/%v", now, user.CreatedAt, user.UpdatedAt)
		}
		if repo.len() != 1 {
			t.Fatalf("expected one stored user, got %d", repo.len())
		}
	})

	t.Run("rejects usernames that differ only in case", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepository(User{ID: "user-1", Username: "joao"})
		svc := NewUserService(repo, plainHasher, sequenceIDs("user"), fixedNow(now))
		_, err := svc.CreateUser(context.Background(), CreateUserParams{
			Principal: adminPrincipal,
			Input:     UserInput{Username: "JOAO", Name: "Outro", Password: "secret1"},
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestUserService_UpdateUser(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, time.May, 1, 9, 0, 0, 0, time.UTC)
	existing := User{ID: "user-1", Username: "joao", Name: "João", PasswordHash: "hashed:old"}

	t.Run("keeps the password when none is supplied", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepository(existing)
		svc := NewUserService(repo, plainHasher, nil, fixedNow(now))
		user, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    "user-1",
			Input:     UserInput{Username: "joao", Name: "João Souza"},
		})
		if err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		if user.PasswordHash != "hashed:old" || user.Name != "João Souza" {
			t.Fatalf("unexpected user %#v", user)
		}
	})

	t.Run("replaces the password when supplied", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepository(existing)
		svc := NewUserService(repo, plainHasher, nil, fixedNow(now))
		user, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    "user-1",
			Input:     UserInput{Username: "joao", Name: "João", Password: "newpass"},
		})
		if err != nil {
			t.Fatalf("UpdateUser failed: %v", err)
		}
		if user.PasswordHash != "hashed:newpass" {
			t.Fatalf("expected new hash, got %q", user.PasswordHash)
		}
	})

	t.Run("propagates ErrNotFound when the user is missing", func(t *testing.T) {
		t.Parallel()

		svc := NewUserService(newUserRepository(), plainHasher, nil, fixedNow(now))
		_, err := svc.UpdateUser(context.Background(), UpdateUserParams{
			Principal: adminPrincipal,
			UserID:    "missing",
			Input:     UserInput{Username: "joao", Name: "João"},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestUserService_GetUser(t *testing.T) {
	t.Parallel()

	repo := newUserRepository(User{ID: "tech-1", Username: "joao"}, User{ID: "tech-2", Username: "ana"})
	svc := NewUserService(repo, plainHasher, nil, nil)

	if _, err := svc.GetUser(context.Background(), techPrincipal, "tech-1"); err != nil {
		t.Fatalf("expected users to read themselves, got %v", err)
	}
	if _, err := svc.GetUser(context.Background(), techPrincipal, "tech-2"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if _, err := svc.GetUser(context.Background(), adminPrincipal, "tech-2"); err != nil {
		t.Fatalf("expected administrators to read anyone, got %v", err)
	}
}

func TestUserService_ListUsers(t *testing.T) {
	t.Parallel()

	repo := newUserRepository(
		User{ID: "u2", Username: "b", Name: "bruna"},
		User{ID: "u1", Username: "a", Name: "Ana"},
	)
	svc := NewUserService(repo, plainHasher, nil, nil)

	if _, err := svc.ListUsers(context.Background(), techPrincipal); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	users, err := svc.ListUsers(context.Background(), adminPrincipal)
	if err != nil {
		t.Fatalf("ListUsers failed: %v", err)
	}
	if len(users) != 2 || users[0].ID != "u1" || users[1].ID != "u2" {
		t.Fatalf("expected users ordered by name, got %#v", users)
	}
}

func TestUserService_DeleteUser(t *testing.T) {
	t.Parallel()

	repo := newUserRepository(User{ID: "tech-1", Username: "joao"})
	svc := NewUserService(repo, plainHasher, nil, nil)

	if err := svc.DeleteUser(context.Background(), techPrincipal, "tech-1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := svc.DeleteUser(context.Background(), adminPrincipal, "tech-1"); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if err := svc.DeleteUser(context.Background(), adminPrincipal, "tech-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUserService_EnsureAdmin(t *testing.T) {
	t.Parallel()

	t.Run("creates the administrator on an empty store", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepository()
		svc := NewUserService(repo, plainHasher, sequenceIDs("user"), nil)
		created, err := svc.EnsureAdmin(context.Background(), "admin123")
		if err != nil || !created {
			t.Fatalf("expected admin to be created, got %v %v", created, err)
		}
		admin, err := svc.FindByUsername(context.Background(), "ADMIN")
		if err != nil {
			t.Fatalf("FindByUsername failed: %v", err)
		}
		if !admin.IsAdmin || admin.PasswordHash != "hashed:admin123" {
			t.Fatalf("unexpected admin %#v", admin)
		}
	})

	t.Run("does nothing once users exist or without password", func(t *testing.T) {
		t.Parallel()

		repo := newUserRepository(User{ID: "tech-1", Username: "joao"})
		svc := NewUserService(repo, plainHasher, sequenceIDs("user"), nil)
		if created, err := svc.EnsureAdmin(context.Background(), "admin123"); err != nil || created {
			t.Fatalf("expected no admin to be created, got %v %v", created, err)
		}

		empty := NewUserService(newUserRepository(), plainHasher, sequenceIDs("user"), nil)
		if created, err := empty.EnsureAdmin(context.Background(), ""); err != nil || created {
			t.Fatalf("expected no admin without password, got %v %v", created, err)
		}
	})
}
