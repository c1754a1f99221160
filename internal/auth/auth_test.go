package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"parley/internal/directory"
	"parley/internal/models"
)

func createService(t *testing.T) (*Service, *time.Time) {
	t.Helper()

	svc := NewService(context.Background(), Config{TokenExpiry: time.Hour}, directory.New())

	// Mock time
	currentTime := time.Unix(1700000000, 0)
	svc.now = func() time.Time {
		return currentTime
	}
	return svc, &currentTime
}

func TestService_Register(t *testing.T) {
	svc, _ := createService(t)

	ident, err := svc.Register("alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if ident.Name != "alice" {
		t.Errorf("expected name alice, got %s", ident.Name)
	}
	if _, err := svc.dir.Resolve("Alice"); err != nil {
		t.Errorf("identity not created in directory: %v", err)
	}

	t.Run("DuplicateName", func(t *testing.T) {
		if _, err := svc.Register("ALICE", "another-pass"); !errors.Is(err, models.ErrConflict) {
			t.Errorf("expected ErrConflict, got %v", err)
		}
	})

	t.Run("ShortPassword", func(t *testing.T) {
		if _, err := svc.Register("bob", "short"); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("BadName", func(t *testing.T) {
		if _, err := svc.Register("bad name!", "long-enough"); !errors.Is(err, models.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestService_Login(t *testing.T) {
	svc, now := createService(t)
	ident, err := svc.Register("alice", "correct-horse")
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	t.Run("Success", func(t *testing.T) {
		sess, err := svc.Login("Alice", "correct-horse")
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		if sess.Identity.ID != ident.ID {
			t.Errorf("session for wrong identity: %s", sess.Identity.ID)
		}

		userID, err := svc.GetUserID(sess.Token)
		if err != nil || userID != ident.ID {
			t.Errorf("token not live: %v", err)
		}
	})

	t.Run("WrongPassword", func(t *testing.T) {
		if _, err := svc.Login("alice", "wrong"); !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("UnknownUser", func(t *testing.T) {
		if _, err := svc.Login("ghost", "whatever"); !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("Throttling", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			_, _ = svc.Login("alice", "wrong")
		}
		// Even the correct password is rejected while throttled.
		if _, err := svc.Login("alice", "correct-horse"); !errors.Is(err, models.ErrUnauthorized) {
			t.Errorf("expected throttled login to fail, got %v", err)
		}

		// After the backoff window the correct password works again.
		*now = now.Add(2 * time.Hour)
		if _, err := svc.Login("alice", "correct-horse"); err != nil {
			t.Errorf("login after backoff failed: %v", err)
		}
	})
}

func TestService_Logoff(t *testing.T) {
	svc, _ := createService(t)
	if _, err := svc.Register("alice", "correct-horse"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	sess, err := svc.Login("alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	if err := svc.Logoff(sess.Token); err != nil {
		t.Fatalf("Logoff failed: %v", err)
	}
	if _, err := svc.GetUserID(sess.Token); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized after logoff, got %v", err)
	}
}

func TestService_Provision(t *testing.T) {
	svc, _ := createService(t)

	ident, password, err := svc.Provision("operator-made")
	if err != nil {
		t.Fatalf("Provision failed: %v", err)
	}
	if password == "" {
		t.Fatal("expected a generated password")
	}
	sess, err := svc.Login("operator-made", password)
	if err != nil {
		t.Fatalf("login with generated password failed: %v", err)
	}
	if sess.Identity.ID != ident.ID {
		t.Error("session for wrong identity")
	}
}

func TestService_GetUserID_Empty(t *testing.T) {
	svc, _ := createService(t)
	if _, err := svc.GetUserID(""); !errors.Is(err, models.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for empty token, got %v", err)
	}
}
