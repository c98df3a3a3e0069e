package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNormalizeUsername(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"  alice  ": "alice",
		"@bob":      "bob",
		" @ carol ": "carol",
		"Alice":     "Alice",
		"":          "",
	}

	for in, want := range tests {
		if got := NormalizeUsername(in); got != want {
			t.Errorf("NormalizeUsername(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	t.Parallel()

	t.Run("valid names", func(t *testing.T) {
		for _, name := range []string{"alice", "Bob_01", "x.y-z", strings.Repeat("a", MaxUsernameLength)} {
			if err := ValidateUsername(name); err != nil {
				t.Fatalf("expected %q to be valid, got %v", name, err)
			}
		}
	})

	t.Run("too short", func(t *testing.T) {
		if err := ValidateUsername("ab"); !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("expected ErrInvalidUsername, got %v", err)
		}
	})

	t.Run("too long", func(t *testing.T) {
		if err := ValidateUsername(strings.Repeat("a", MaxUsernameLength+1)); !errors.Is(err, ErrInvalidUsername) {
			t.Fatalf("expected ErrInvalidUsername, got %v", err)
		}
	})

	t.Run("forbidden characters", func(t *testing.T) {
		for _, name := range []string{"al ice", "bob!", "@carol", "dave;drop"} {
			if err := ValidateUsername(name); !errors.Is(err, ErrInvalidUsername) {
				t.Fatalf("expected ErrInvalidUsername for %q, got %v", name, err)
			}
		}
	})
}

func TestValidateAddress(t *testing.T) {
	t.Parallel()

	if err := ValidateAddress("0x52908400098527886E0F7030069857D2E4169EE7"); err != nil {
		t.Fatalf("expected checksummed address to be valid, got %v", err)
	}

	if err := ValidateAddress("0xde709f2102306220921060314715629080e2fb77"); err != nil {
		t.Fatalf("expected lowercase address to be valid, got %v", err)
	}

	for _, bad := range []string{"", "0x123", "de709f2102306220921060314715629080e2fb77", "0xZZ709f2102306220921060314715629080e2fb77"} {
		if err := ValidateAddress(bad); !errors.Is(err, ErrInvalidAddress) {
			t.Fatalf("expected ErrInvalidAddress for %q, got %v", bad, err)
		}
	}
}

func TestSameAddress(t *testing.T) {
	t.Parallel()

	if !SameAddress("0x52908400098527886E0F7030069857D2E4169EE7", "0x52908400098527886e0f7030069857d2e4169ee7") {
		t.Fatal("expected addresses differing only in case to match")
	}

	if SameAddress("0x52908400098527886E0F7030069857D2E4169EE7", "0xde709f2102306220921060314715629080e2fb77") {
		t.Fatal("expected different addresses not to match")
	}
}

func TestValidateEmail(t *testing.T) {
	t.Parallel()

	if err := ValidateEmail("USER@example.com"); err != nil {
		t.Fatalf("expected valid email, got %v", err)
	}

	if err := ValidateEmail("invalid-email"); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
}

func TestValidatePassword(t *testing.T) {
	t.Parallel()

	if err := ValidatePassword("longenough"); err != nil {
		t.Fatalf("expected valid password, got %v", err)
	}

	if err := ValidatePassword("short"); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak for short password, got %v", err)
	}

	if err := ValidatePassword(strings.Repeat("A", MaxPasswordLength+1)); !errors.Is(err, ErrPasswordTooWeak) {
		t.Fatalf("expected ErrPasswordTooWeak for overly long password, got %v", err)
	}
}
