package application

import (
	"errors"
	"strings"
	"testing"
)

var fastArgon2 = Argon2idParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 8, KeyLength: 16}

func TestPasswordHash_RoundTrip(t *testing.T) {
	t.Parallel()

	hash, err := CreatePasswordHash("segredo1", fastArgon2)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if !strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$") {
		t.Fatalf("unexpected encoding %q", hash)
	}
	if err := VerifyPassword(hash, "segredo1"); err != nil {
		t.Fatalf("expected password to verify, got %v", err)
	}
	if err := VerifyPassword(hash, "outro"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	again, err := CreatePasswordHash("segredo1", fastArgon2)
	if err != nil {
		t.Fatalf("CreatePasswordHash failed: %v", err)
	}
	if again == hash {
		t.Fatal("expected distinct salts per hash")
	}
}

func TestVerifyPassword_RejectsMalformedHashes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		encoded string
		want    error
	}{
		{encoded: "plain", want: ErrInvalidPasswordHash},
		{encoded: "$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5", want: ErrInvalidPasswordHash},
		{encoded: "$argon2id$v=16$m=1,t=1,p=1$c2FsdA$a2V5", want: ErrIncompatiblePasswordVersion},
		{encoded: "$argon2id$v=19$bogus$c2FsdA$a2V5", want: ErrInvalidPasswordHash},
		{encoded: "$argon2id$v=19$m=1,t=1,p=1$!!$a2V5", want: ErrInvalidPasswordHash},
		{encoded: "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$", want: ErrInvalidPasswordHash},
	}
	for _, tc := range cases {
		if err := VerifyPassword(tc.encoded, "x"); !errors.Is(err, tc.want) {
			t.Errorf("VerifyPassword(%q) = %v, want %v", tc.encoded, err, tc.want)
		}
	}
}
