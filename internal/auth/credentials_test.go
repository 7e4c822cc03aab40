package auth

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("Str0ngPass", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	match, err := CheckPassword("Str0ngPass", hash)
	if err != nil {
		t.Fatalf("CheckPassword: %v", err)
	}
	if !match {
		t.Error("expected correct password to match")
	}

	match, err = CheckPassword("WrongPass1", hash)
	if err != nil {
		t.Fatalf("CheckPassword mismatch: %v", err)
	}
	if match {
		t.Error("expected wrong password not to match")
	}
}

// TestCheckPasswordCorruptHash verifies a broken hash surfaces as an error
// rather than a silent mismatch.
func TestCheckPasswordCorruptHash(t *testing.T) {
	if _, err := CheckPassword("anything", "not-a-bcrypt-hash"); err == nil {
		t.Fatal("expected error for corrupt hash")
	}
}
