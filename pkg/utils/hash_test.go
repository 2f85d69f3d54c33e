package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal the plain password")
	}
	if !CheckPassword("hunter2", hash) {
		t.Fatal("correct password rejected")
	}
	if CheckPassword("hunter3", hash) {
		t.Fatal("wrong password accepted")
	}
}

func TestRandomKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 32; i++ {
		key := RandomKey(6)
		if len(key) != 6 {
			t.Fatalf("len = %d, want 6", len(key))
		}
		for _, r := range key {
			if !strings.ContainsRune(keyAlphabet, r) {
				t.Fatalf("unexpected rune %q in key %q", r, key)
			}
		}
		seen[key] = true
	}
	if len(seen) < 2 {
		t.Fatal("keys are not random")
	}
}
