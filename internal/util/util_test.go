package util

import (
	"bytes"
	"crypto/tls"
	"strings"
	"testing"
)

func TestAES(t *testing.T) {
	key, err := RandomBytes(AESKeySize)
	if err != nil {
		t.Fatalf("RandomBytes failed: %v", err)
	}
	plainText := []byte("hello world")
	aad := []byte("context")

	t.Run("EncryptDecryptWithAAD", func(t *testing.T) {
		cipherText, err := EncryptAESWithAAD(plainText, key, aad)
		if err != nil {
			t.Fatalf("EncryptAESWithAAD failed: %v", err)
		}

		decrypted, err := DecryptAESWithAAD(cipherText, key, aad)
		if err != nil {
			t.Fatalf("DecryptAESWithAAD failed: %v", err)
		}

		if !bytes.Equal(plainText, decrypted) {
			t.Errorf("expected %s, got %s", plainText, decrypted)
		}
	})

	t.Run("TamperAAD", func(t *testing.T) {
		cipherText, _ := EncryptAESWithAAD(plainText, key, aad)
		_, err := DecryptAESWithAAD(cipherText, key, []byte("wrong context"))
		if err == nil {
			t.Error("expected error with wrong AAD, got nil")
		}
	})

	t.Run("TamperCipherText", func(t *testing.T) {
		cipherText, _ := EncryptAESWithAAD(plainText, key, aad)
		cipherText[len(cipherText)-1] ^= 0xFF
		_, err := DecryptAESWithAAD(cipherText, key, aad)
		if err == nil {
			t.Error("expected error with tampered ciphertext, got nil")
		}
	})

	t.Run("RejectBadKeySize", func(t *testing.T) {
		_, err := EncryptAESWithAAD(plainText, []byte("too short"), aad)
		if err == nil {
			t.Error("expected error with wrong key size, got nil")
		}
	})
}

func TestArgon2id(t *testing.T) {
	params := DefaultArgon2idParams()
	passphrase := "correct horse battery staple"
	salt := []byte("random salt")

	key1, err := DeriveArgon2idKey(passphrase, salt, params)
	if err != nil {
		t.Fatalf("DeriveArgon2idKey failed: %v", err)
	}
	if len(key1) != 32 {
		t.Errorf("expected key length 32, got %d", len(key1))
	}

	key2, _ := DeriveArgon2idKey(passphrase, salt, params)
	if !bytes.Equal(key1, key2) {
		t.Error("derivation should be deterministic")
	}

	key3, _ := DeriveArgon2idKey("wrong passphrase", salt, params)
	if bytes.Equal(key1, key3) {
		t.Error("different passphrases should derive different keys")
	}
}

func TestRandomChars(t *testing.T) {
	s, err := RandomChars(8)
	if err != nil {
		t.Fatalf("RandomChars failed: %v", err)
	}
	if len(s) != 8 {
		t.Errorf("expected 8 characters, got %d", len(s))
	}

	for _, r := range s {
		if !strings.ContainsRune(string(codeAlphabet), r) {
			t.Errorf("character %q not in alphabet", r)
		}
	}

	s2, _ := RandomChars(8)
	s3, _ := RandomChars(8)
	if s == s2 && s == s3 {
		t.Error("repeated draws should not all collide")
	}
}

func TestCopyBytes(t *testing.T) {
	src := []byte{1, 2, 3}
	dst := CopyBytes(src)
	src[0] = 9
	if dst[0] != 1 {
		t.Error("CopyBytes should return an independent copy")
	}
}

func TestGenerateSelfSignedCert(t *testing.T) {
	cert, err := GenerateSelfSignedCert()
	if err != nil {
		t.Fatalf("GenerateSelfSignedCert failed: %v", err)
	}
	if len(cert.Certificate) == 0 {
		t.Fatal("expected certificate bytes")
	}

	cfg := &tls.Config{Certificates: []tls.Certificate{cert}}
	if len(cfg.Certificates) != 1 {
		t.Error("certificate should be usable in a tls.Config")
	}
}
