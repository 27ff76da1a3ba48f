// Copyright 2026 The bmcfleet Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/acmlab/bmcfleet/lib/credential"
)

func generate(t *testing.T) *Keypair {
	t.Helper()
	keypair, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair() error: %v", err)
	}
	t.Cleanup(func() { keypair.Close() })
	return keypair
}

func identitiesOf(t *testing.T, keypairs ...*Keypair) Identities {
	t.Helper()
	var all Identities
	for _, keypair := range keypairs {
		identities, err := ParseIdentities(keypair.PrivateKey)
		if err != nil {
			t.Fatalf("ParseIdentities() error: %v", err)
		}
		all = append(all, identities...)
	}
	return all
}

func TestGenerateKeypair(t *testing.T) {
	keypair := generate(t)

	if !strings.HasPrefix(keypair.PrivateKey.String(), "AGE-SECRET-KEY-1") {
		t.Error("PrivateKey does not have prefix AGE-SECRET-KEY-1")
	}
	if !strings.HasPrefix(keypair.PublicKey, "age1") {
		t.Errorf("PublicKey = %q, want prefix age1", keypair.PublicKey)
	}
	if err := ParsePublicKey(keypair.PublicKey); err != nil {
		t.Errorf("ParsePublicKey() error: %v", err)
	}

	other := generate(t)
	if keypair.PublicKey == other.PublicKey {
		t.Error("two generated keypairs have identical public keys")
	}
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	keypair := generate(t)

	plaintext := []byte("global:\n  bmc:\n    username: root\n    password: calvin\n")
	ciphertext, err := Encrypt(plaintext, []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if !IsEncrypted(ciphertext) {
		t.Error("IsEncrypted() = false for Encrypt output")
	}
	if bytes.Contains(ciphertext, []byte("calvin")) {
		t.Error("ciphertext contains the plaintext password")
	}

	decrypted, err := Decrypt(ciphertext, identitiesOf(t, keypair))
	if err != nil {
		t.Fatalf("Decrypt() error: %v", err)
	}
	if !bytes.Equal(decrypted, plaintext) {
		t.Errorf("Decrypt() = %q, want %q", decrypted, plaintext)
	}
}

func TestEncryptDecrypt_MultipleRecipients(t *testing.T) {
	operator := generate(t)
	escrow := generate(t)

	ciphertext, err := Encrypt([]byte("shared"), []string{operator.PublicKey, escrow.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	for name, keypair := range map[string]*Keypair{"operator": operator, "escrow": escrow} {
		decrypted, err := Decrypt(ciphertext, identitiesOf(t, keypair))
		if err != nil {
			t.Fatalf("Decrypt(%s) error: %v", name, err)
		}
		if string(decrypted) != "shared" {
			t.Errorf("Decrypt(%s) = %q", name, decrypted)
		}
	}
}

func TestDecrypt_WrongKey(t *testing.T) {
	owner := generate(t)
	stranger := generate(t)

	ciphertext, err := Encrypt([]byte("secret"), []string{owner.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(ciphertext, identitiesOf(t, stranger)); err == nil {
		t.Error("Decrypt() with the wrong key should fail")
	}
	if _, err := Decrypt(ciphertext, nil); err == nil {
		t.Error("Decrypt() without identities should fail")
	}
}

func TestDecrypt_Corrupted(t *testing.T) {
	keypair := generate(t)
	ciphertext, err := Encrypt([]byte("secret"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	corrupted := bytes.Replace(ciphertext, []byte("\n"), []byte("\nAAAA"), 2)
	if _, err := Decrypt(corrupted, identitiesOf(t, keypair)); err == nil {
		t.Error("Decrypt() of corrupted ciphertext should fail")
	}
	if _, err := Decrypt([]byte("plain: yaml\n"), identitiesOf(t, keypair)); err == nil {
		t.Error("Decrypt() of plaintext should fail")
	}
}

func TestEncrypt_Rejects(t *testing.T) {
	if _, err := Encrypt([]byte("x"), nil); err == nil {
		t.Error("Encrypt() with no recipients should fail")
	}
	if _, err := Encrypt([]byte("x"), []string{"not-a-key"}); err == nil {
		t.Error("Encrypt() with an invalid recipient should fail")
	}
}

func TestIsEncrypted(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"-----BEGIN AGE ENCRYPTED FILE-----\nYWdl\n", true},
		{"\n\n-----BEGIN AGE ENCRYPTED FILE-----\n", true},
		{"age-encryption.org/v1\n-> X25519 abc\n", true},
		{"global:\n  bmc:\n    username: root\n", false},
		{"", false},
	}
	for _, test := range tests {
		if got := IsEncrypted([]byte(test.input)); got != test.want {
			t.Errorf("IsEncrypted(%q) = %v, want %v", test.input, got, test.want)
		}
	}
}

func TestReadIdentities(t *testing.T) {
	keypair := generate(t)
	path := filepath.Join(t.TempDir(), "keys.txt")
	contents := "# created: 2026-03-01T12:00:00Z\n# public key: " + keypair.PublicKey + "\n" + keypair.PrivateKey.String() + "\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	identities, err := ReadIdentities(path)
	if err != nil {
		t.Fatalf("ReadIdentities() error: %v", err)
	}
	if len(identities) != 1 {
		t.Fatalf("ReadIdentities() returned %d identities, want 1", len(identities))
	}

	ciphertext, err := Encrypt([]byte("payload"), []string{keypair.PublicKey})
	if err != nil {
		t.Fatalf("Encrypt() error: %v", err)
	}
	if _, err := Decrypt(ciphertext, identities); err != nil {
		t.Errorf("Decrypt() with file identities: %v", err)
	}

	if _, err := ReadIdentities(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("ReadIdentities() of a missing file should fail")
	}
	invalid, err := credential.NewSecretFromString("AGE-SECRET-KEY-1NOTVALID")
	if err != nil {
		t.Fatalf("NewSecretFromString: %v", err)
	}
	defer invalid.Close()
	if _, err := ParseIdentities(invalid); err == nil {
		t.Error("ParseIdentities() of an invalid key should fail")
	}
}

func TestZero(t *testing.T) {
	data := []byte("calvin")
	Zero(data)
	if !bytes.Equal(data, make([]byte, 6)) {
		t.Errorf("Zero() left %q", data)
	}
}
