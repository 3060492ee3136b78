// Copyright (c) 2026 RoadRW. All rights reserved.

package auth

import (
	"context"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// # Encrypted File Store

// fileMagic identifies the credential file format version.
var fileMagic = []byte("RWC1")

const fileSaltSize = 16

// scrypt parameters (interactive profile).
const (
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

// FileStore is a [CredentialStore] backed by a single file on disk, the
// gateway's analog of the browser's persistent storage.
//
// # Layout
//
//	magic (4) || salt (16) || nonce (24) || XChaCha20-Poly1305 ciphertext
//
// Tokens are encrypted at rest under a key derived from the configured
// passphrase with scrypt. A fresh salt and nonce are drawn on every save.
//
// # Atomicity
//
// Save writes to a temp file in the same directory and renames it over the
// target, so a concurrent Load observes either the old record or the new
// one, never a torn write.
type FileStore struct {
	path       string
	passphrase string
}

// NewFileStore creates a file-backed credential store at path.
func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{path: path, passphrase: passphrase}
}

// Save encrypts and atomically persists the session.
func (s *FileStore) Save(_ context.Context, session *Session) error {
	plaintext, err := encodeSession(session)
	if err != nil {
		return fmt.Errorf("auth: encode session: %w", err)
	}

	salt := make([]byte, fileSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("auth: read salt: %w", err)
	}

	aead, err := s.sealer(salt)
	if err != nil {
		return err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("auth: read nonce: %w", err)
	}

	record := make([]byte, 0, len(fileMagic)+len(salt)+len(nonce)+len(plaintext)+aead.Overhead())
	record = append(record, fileMagic...)
	record = append(record, salt...)
	record = append(record, nonce...)
	record = aead.Seal(record, nonce, plaintext, fileMagic)

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".console-session-*")
	if err != nil {
		return fmt.Errorf("auth: create temp credential file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(record); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("auth: write credential file: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("auth: chmod credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("auth: close credential file: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("auth: replace credential file: %w", err)
	}
	return nil
}

// Load reads and decrypts the stored session.
//
// Any defect — missing file, truncated record, wrong passphrase, corrupt
// ciphertext, partial session — yields (nil, nil): the session is simply
// absent and the operator authenticates again.
func (s *FileStore) Load(_ context.Context) (*Session, error) {
	record, err := os.ReadFile(s.path)
	if err != nil {
		return nil, nil
	}

	headerLen := len(fileMagic) + fileSaltSize
	if len(record) < headerLen || string(record[:len(fileMagic)]) != string(fileMagic) {
		return nil, nil
	}
	salt := record[len(fileMagic):headerLen]

	aead, err := s.sealer(salt)
	if err != nil {
		return nil, nil
	}
	if len(record) < headerLen+aead.NonceSize() {
		return nil, nil
	}
	nonce := record[headerLen : headerLen+aead.NonceSize()]
	ciphertext := record[headerLen+aead.NonceSize():]

	plaintext, err := aead.Open(nil, nonce, ciphertext, fileMagic)
	if err != nil {
		return nil, nil
	}

	return decodeSession(plaintext), nil
}

// Clear removes the credential file. A missing file is already clear.
func (s *FileStore) Clear(_ context.Context) error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("auth: remove credential file: %w", err)
	}
	return nil
}

// sealer derives the AEAD for the given salt from the store passphrase.
func (s *FileStore) sealer(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(s.passphrase), salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
	if err != nil {
		return nil, fmt.Errorf("auth: derive credential key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("auth: init cipher: %w", err)
	}
	return aead, nil
}
