package keys

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeyReader loads a private key from some storage.
type KeyReader interface {
	ReadKey() (*ecdsa.PrivateKey, error)
}

// KeyFile stores one private key as the hex dump of its D value. The file
// must only be accessible to its owner.
type KeyFile struct {
	path string
}

// NewKeyFile returns a KeyFile at path.
func NewKeyFile(path string) *KeyFile {
	return &KeyFile{path: path}
}

// Path returns the location of the file.
func (k *KeyFile) Path() string {
	return k.path
}

// Exists reports whether something already lives at Path.
func (k *KeyFile) Exists() bool {
	_, err := os.Stat(k.path)
	return err == nil
}

func (k *KeyFile) checkPerm() error {
	info, err := os.Stat(k.path)
	if err != nil {
		return err
	}

	if perm := info.Mode().Perm(); perm&0077 != 0 {
		return fmt.Errorf("key file %s is accessible to group or others (%o)", k.path, perm)
	}

	return nil
}

// ReadKey implements KeyReader.
func (k *KeyFile) ReadKey() (*ecdsa.PrivateKey, error) {
	if err := k.checkPerm(); err != nil {
		return nil, err
	}

	buf, err := os.ReadFile(k.path)
	if err != nil {
		return nil, err
	}

	raw, err := hex.DecodeString(strings.TrimSpace(string(buf)))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %v", k.path, err)
	}

	return ParsePrivateKey(raw)
}

// WriteKey creates the file, and its directory, with owner-only permissions.
// It never replaces an existing file.
func (k *KeyFile) WriteKey(key *ecdsa.PrivateKey) error {
	if err := os.MkdirAll(filepath.Dir(k.path), 0700); err != nil {
		return err
	}

	f, err := os.OpenFile(k.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}

	if _, err := f.WriteString(hex.EncodeToString(DumpPrivateKey(key)) + "\n"); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
