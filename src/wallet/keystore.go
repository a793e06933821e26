package wallet

import (
	"context"
	"crypto/ecdsa"
	"crypto/subtle"
	"sync"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	cm "github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/crypto"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Keystore is the local Wallet. Keys are held by id; the store is either
// locked, and refuses to sign, or unlocked.
type Keystore struct {
	mu sync.RWMutex

	keys       map[string]*ecdsa.PrivateKey
	passphrase []byte
	unlocked   bool
	closed     bool

	outputs OutputStore
	tip     TipSource

	logger *logrus.Entry
}

// NewKeystore creates a Keystore reading outputs from store and computing
// confirmations against tip. A Keystore created with an empty passphrase starts
// unlocked; otherwise Unlock must be called before signing.
func NewKeystore(store OutputStore, tip TipSource, passphrase string, logger *logrus.Entry) *Keystore {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	ks := &Keystore{
		keys:     make(map[string]*ecdsa.PrivateKey),
		outputs:  store,
		tip:      tip,
		unlocked: passphrase == "",
		logger:   logger.WithField("prefix", "wallet"),
	}

	if passphrase != "" {
		ks.passphrase = crypto.SHA256([]byte(passphrase))
	}

	return ks
}

// AddKey registers a private key under keyID.
func (k *Keystore) AddKey(keyID string, key *ecdsa.PrivateKey) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return cm.NewErr("Wallet", cm.Closed, keyID)
	}
	if _, ok := k.keys[keyID]; ok {
		return cm.NewErr("Key", cm.KeyAlreadyExists, keyID)
	}

	k.keys[keyID] = key

	k.logger.WithFields(logrus.Fields{
		"key_id":      keyID,
		"fingerprint": keys.Fingerprint(keys.FromPublicKey(&key.PublicKey)),
	}).Debug("Added key")

	return nil
}

// LoadKey reads a key with rw and registers it under keyID.
func (k *Keystore) LoadKey(keyID string, rw keys.KeyReader) error {
	key, err := rw.ReadKey()
	if err != nil {
		return errors.Wrapf(err, "failed to read key %s", keyID)
	}
	return k.AddKey(keyID, key)
}

// RemoveKey drops and wipes the key registered under keyID. Signing with it
// fails afterwards, as with a disconnected hardware key.
func (k *Keystore) RemoveKey(keyID string) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if key, ok := k.keys[keyID]; ok {
		keys.ZeroKey(key)
		delete(k.keys, keyID)
	}
}

// Lock makes the Keystore refuse to sign until Unlock is called.
func (k *Keystore) Lock() {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.unlocked = false
}

// Unlock checks the passphrase and lets the Keystore sign again.
func (k *Keystore) Unlock(passphrase string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return cm.NewErr("Wallet", cm.Closed, "")
	}

	if k.passphrase != nil {
		got := crypto.SHA256([]byte(passphrase))
		if subtle.ConstantTimeCompare(got, k.passphrase) != 1 {
			return errors.New("wrong passphrase")
		}
	}

	k.unlocked = true
	return nil
}

// IsUnlocked implements Wallet.
func (k *Keystore) IsUnlocked() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()

	return k.unlocked && !k.closed
}

// Sign implements Wallet.
func (k *Keystore) Sign(keyID string, msg []byte) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return "", cm.NewErr("Wallet", cm.Closed, keyID)
	}
	if !k.unlocked {
		return "", cm.NewErr("Wallet", cm.Locked, keyID)
	}

	key, ok := k.keys[keyID]
	if !ok {
		return "", cm.NewErr("Key", cm.KeyNotFound, keyID)
	}

	return keys.SignEncoded(key, crypto.SHA256(msg))
}

// PublicKey implements Wallet.
func (k *Keystore) PublicKey(keyID string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.closed {
		return nil, cm.NewErr("Wallet", cm.Closed, keyID)
	}

	key, ok := k.keys[keyID]
	if !ok {
		return nil, cm.NewErr("Key", cm.KeyNotFound, keyID)
	}

	return keys.FromPublicKey(&key.PublicKey), nil
}

// GetCollateralOutput implements collateral.OutputSource.
func (k *Keystore) GetCollateralOutput(ctx context.Context, ref collateral.Outpoint) (collateral.Output, error) {
	if err := ctx.Err(); err != nil {
		return collateral.Output{}, err
	}

	rec, err := k.outputs.GetOutput(ref)
	if err != nil {
		return collateral.Output{}, err
	}

	var tip int64
	if k.tip != nil {
		tip = k.tip.Tip()
	}

	return collateral.Output{
		Value:          rec.Value,
		Confirmations:  confirmations(rec.Height, tip),
		ControllingKey: rec.ControllingKey,
		Spent:          rec.Spent,
	}, nil
}

// Close wipes every key and closes the output store. The Keystore is unusable
// afterwards.
func (k *Keystore) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.closed {
		return nil
	}

	for id, key := range k.keys {
		keys.ZeroKey(key)
		delete(k.keys, id)
	}
	k.closed = true
	k.unlocked = false

	k.logger.Debug("Closed keystore")

	return k.outputs.Close()
}
