package node

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mosaicnetworks/servicenode/src/chain"
	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/mosaicnetworks/servicenode/src/message"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/mosaicnetworks/servicenode/src/node/mode"
	"github.com/mosaicnetworks/servicenode/src/wallet"
)

var (
	testRef  = collateral.Outpoint{TxID: "4a5e1e4baab89f3a32518a88c31bc87f", Index: 1}
	testAddr = net.ServiceAddress("203.0.113.7:9999")
	baseTime = time.Unix(1600000000, 0)
)

// recordingTransport keeps every message it is asked to broadcast.
type recordingTransport struct {
	sync.Mutex
	addr          net.ServiceAddress
	fail          error
	announcements []message.Announcement
	pings         []message.Ping
}

func (r *recordingTransport) Listen()                  {}
func (r *recordingTransport) Consumer() <-chan net.RPC { return nil }
func (r *recordingTransport) LocalAddr() string        { return string(r.addr) }
func (r *recordingTransport) AdvertiseAddr() string    { return string(r.addr) }
func (r *recordingTransport) Close() error             { return nil }

func (r *recordingTransport) LocalReachableAddress() (net.ServiceAddress, bool) {
	r.Lock()
	defer r.Unlock()
	return r.addr, r.addr != ""
}

func (r *recordingTransport) Broadcast(msg interface{}) error {
	r.Lock()
	defer r.Unlock()

	if r.fail != nil {
		return r.fail
	}

	switch m := msg.(type) {
	case *message.Announcement:
		r.announcements = append(r.announcements, *m)
	case *message.Ping:
		r.pings = append(r.pings, *m)
	default:
		return errors.New("unexpected message")
	}
	return nil
}

func (r *recordingTransport) setFail(err error) {
	r.Lock()
	defer r.Unlock()
	r.fail = err
}

func (r *recordingTransport) counts() (int, int) {
	r.Lock()
	defer r.Unlock()
	return len(r.announcements), len(r.pings)
}

func (r *recordingTransport) sentPings() []message.Ping {
	r.Lock()
	defer r.Unlock()
	return append([]message.Ping{}, r.pings...)
}

func (r *recordingTransport) sentAnnouncements() []message.Announcement {
	r.Lock()
	defer r.Unlock()
	return append([]message.Announcement{}, r.announcements...)
}

type fakePorts struct {
	sync.Mutex
	err error
}

func (f *fakePorts) CheckPort(ctx context.Context, addr net.ServiceAddress) error {
	f.Lock()
	defer f.Unlock()
	return f.err
}

func (f *fakePorts) setErr(err error) {
	f.Lock()
	defer f.Unlock()
	f.err = err
}

// flakyWallet fails to sign with one key while still reporting it.
type flakyWallet struct {
	*wallet.Keystore
	mu      sync.Mutex
	failKey string
}

func (w *flakyWallet) Sign(keyID string, msg []byte) (string, error) {
	w.mu.Lock()
	fail := keyID == w.failKey
	w.mu.Unlock()

	if fail {
		return "", errors.New("device disconnected")
	}
	return w.Keystore.Sign(keyID, msg)
}

func (w *flakyWallet) setFailKey(keyID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failKey = keyID
}

type testEnv struct {
	conf          *Config
	tracker       *chain.Tracker
	store         *wallet.InmemOutputStore
	keystore      *wallet.Keystore
	wallet        *flakyWallet
	trans         *recordingTransport
	ports         *fakePorts
	collateralKey *ecdsa.PrivateKey
	signingKey    *ecdsa.PrivateKey
}

// newTestEnv returns collaborators for which every capability check passes:
// chain synced at height 100, a 1000 collateral output with exactly 15
// confirmations, an open port and an unlocked wallet.
func newTestEnv(t *testing.T) *testEnv {
	conf := TestConfig(t)
	conf.Collateral = testRef
	conf.CollateralAmount = 1000
	conf.MinConfirmations = 15
	conf.PingInterval = 10 * time.Minute

	tracker := chain.NewTracker(0)
	tracker.SetHeights(100, 100)

	store := wallet.NewInmemOutputStore()
	ks := wallet.NewKeystore(store, tracker, "", common.NewTestEntry(t, "wallet"))

	ck, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	sk, err := keys.GenerateECDSAKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := ks.AddKey("collateral", ck); err != nil {
		t.Fatal(err)
	}
	if err := ks.AddKey("signing", sk); err != nil {
		t.Fatal(err)
	}

	env := &testEnv{
		conf:          conf,
		tracker:       tracker,
		store:         store,
		keystore:      ks,
		wallet:        &flakyWallet{Keystore: ks},
		trans:         &recordingTransport{addr: testAddr},
		ports:         &fakePorts{},
		collateralKey: ck,
		signingKey:    sk,
	}

	env.setOutput(86, ck)

	return env
}

func (e *testEnv) setOutput(height int64, controller *ecdsa.PrivateKey) {
	e.store.SetOutput(&wallet.OutputRecord{
		Outpoint:       testRef,
		Value:          1000,
		Height:         height,
		ControllingKey: keys.FromPublicKey(&controller.PublicKey),
	})
}

func (e *testEnv) selfHosted() mode.SelfHosted {
	return mode.SelfHosted{
		SigningKeyID:    "signing",
		CollateralKeyID: "collateral",
	}
}

func (e *testEnv) newNode(m mode.Mode) *ActiveNode {
	return NewActiveNode(e.conf, m, e.wallet, e.tracker, e.trans, e.ports)
}

func (e *testEnv) prober() *Prober {
	return NewProber(e.conf, e.tracker, e.wallet, e.trans, e.ports)
}
