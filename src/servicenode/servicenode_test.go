package servicenode

import (
	stdnet "net"
	"testing"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/config"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/mosaicnetworks/servicenode/src/node/state"
	"github.com/mosaicnetworks/servicenode/src/peers"
	"github.com/mosaicnetworks/servicenode/src/wallet"
	"github.com/sirupsen/logrus"
)

func newTestConfig(t *testing.T) *config.Config {
	conf := config.NewTestConfig(t, logrus.DebugLevel)
	conf.SetDataDir(t.TempDir())
	conf.NoService = true
	conf.TickInterval = 10 * time.Millisecond
	return conf
}

func waitFor(t *testing.T, what string, cond func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// listen opens a TCP listener standing for the public service port.
func listen(t *testing.T) stdnet.Listener {
	l, err := stdnet.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	go func() {
		for {
			c, err := l.Accept()
			if err != nil {
				return
			}
			c.Close()
		}
	}()
	return l
}

func TestKeygen(t *testing.T) {
	conf := newTestConfig(t)

	pubHex, err := Keygen(conf, "signing")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := keys.ParsePublicKeyHex(pubHex); err != nil {
		t.Fatalf("Keygen returned an invalid public key: %v", err)
	}

	if _, err := Keygen(conf, "signing"); err == nil {
		t.Fatal("Keygen should not overwrite an existing key")
	}
}

func TestUnconfiguredNode(t *testing.T) {
	conf := newTestConfig(t)

	_, trans := net.NewInmemTransport("")

	sn := NewServiceNode(conf)
	sn.Transport = trans

	if err := sn.Init(); err != nil {
		t.Fatal(err)
	}

	sn.RunAsync()
	defer sn.Shutdown()

	waitFor(t, "first tick", func() bool {
		return !sn.Node.Snapshot().LastTick.IsZero()
	})

	if s := sn.Node.GetState(); s != state.Initial {
		t.Fatalf("unconfigured node should stay INITIAL, got %s", s)
	}
}

func TestInitBadMode(t *testing.T) {
	conf := newTestConfig(t)
	conf.Mode = "remote"

	_, trans := net.NewInmemTransport("")

	sn := NewServiceNode(conf)
	sn.Transport = trans

	if err := sn.Init(); err == nil {
		t.Fatal("Init should fail with an unknown mode")
	}
	sn.Shutdown()
}

func TestInitPeersFile(t *testing.T) {
	conf := newTestConfig(t)
	conf.BindAddr = "127.0.0.1:0"

	jsonPeers := peers.NewJSONPeerSet(conf.DataDir)
	if err := jsonPeers.Write([]*peers.Peer{
		peers.NewPeer("127.0.0.1:19001", "alice"),
		peers.NewPeer("127.0.0.1:19002", "bob"),
	}); err != nil {
		t.Fatal(err)
	}

	sn := NewServiceNode(conf)
	if err := sn.Init(); err != nil {
		t.Fatal(err)
	}
	defer sn.Shutdown()

	tcp, ok := sn.Transport.(*net.NetworkTransport)
	if !ok {
		t.Fatalf("expected a NetworkTransport, got %T", sn.Transport)
	}
	if len(tcp.Peers()) != 2 {
		t.Fatalf("expected 2 peers, got %v", tcp.Peers())
	}
}

// A self-hosted node reaches STARTED and its announcement is recorded by a
// second, unconfigured, node listening on the same in-memory network.
func TestSelfHostedAnnouncesToPeer(t *testing.T) {
	service := listen(t)

	// observer
	obsConf := newTestConfig(t)
	_, obsTrans := net.NewInmemTransport("")
	observer := NewServiceNode(obsConf)
	observer.Transport = obsTrans
	if err := observer.Init(); err != nil {
		t.Fatal(err)
	}

	// self-hosted node
	conf := newTestConfig(t)
	conf.Mode = config.ModeSelf
	conf.Collateral = "c0ffee-0"
	conf.ServiceAddr = service.Addr().String()

	collPubHex, err := Keygen(conf, conf.CollateralKeyID)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Keygen(conf, conf.SigningKeyID); err != nil {
		t.Fatal(err)
	}
	collPub, _ := keys.ParsePublicKeyHex(collPubHex)

	_, trans := net.NewInmemTransport("")
	trans.Connect(obsTrans.LocalAddr(), obsTrans)

	sn := NewServiceNode(conf)
	sn.Transport = trans
	if err := sn.Init(); err != nil {
		t.Fatal(err)
	}

	ref, _ := conf.CollateralRef()
	if err := sn.Store.SetOutput(&wallet.OutputRecord{
		Outpoint:       ref,
		Value:          conf.CollateralAmount,
		Height:         86,
		ControllingKey: collPub,
	}); err != nil {
		t.Fatal(err)
	}
	sn.Tracker.SetHeights(100, 100)

	observer.RunAsync()
	defer observer.Shutdown()
	sn.RunAsync()
	defer sn.Shutdown()

	waitFor(t, "STARTED", func() bool {
		return sn.Node.GetState() == state.Started
	})

	waitFor(t, "announcement", func() bool {
		_, ok := observer.List.Get(collateral.Outpoint{TxID: "c0ffee", Index: 0})
		return ok
	})

	snap := sn.Node.Snapshot()
	if !snap.PingerEnabled {
		t.Fatal("pinger should be enabled once STARTED")
	}
	if snap.PingsSent == 0 {
		t.Fatal("a ping should go out when entering STARTED")
	}

	// the chain falls behind
	sn.Tracker.SetHeights(50, 100)

	waitFor(t, "NOT_CAPABLE", func() bool {
		return sn.Node.GetState() == state.NotCapable
	})
}

func TestBadgerStore(t *testing.T) {
	conf := newTestConfig(t)
	conf.Store = true

	_, trans := net.NewInmemTransport("")

	sn := NewServiceNode(conf)
	sn.Transport = trans
	if err := sn.Init(); err != nil {
		t.Fatal(err)
	}

	if _, ok := sn.Store.(*wallet.BadgerOutputStore); !ok {
		t.Fatalf("expected a badger store, got %T", sn.Store)
	}

	sn.Shutdown()
}
