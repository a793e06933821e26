// Package servicenode assembles a service node from its configuration: the
// wallet and its output store, the chain tracker, the peer transport, the list
// of service nodes heard from, the activation state machine and the status API.
package servicenode

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/mosaicnetworks/servicenode/src/chain"
	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/config"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/mosaicnetworks/servicenode/src/metrics"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/mosaicnetworks/servicenode/src/node"
	"github.com/mosaicnetworks/servicenode/src/peers"
	"github.com/mosaicnetworks/servicenode/src/service"
	"github.com/mosaicnetworks/servicenode/src/wallet"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// ServiceNode is a complete service node. Transport and Ports may be set
// before Init to replace the TCP defaults, as tests do with an InmemTransport.
type ServiceNode struct {
	Config *config.Config

	Node      *node.ActiveNode
	Wallet    *wallet.Keystore
	Store     wallet.OutputStore
	Tracker   *chain.Tracker
	Transport net.Transport
	Ports     net.PortChecker
	List      *peers.ServiceNodeList
	Service   *service.Service
	Registry  *prometheus.Registry

	logger *logrus.Entry

	shutdownCh   chan struct{}
	shutdownOnce sync.Once
	wg           sync.WaitGroup
}

// NewServiceNode creates a ServiceNode. Init must be called before Run.
func NewServiceNode(conf *config.Config) *ServiceNode {
	return &ServiceNode{
		Config:     conf,
		logger:     conf.Logger(),
		shutdownCh: make(chan struct{}),
	}
}

func (s *ServiceNode) initStore() error {
	if !s.Config.Store {
		s.Store = wallet.NewInmemOutputStore()

		s.logger.Debug("created new in-mem output store")

		return nil
	}

	s.logger.WithField("path", s.Config.DatabaseDir).Debug("Attempting to load or create database")

	store, err := wallet.NewBadgerOutputStore(s.Config.DatabaseDir, s.logger)
	if err != nil {
		return err
	}

	s.Store = store

	return nil
}

func (s *ServiceNode) initTracker() {
	s.Tracker = chain.NewTracker(s.Config.SyncTolerance)
}

func (s *ServiceNode) initWallet() error {
	s.Wallet = wallet.NewKeystore(s.Store, s.Tracker, s.Config.Passphrase, s.logger)

	if s.Config.Passphrase != "" && !s.Config.Locked {
		if err := s.Wallet.Unlock(s.Config.Passphrase); err != nil {
			return err
		}
	}

	for _, keyID := range s.Config.KeyIDs() {
		kf := keys.NewKeyFile(s.Config.Keyfile(keyID))

		if err := s.Wallet.LoadKey(keyID, kf); err != nil {
			// the prober reports the missing key
			s.logger.WithError(err).WithField("key_id", keyID).Warn("Cannot load key")
		}
	}

	return nil
}

func (s *ServiceNode) initTransport() error {
	if s.Transport != nil {
		return nil
	}

	trans, err := net.NewTCPTransport(
		s.Config.BindAddr,
		s.Config.AdvertiseAddr,
		s.Config.MaxPool,
		s.Config.TCPTimeout,
		s.logger.WithField("prefix", "transport"),
	)
	if err != nil {
		return errors.Wrap(err, "failed to create transport")
	}

	s.Transport = trans

	return nil
}

// initPeers registers the service nodes listed in peers.json with the
// transport. A missing file leaves the node without peers.
func (s *ServiceNode) initPeers() error {
	adder, ok := s.Transport.(interface{ AddPeer(string) })
	if !ok {
		return nil
	}

	peerSet := peers.NewJSONPeerSet(s.Config.DataDir)

	list, err := peerSet.Peers()
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.WithField("path", peerSet.Path()).Warn("No peers file")
			return nil
		}
		return err
	}

	addrs := peers.BroadcastAddrs(list, s.Transport.AdvertiseAddr())

	for _, addr := range addrs {
		adder.AddPeer(addr)
	}

	s.logger.WithField("peers", len(addrs)).Debug("Loaded peers")

	return nil
}

func (s *ServiceNode) initList() {
	var verifier *collateral.Verifier
	if s.Config.VerifyPeers {
		verifier = collateral.NewVerifier(s.Wallet, s.Config.CollateralAmount, s.Config.MinConfirmations)
	}

	s.List = peers.NewServiceNodeList(verifier, s.Config.ProbeTimeout, s.logger.WithField("prefix", "peers"))
}

func (s *ServiceNode) initNode() error {
	nodeConf, err := s.Config.NodeConfig()
	if err != nil {
		return err
	}

	m, err := s.Config.NodeMode()
	if err != nil {
		return err
	}

	if s.Ports == nil {
		s.Ports = net.NewTCPPortChecker()
	}

	s.Node = node.NewActiveNode(nodeConf, m, s.Wallet, s.Tracker, s.Transport, s.Ports)

	return nil
}

func (s *ServiceNode) initService() error {
	s.Registry = prometheus.NewRegistry()

	if err := metrics.Register(s.Registry, s.Node, s.List); err != nil {
		return err
	}

	if !s.Config.NoService {
		s.Service = service.NewService(s.Config.ServiceListen,
			s.Node,
			s.List,
			s.Tracker,
			s.Wallet,
			s.Registry,
			s.logger.WithField("prefix", "service"))
	}

	return nil
}

// Init builds every component. It fails on configuration errors; problems the
// node can recover from, such as a missing key, are reported through its state.
func (s *ServiceNode) Init() error {
	if err := s.initStore(); err != nil {
		return err
	}

	s.initTracker()

	if err := s.initWallet(); err != nil {
		return err
	}

	if err := s.initTransport(); err != nil {
		return err
	}

	if err := s.initPeers(); err != nil {
		return err
	}

	s.initList()

	if err := s.initNode(); err != nil {
		return err
	}

	if err := s.initService(); err != nil {
		return err
	}

	return nil
}

// RunAsync starts every component in the background.
func (s *ServiceNode) RunAsync() {
	s.logger.WithFields(logrus.Fields{
		"mode":       s.Config.Mode,
		"collateral": s.Config.Collateral,
		"listen":     s.Transport.LocalAddr(),
	}).Info("Starting service node")

	if s.Service != nil {
		go s.Service.Serve()
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.Transport.Listen()
	}()
	go func() {
		defer s.wg.Done()
		s.List.Serve(s.Transport.Consumer(), s.shutdownCh)
	}()

	if s.Config.PeerExpiry > 0 {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.pruneLoop()
		}()
	}

	s.Node.RunAsync()
}

// Run starts every component and blocks until Shutdown is called.
func (s *ServiceNode) Run() {
	s.RunAsync()
	<-s.shutdownCh
}

func (s *ServiceNode) pruneLoop() {
	ticker := time.NewTicker(s.Config.PeerExpiry / 4)
	defer ticker.Stop()

	for {
		select {
		case now := <-ticker.C:
			if n := s.List.Prune(now.Add(-s.Config.PeerExpiry)); n > 0 {
				s.logger.WithField("removed", n).Debug("Pruned silent service nodes")
			}
		case <-s.shutdownCh:
			return
		}
	}
}

// Shutdown stops the control loop, the API and the transport, then closes the
// wallet and its store.
func (s *ServiceNode) Shutdown() {
	s.shutdownOnce.Do(func() {
		s.logger.Info("Shutting down")

		if s.Node != nil {
			s.Node.Shutdown()
		}

		if s.Service != nil {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			if err := s.Service.Shutdown(ctx); err != nil {
				s.logger.WithError(err).Warn("Failed to stop API")
			}
			cancel()
		}

		close(s.shutdownCh)

		if s.Transport != nil {
			if err := s.Transport.Close(); err != nil {
				s.logger.WithError(err).Warn("Failed to close transport")
			}
		}

		s.wg.Wait()

		// the active node closed the wallet, which closed the store
		if s.Node == nil && s.Wallet != nil {
			s.Wallet.Close()
		}
	})
}

// Keygen writes a new key under keyID in the data directory. It refuses to
// overwrite an existing key.
func Keygen(conf *config.Config, keyID string) (string, error) {
	kf := keys.NewKeyFile(conf.Keyfile(keyID))

	if kf.Exists() {
		return "", fmt.Errorf("A key already lives under: %s", kf.Path())
	}

	key, err := keys.GenerateECDSAKey()
	if err != nil {
		return "", err
	}
	defer keys.ZeroKey(key)

	if err := kf.WriteKey(key); err != nil {
		return "", errors.Wrap(err, "writing key")
	}

	return keys.PublicKeyHex(&key.PublicKey), nil
}
