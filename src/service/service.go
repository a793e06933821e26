package service

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/mosaicnetworks/servicenode/src/node/state"
	"github.com/mosaicnetworks/servicenode/src/peers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// StatusProvider is implemented by node.ActiveNode.
type StatusProvider interface {
	Snapshot() state.Snapshot
	GetStatusSummary() string
}

// NodeLister is implemented by peers.ServiceNodeList.
type NodeLister interface {
	Nodes() []peers.NodeInfo
}

// HeightSetter is implemented by chain.Tracker.
type HeightSetter interface {
	SetHeights(local, network int64)
	Heights() (local, network int64)
}

// WalletLocker is implemented by wallet.Keystore.
type WalletLocker interface {
	Lock()
	Unlock(passphrase string) error
	IsUnlocked() bool
}

// WalletStatus is the response of the wallet routes.
type WalletStatus struct {
	Unlocked bool `json:"unlocked"`
}

// UnlockRequest is the body of POST /wallet/unlock.
type UnlockRequest struct {
	Passphrase string `json:"passphrase"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State         string
	StateCode     uint32
	Reason        string
	Type          string
	Summary       string
	PingerEnabled bool
	ServiceAddr   string
	LastPing      int64

	PingsSent         uint64
	AnnouncementsSent uint64
	BroadcastFailures uint64
}

// ChainHeights is the body of PUT /chain and of its response.
type ChainHeights struct {
	Local   int64 `json:"local"`
	Network int64 `json:"network"`
}

// Service serves the status API of a service node.
type Service struct {
	sync.Mutex

	bindAddress string
	node        StatusProvider
	nodes       NodeLister
	chain       HeightSetter
	wallet      WalletLocker
	gatherer    prometheus.Gatherer

	router *mux.Router
	server *http.Server
	logger *logrus.Entry
}

// NewService creates a Service. nodes, chain, wallet and gatherer are
// optional; the corresponding routes are only registered when they are set.
func NewService(bindAddress string,
	n StatusProvider,
	nodes NodeLister,
	chain HeightSetter,
	wallet WalletLocker,
	gatherer prometheus.Gatherer,
	logger *logrus.Entry) *Service {

	service := Service{
		bindAddress: bindAddress,
		node:        n,
		nodes:       nodes,
		chain:       chain,
		wallet:      wallet,
		gatherer:    gatherer,
		router:      mux.NewRouter(),
		logger:      logger,
	}

	service.registerHandlers()

	return &service
}

func (s *Service) registerHandlers() {
	s.logger.Debug("Registering API handlers")

	s.router.HandleFunc("/status", s.makeHandler(s.GetStatus)).Methods("GET")

	if s.nodes != nil {
		s.router.HandleFunc("/nodes", s.makeHandler(s.GetNodes)).Methods("GET")
	}

	if s.chain != nil {
		s.router.HandleFunc("/chain", s.makeHandler(s.GetChain)).Methods("GET")
		s.router.HandleFunc("/chain", s.makeHandler(s.PutChain)).Methods("PUT")
	}

	if s.wallet != nil {
		s.router.HandleFunc("/wallet", s.makeHandler(s.GetWallet)).Methods("GET")
		s.router.HandleFunc("/wallet/lock", s.makeHandler(s.LockWallet)).Methods("POST")
		s.router.HandleFunc("/wallet/unlock", s.makeHandler(s.UnlockWallet)).Methods("POST")
	}

	if s.gatherer != nil {
		s.router.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
}

func (s *Service) makeHandler(fn func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.Lock()
		defer s.Unlock()

		// enable CORS
		w.Header().Set("Access-Control-Allow-Origin", "*")

		fn(w, r)
	}
}

// Handler returns the router serving the API.
func (s *Service) Handler() http.Handler {
	return s.router
}

// Serve calls ListenAndServe. This is a blocking call.
func (s *Service) Serve() {
	s.logger.WithField("bind_address", s.bindAddress).Debug("Serving API")

	s.Lock()
	s.server = &http.Server{
		Addr:    s.bindAddress,
		Handler: s.router,
	}
	server := s.server
	s.Unlock()

	err := server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		s.logger.Error(err)
	}
}

// Shutdown stops the HTTP server started by Serve.
func (s *Service) Shutdown(ctx context.Context) error {
	s.Lock()
	server := s.server
	s.Unlock()

	if server == nil {
		return nil
	}
	return server.Shutdown(ctx)
}

// GetStatus returns the activation state of the node.
func (s *Service) GetStatus(w http.ResponseWriter, r *http.Request) {
	snap := s.node.Snapshot()

	res := StatusResponse{
		State:             snap.State.String(),
		StateCode:         uint32(snap.State),
		Reason:            snap.Reason,
		Type:              snap.Mode.String(),
		Summary:           s.node.GetStatusSummary(),
		PingerEnabled:     snap.PingerEnabled,
		ServiceAddr:       snap.ServiceAddr,
		LastPing:          snap.LastPing,
		PingsSent:         snap.PingsSent,
		AnnouncementsSent: snap.AnnouncementsSent,
		BroadcastFailures: snap.BroadcastFailures,
	}

	writeJSON(w, res)
}

// GetNodes returns the service nodes heard from on the network.
func (s *Service) GetNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.nodes.Nodes())
}

// GetChain returns the chain heights fed to the sync tracker.
func (s *Service) GetChain(w http.ResponseWriter, r *http.Request) {
	local, network := s.chain.Heights()
	writeJSON(w, ChainHeights{Local: local, Network: network})
}

// PutChain updates the local and network chain heights.
func (s *Service) PutChain(w http.ResponseWriter, r *http.Request) {
	var h ChainHeights

	if err := json.NewDecoder(r.Body).Decode(&h); err != nil {
		s.logger.WithError(err).Error("Decoding chain heights")

		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if h.Local < 0 || h.Network < 0 {
		http.Error(w, "heights must not be negative", http.StatusBadRequest)

		return
	}

	s.chain.SetHeights(h.Local, h.Network)

	s.logger.WithFields(logrus.Fields{
		"local":   h.Local,
		"network": h.Network,
	}).Debug("Chain heights updated")

	writeJSON(w, h)
}

// GetWallet reports whether the wallet accepts to sign.
func (s *Service) GetWallet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, WalletStatus{Unlocked: s.wallet.IsUnlocked()})
}

// LockWallet locks the wallet. The node leaves STARTED on its next tick.
func (s *Service) LockWallet(w http.ResponseWriter, r *http.Request) {
	s.wallet.Lock()

	s.logger.Info("Wallet locked")

	writeJSON(w, WalletStatus{Unlocked: s.wallet.IsUnlocked()})
}

// UnlockWallet unlocks the wallet with the passphrase in the request body.
func (s *Service) UnlockWallet(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	if err := s.wallet.Unlock(req.Passphrase); err != nil {
		s.logger.WithError(err).Warn("Failed to unlock wallet")

		http.Error(w, err.Error(), http.StatusForbidden)

		return
	}

	s.logger.Info("Wallet unlocked")

	writeJSON(w, WalletStatus{Unlocked: s.wallet.IsUnlocked()})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")

	json.NewEncoder(w).Encode(v)
}
