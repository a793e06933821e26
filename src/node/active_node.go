package node

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mosaicnetworks/servicenode/src/chain"
	"github.com/mosaicnetworks/servicenode/src/message"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/mosaicnetworks/servicenode/src/node/mode"
	"github.com/mosaicnetworks/servicenode/src/node/state"
	"github.com/mosaicnetworks/servicenode/src/wallet"
	"github.com/sirupsen/logrus"
)

// ActiveNode is the activation state machine of a service node. ManageState is
// called once per tick by a single control loop; status accessors can be
// called from any goroutine.
type ActiveNode struct {
	conf   *Config
	mode   mode.Mode
	logger *logrus.Entry

	state *state.Manager

	prober *Prober
	pinger *Pinger
	wallet wallet.Wallet
	trans  net.Transport

	// set while a tick is being evaluated
	inFlight int32

	// owned by the control loop
	everStarted   bool
	stableTicks   int
	pending       *message.Announcement
	lastAnnounced int64

	controlTimer *ControlTimer
	runWG        sync.WaitGroup
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewActiveNode creates an ActiveNode in the INITIAL state. m may be nil, in
// which case the node stays INITIAL.
func NewActiveNode(conf *Config,
	m mode.Mode,
	w wallet.Wallet,
	syncer chain.SyncService,
	trans net.Transport,
	ports net.PortChecker,
) *ActiveNode {

	logger := conf.Logger.WithFields(logrus.Fields{
		"prefix":     "node",
		"collateral": conf.Collateral.String(),
		"mode":       mode.Type(m).String(),
	})

	n := &ActiveNode{
		conf:         conf,
		mode:         m,
		logger:       logger,
		state:        state.NewManager(mode.Type(m)),
		prober:       NewProber(conf, syncer, w, trans, ports),
		wallet:       w,
		trans:        trans,
		controlTimer: NewFixedControlTimer(),
		shutdownCh:   make(chan struct{}),
	}

	if sh, ok := m.(mode.SelfHosted); ok {
		n.pinger = NewPinger(conf.Collateral,
			sh.SigningKeyID,
			w,
			trans,
			conf.PingInterval,
			logger.WithField("prefix", "pinger"))
	}

	return n
}

// ManageState evaluates one tick. It must not be called concurrently with
// itself.
func (n *ActiveNode) ManageState(now time.Time) {
	if !atomic.CompareAndSwapInt32(&n.inFlight, 0, 1) {
		n.logger.Panic("ManageState re-entered while a tick is in flight")
	}
	defer atomic.StoreInt32(&n.inFlight, 0)

	n.state.Update(func(s *state.Snapshot) {
		s.LastTick = now
	})

	if n.mode == nil || n.conf.Collateral.IsEmpty() {
		n.setState(state.Initial, ReasonNotConfigured, now)
		return
	}

	ctx := context.Background()

	switch m := n.mode.(type) {
	case mode.SelfHosted:
		n.manageStateLocal(ctx, m, now)
	case mode.OperatorHosted:
		n.manageStateRemote(ctx, m, now)
	}
}

// manageStateLocal handles a self-hosted node: full probe, then pings while
// STARTED.
func (n *ActiveNode) manageStateLocal(ctx context.Context, m mode.SelfHosted, now time.Time) {
	c := n.prober.Probe(ctx, m)

	started := n.apply(c, now, func(ts int64) (*message.Announcement, error) {
		return n.selfHostedAnnouncement(m, c.ServiceAddr, ts)
	})
	if !started {
		return
	}

	n.sendPing(ctx, now)
}

// manageStateRemote handles an operator-hosted node. Once STARTED there is
// nothing more to do locally; the operator pings.
func (n *ActiveNode) manageStateRemote(ctx context.Context, m mode.OperatorHosted, now time.Time) {
	c := n.prober.Probe(ctx, m)

	n.apply(c, now, func(ts int64) (*message.Announcement, error) {
		return n.operatorHostedAnnouncement(m, ts)
	})
}

// apply moves the state machine for the capability c and reports whether the
// node is STARTED at the end of the tick. announce builds and signs the
// announcement published when entering STARTED.
func (n *ActiveNode) apply(c Capability, now time.Time, announce func(ts int64) (*message.Announcement, error)) bool {
	cur := n.state.GetState()
	next := Transition(cur, c)

	if next != state.Started {
		if cur == state.Started {
			n.leaveStarted()
		}
		n.stableTicks = 0
		n.setState(next, transitionReason(cur, c), now)
		return false
	}

	if cur == state.Started {
		if n.pending != nil {
			n.broadcastAnnouncement()
		}
		return true
	}

	if n.everStarted && n.conf.ReentryTicks > 1 {
		n.stableTicks++
		if n.stableTicks < n.conf.ReentryTicks {
			n.setState(state.NotCapable,
				fmt.Sprintf("capability restored, waiting for %d/%d stable checks", n.stableTicks, n.conf.ReentryTicks),
				now)
			return false
		}
	}
	n.stableTicks = 0

	ts := now.Unix()
	if ts <= n.lastAnnounced {
		ts = n.lastAnnounced + 1
	}

	ann, err := announce(ts)
	if err != nil {
		n.logger.WithError(err).Warn("Failed to sign announcement")
		n.setState(state.NotCapable, ReasonSigningFailed, now)
		return false
	}

	n.lastAnnounced = ts
	n.everStarted = true
	n.pending = ann

	n.setStateWith(state.Started, "", now, func(s *state.Snapshot) {
		s.ServiceAddr = ann.ServiceAddr
	})

	n.broadcastAnnouncement()

	return true
}

// leaveStarted drops an unsent announcement. The next entry into STARTED
// publishes a new one; pings stay spaced by the ping interval across the gap.
func (n *ActiveNode) leaveStarted() {
	n.pending = nil
}

func (n *ActiveNode) selfHostedAnnouncement(m mode.SelfHosted, addr net.ServiceAddress, ts int64) (*message.Announcement, error) {
	collateralKey, err := n.wallet.PublicKey(m.CollateralKeyID)
	if err != nil {
		return nil, err
	}

	signingKey, err := n.wallet.PublicKey(m.SigningKeyID)
	if err != nil {
		return nil, err
	}

	ann := message.NewAnnouncement(n.conf.Collateral,
		collateralKey,
		signingKey,
		addr.String(),
		n.conf.ProtocolVersion,
		false,
		ts)

	return n.signAnnouncement(ann, m.CollateralKeyID)
}

func (n *ActiveNode) operatorHostedAnnouncement(m mode.OperatorHosted, ts int64) (*message.Announcement, error) {
	collateralKey, err := n.wallet.PublicKey(m.CollateralKeyID)
	if err != nil {
		return nil, err
	}

	operatorKey, err := m.Authorization.PubKeyBytes()
	if err != nil {
		return nil, err
	}

	ann := message.NewAnnouncement(n.conf.Collateral,
		collateralKey,
		operatorKey,
		m.Authorization.OperatorAddr.String(),
		n.conf.ProtocolVersion,
		true,
		ts)

	return n.signAnnouncement(ann, m.CollateralKeyID)
}

func (n *ActiveNode) signAnnouncement(ann *message.Announcement, keyID string) (*message.Announcement, error) {
	sig, err := n.wallet.Sign(keyID, ann.SigningBytes())
	if err != nil {
		return nil, err
	}
	ann.Signature = sig
	return ann, nil
}

// broadcastAnnouncement hands the pending announcement to the transport. It
// stays pending, and is retried on the next tick, if that fails.
func (n *ActiveNode) broadcastAnnouncement() {
	if err := n.trans.Broadcast(n.pending); err != nil {
		n.logger.WithError(err).Warn("Failed to broadcast announcement")
		n.state.Update(func(s *state.Snapshot) {
			s.BroadcastFailures++
		})
		return
	}

	n.logger.WithFields(logrus.Fields{
		"service_addr": n.pending.ServiceAddr,
		"fingerprint":  n.pending.Fingerprint,
	}).Info("Broadcast announcement")

	n.pending = nil
	n.state.Update(func(s *state.Snapshot) {
		s.AnnouncementsSent++
	})
}

// sendPing delegates to the pinger. A signing failure takes the node out of
// STARTED; a broadcast failure is only logged.
func (n *ActiveNode) sendPing(ctx context.Context, now time.Time) {
	res, err := n.pinger.MaybeSendPing(ctx, now)
	if err != nil {
		if perr, ok := err.(PingErr); ok && perr.Kind == SigningFailed {
			n.logger.WithError(err).Error("Failed to sign ping")
			n.leaveStarted()
			n.setState(state.NotCapable, ReasonSigningFailed, now)
			return
		}

		n.logger.WithError(err).Warn("Failed to send ping")
		n.state.Update(func(s *state.Snapshot) {
			s.BroadcastFailures++
		})
		return
	}

	if res == Sent {
		ts := n.pinger.LastTimestamp()
		n.state.Update(func(s *state.Snapshot) {
			s.PingsSent++
			s.LastPing = ts
		})
	}
}

func (n *ActiveNode) setState(s state.ActivationState, reason string, now time.Time) {
	n.setStateWith(s, reason, now, nil)
}

func (n *ActiveNode) setStateWith(s state.ActivationState, reason string, now time.Time, f func(*state.Snapshot)) {
	prev := n.state.SetStateWith(s, reason, now, f)
	if prev != s {
		n.logger.WithFields(logrus.Fields{
			"from":   prev.String(),
			"to":     s.String(),
			"reason": reason,
		}).Info("State transition")
	}
}

// RunAsync calls Run in a separate goroutine.
func (n *ActiveNode) RunAsync() {
	n.runWG.Add(1)
	go func() {
		defer n.runWG.Done()
		n.run()
	}()
}

// Run evaluates a first tick immediately, then one every TickInterval until
// Shutdown is called.
func (n *ActiveNode) Run() {
	n.runWG.Add(1)
	defer n.runWG.Done()
	n.run()
}

func (n *ActiveNode) run() {
	go n.controlTimer.Run(n.conf.TickInterval)

	select {
	case <-n.shutdownCh:
		return
	default:
	}

	n.ManageState(time.Now())

	for {
		select {
		case t := <-n.controlTimer.tickCh:
			n.ManageState(t)
		case <-n.shutdownCh:
			return
		}
	}
}

// Shutdown stops the control loop, waits for the tick in flight, and closes
// the wallet.
func (n *ActiveNode) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		close(n.shutdownCh)
		n.controlTimer.Shutdown()

		n.runWG.Wait()

		if err := n.wallet.Close(); err != nil {
			n.logger.WithError(err).Error("Failed to close wallet")
		}
	})
}
