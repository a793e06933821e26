package node

import (
	"context"
	"fmt"
	"time"

	"github.com/mosaicnetworks/servicenode/src/chain"
	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/mosaicnetworks/servicenode/src/node/mode"
	"github.com/mosaicnetworks/servicenode/src/wallet"
)

// Reasons reported by the prober and the state machine.
const (
	ReasonNotConfigured    = "not configured"
	ReasonSyncInProgress   = "blockchain sync in progress"
	ReasonSyncLost         = "blockchain sync lost"
	ReasonSigningFailed    = "signing failed"
	ReasonNoServiceAddress = "no reachable service address"
	ReasonPortNotOpen      = "port not open"
	ReasonWalletLocked     = "wallet is locked"
	ReasonAuthKeyMismatch  = "collateral authorization key mismatch"
)

// CapabilityKind is the outcome of a probe.
type CapabilityKind uint32

const (
	// Capable means every check passed.
	Capable CapabilityKind = iota
	// NotYetSyncing means the local chain is behind the network.
	NotYetSyncing
	// NotCapable means some other check failed.
	NotCapable
)

// String returns the name of a CapabilityKind.
func (k CapabilityKind) String() string {
	switch k {
	case Capable:
		return "Capable"
	case NotYetSyncing:
		return "NotYetSyncing"
	default:
		return "NotCapable"
	}
}

// Capability is the result of Probe. InputTooNew distinguishes a collateral
// that only lacks confirmations from other failures.
type Capability struct {
	Kind        CapabilityKind
	Reason      string
	InputTooNew bool

	// ServiceAddr is the address that passed the reachability checks.
	ServiceAddr net.ServiceAddress
}

func capable(addr net.ServiceAddress) Capability {
	return Capability{Kind: Capable, ServiceAddr: addr}
}

func notCapable(reason string) Capability {
	return Capability{Kind: NotCapable, Reason: reason}
}

// Prober decides whether the local process can currently act as a service
// node. Checks run in a fixed order and the first failure is reported.
type Prober struct {
	syncer   chain.SyncService
	verifier *collateral.Verifier
	wallet   wallet.Wallet
	trans    net.Transport
	ports    net.PortChecker

	ref          collateral.Outpoint
	timeout      time.Duration
	requiredPort int
	allowLocal   bool
}

// NewProber creates a Prober. The collateral is verified against the wallet's
// outputs with the amount and depth given in conf.
func NewProber(conf *Config,
	syncer chain.SyncService,
	w wallet.Wallet,
	trans net.Transport,
	ports net.PortChecker) *Prober {

	return &Prober{
		syncer:       syncer,
		verifier:     collateral.NewVerifier(w, conf.CollateralAmount, conf.MinConfirmations),
		wallet:       w,
		trans:        trans,
		ports:        ports,
		ref:          conf.Collateral,
		timeout:      conf.ProbeTimeout,
		requiredPort: conf.RequiredPort,
		allowLocal:   conf.AllowLocalAddress,
	}
}

// withTimeout bounds a single check.
func (p *Prober) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.timeout)
}

// Probe runs the checks for m: chain sync, collateral, service address or
// operator authorization, then wallet state.
func (p *Prober) Probe(ctx context.Context, m mode.Mode) Capability {
	if !p.synced(ctx) {
		return Capability{Kind: NotYetSyncing, Reason: ReasonSyncInProgress}
	}

	switch m := m.(type) {
	case mode.SelfHosted:
		return p.probeSelfHosted(ctx, m)
	case mode.OperatorHosted:
		return p.probeOperatorHosted(ctx, m)
	default:
		return notCapable(ReasonNotConfigured)
	}
}

func (p *Prober) synced(ctx context.Context) bool {
	sctx, cancel := p.withTimeout(ctx)
	defer cancel()

	return p.syncer.IsSynced(sctx)
}

func (p *Prober) probeSelfHosted(ctx context.Context, m mode.SelfHosted) Capability {
	collateralKey, err := p.wallet.PublicKey(m.CollateralKeyID)
	if err != nil {
		return notCapable(fmt.Sprintf("collateral key unavailable: %v", err))
	}

	if c, ok := p.checkCollateral(ctx, collateralKey, ""); !ok {
		return c
	}

	addr, c, ok := p.checkServiceAddress(ctx, m.ServiceAddr)
	if !ok {
		return c
	}

	if !p.wallet.IsUnlocked() {
		return notCapable(ReasonWalletLocked)
	}

	// A signing key that cannot be resolved will not sign pings
	if _, err := p.wallet.PublicKey(m.SigningKeyID); err != nil {
		return notCapable(ReasonSigningFailed)
	}

	return capable(addr)
}

func (p *Prober) probeOperatorHosted(ctx context.Context, m mode.OperatorHosted) Capability {
	collateralKey, err := p.wallet.PublicKey(m.CollateralKeyID)
	if err != nil {
		return notCapable(fmt.Sprintf("collateral key unavailable: %v", err))
	}

	if c, ok := p.checkCollateral(ctx, collateralKey, ReasonAuthKeyMismatch); !ok {
		return c
	}

	if _, err := m.Authorization.PubKeyBytes(); err != nil {
		return notCapable(err.Error())
	}

	if err := m.Authorization.OperatorAddr.Validate(p.requiredPort, p.allowLocal); err != nil {
		return notCapable(fmt.Sprintf("invalid operator address: %v", err))
	}

	// The authorization is signed locally
	if !p.wallet.IsUnlocked() {
		return notCapable(ReasonWalletLocked)
	}

	return capable(m.Authorization.OperatorAddr)
}

// checkCollateral verifies the collateral output against the key expected to
// control it. mismatchReason, when set, replaces the verifier's reason for a
// key mismatch.
func (p *Prober) checkCollateral(ctx context.Context, expectedKey []byte, mismatchReason string) (Capability, bool) {
	vctx, cancel := p.withTimeout(ctx)
	defer cancel()

	res := p.verifier.Verify(vctx, p.ref, expectedKey)
	if res.Valid {
		return Capability{}, true
	}

	switch res.Code {
	case collateral.TooFewConfirmations:
		return Capability{
			Kind:        NotCapable,
			Reason:      collateral.ReasonInputTooNew,
			InputTooNew: true,
		}, false
	case collateral.KeyMismatch:
		if mismatchReason != "" {
			return notCapable(mismatchReason), false
		}
	}

	return notCapable(res.Reason), false
}

// checkServiceAddress resolves the address to advertise, validates it, and
// checks that its port is open.
func (p *Prober) checkServiceAddress(ctx context.Context, configured net.ServiceAddress) (net.ServiceAddress, Capability, bool) {
	addr := configured
	if addr == "" {
		var ok bool
		addr, ok = p.trans.LocalReachableAddress()
		if !ok {
			return "", notCapable(ReasonNoServiceAddress), false
		}
	}

	if err := addr.Validate(p.requiredPort, p.allowLocal); err != nil {
		return "", notCapable(err.Error()), false
	}

	if p.ports != nil {
		pctx, cancel := p.withTimeout(ctx)
		defer cancel()

		if err := p.ports.CheckPort(pctx, addr); err != nil {
			return "", notCapable(ReasonPortNotOpen), false
		}
	}

	return addr, Capability{}, true
}
