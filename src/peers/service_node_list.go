package peers

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	cm "github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/message"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/sirupsen/logrus"
)

// Entry is what the list knows about one service node.
type Entry struct {
	Announcement message.Announcement
	LastPing     int64
	LastSeen     time.Time
}

// NodeInfo is the external view of an Entry.
type NodeInfo struct {
	Collateral      string
	ServiceAddr     string
	Fingerprint     string
	ProtocolVersion uint32
	OperatorHosted  bool
	AnnouncedAt     int64
	LastPing        int64
	LastSeen        time.Time
}

// ServiceNodeList records the service nodes heard from on the network, keyed by
// collateral.
type ServiceNodeList struct {
	sync.RWMutex
	entries map[collateral.Outpoint]*Entry

	// optional, checks the collateral of announced nodes
	verifier *collateral.Verifier
	timeout  time.Duration

	logger *logrus.Entry
}

// NewServiceNodeList creates an empty ServiceNodeList. If verifier is not nil,
// announcements are only accepted when their collateral verifies against the
// announced collateral key; each lookup is bounded by timeout.
func NewServiceNodeList(verifier *collateral.Verifier, timeout time.Duration, logger *logrus.Entry) *ServiceNodeList {
	if logger == nil {
		logger = logrus.NewEntry(logrus.New())
	}

	return &ServiceNodeList{
		entries:  make(map[collateral.Outpoint]*Entry),
		verifier: verifier,
		timeout:  timeout,
		logger:   logger,
	}
}

// ProcessAnnouncement verifies and records an announcement. An announcement
// that is not newer than the recorded one for the same collateral is a replay.
func (l *ServiceNodeList) ProcessAnnouncement(a *message.Announcement, now time.Time) error {
	if !a.Verify() {
		return cm.NewErr("Announcement", cm.BadSignature, a.Collateral.String())
	}

	if l.verifier != nil {
		ctx := context.Background()
		if l.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}

		res := l.verifier.Verify(ctx, a.Collateral, a.CollateralPubKey)
		if !res.Valid {
			l.logger.WithFields(logrus.Fields{
				"collateral": a.Collateral.String(),
				"reason":     res.Reason,
			}).Debug("Rejected announcement")
			return cm.NewErr("Announcement", cm.BadSignature, a.Collateral.String())
		}
	}

	l.Lock()
	defer l.Unlock()

	e, ok := l.entries[a.Collateral]
	if ok && a.Timestamp <= e.Announcement.Timestamp {
		return cm.NewErr("Announcement", cm.Replay, a.Collateral.String())
	}

	// LastPing is kept so pings older than an accepted one stay replays.
	if ok {
		e.Announcement = *a
		e.LastSeen = now
	} else {
		l.entries[a.Collateral] = &Entry{
			Announcement: *a,
			LastSeen:     now,
		}
	}

	l.logger.WithFields(logrus.Fields{
		"collateral":   a.Collateral.String(),
		"service_addr": a.ServiceAddr,
		"fingerprint":  a.Fingerprint,
	}).Info("Recorded service node")

	return nil
}

// ProcessPing verifies a ping against the signing key of the announced node and
// records its timestamp. Pings must carry strictly increasing timestamps.
func (l *ServiceNodeList) ProcessPing(p *message.Ping, now time.Time) error {
	l.Lock()
	defer l.Unlock()

	e, ok := l.entries[p.Collateral]
	if !ok {
		return cm.NewErr("Ping", cm.UnknownNode, p.Collateral.String())
	}

	if !p.Verify(e.Announcement.SigningPubKey) {
		return cm.NewErr("Ping", cm.BadSignature, p.Collateral.String())
	}

	if p.Timestamp <= e.LastPing {
		return cm.NewErr("Ping", cm.Replay, p.Collateral.String())
	}

	e.LastPing = p.Timestamp
	e.LastSeen = now

	l.logger.WithFields(logrus.Fields{
		"collateral": p.Collateral.String(),
		"timestamp":  p.Timestamp,
	}).Debug("Recorded ping")

	return nil
}

// Get returns a copy of the entry recorded for ref.
func (l *ServiceNodeList) Get(ref collateral.Outpoint) (Entry, bool) {
	l.RLock()
	defer l.RUnlock()

	e, ok := l.entries[ref]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Len returns the number of recorded service nodes.
func (l *ServiceNodeList) Len() int {
	l.RLock()
	defer l.RUnlock()

	return len(l.entries)
}

// Nodes returns the recorded service nodes sorted by collateral.
func (l *ServiceNodeList) Nodes() []NodeInfo {
	l.RLock()
	defer l.RUnlock()

	res := make([]NodeInfo, 0, len(l.entries))
	for _, e := range l.entries {
		a := e.Announcement
		res = append(res, NodeInfo{
			Collateral:      a.Collateral.String(),
			ServiceAddr:     a.ServiceAddr,
			Fingerprint:     a.Fingerprint,
			ProtocolVersion: a.ProtocolVersion,
			OperatorHosted:  a.OperatorHosted,
			AnnouncedAt:     a.Timestamp,
			LastPing:        e.LastPing,
			LastSeen:        e.LastSeen,
		})
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].Collateral < res[j].Collateral
	})

	return res
}

// Prune removes the nodes not seen since before cutoff and returns how many
// were removed.
func (l *ServiceNodeList) Prune(cutoff time.Time) int {
	l.Lock()
	defer l.Unlock()

	n := 0
	for ref, e := range l.entries {
		if e.LastSeen.Before(cutoff) {
			delete(l.entries, ref)
			n++
		}
	}
	return n
}

// Serve processes the RPCs received by a transport until shutdownCh is closed.
func (l *ServiceNodeList) Serve(rpcCh <-chan net.RPC, shutdownCh <-chan struct{}) {
	for {
		select {
		case rpc := <-rpcCh:
			l.processRPC(rpc)
		case <-shutdownCh:
			return
		}
	}
}

func (l *ServiceNodeList) processRPC(rpc net.RPC) {
	var err error

	switch cmd := rpc.Command.(type) {
	case *net.AnnounceRequest:
		err = l.ProcessAnnouncement(&cmd.Announcement, time.Now())
	case *net.PingRequest:
		err = l.ProcessPing(&cmd.Ping, time.Now())
	default:
		l.logger.WithField("kind", rpc.Kind()).Error("Unexpected RPC command")
		rpc.Respond(&net.AckResponse{}, nil)
		return
	}

	if err != nil {
		l.logger.WithError(err).WithField("kind", rpc.Kind()).Debug("Rejected message")
	}

	rpc.Respond(&net.AckResponse{Accepted: err == nil}, nil)
}
