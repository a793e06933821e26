package node

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultPingInterval is the minimum spacing between two liveness pings.
	DefaultPingInterval = 10 * time.Minute

	// DefaultTickInterval is the period of the control loop.
	DefaultTickInterval = 5 * time.Second

	// DefaultReentryTicks is the number of consecutive capable ticks required
	// to re-enter STARTED after leaving it.
	DefaultReentryTicks = 3
)

// Config contains the parameters of the activation state machine.
type Config struct {
	TickInterval time.Duration `mapstructure:"tick-interval"`
	PingInterval time.Duration `mapstructure:"ping-interval"`
	ProbeTimeout time.Duration `mapstructure:"probe-timeout"`
	ReentryTicks int           `mapstructure:"reentry-ticks"`

	ProtocolVersion   uint32              `mapstructure:"protocol-version"`
	Collateral        collateral.Outpoint `mapstructure:"collateral"`
	CollateralAmount  int64               `mapstructure:"collateral-amount"`
	MinConfirmations  int                 `mapstructure:"min-confirmations"`
	RequiredPort      int                 `mapstructure:"required-port"`
	AllowLocalAddress bool                `mapstructure:"allow-local-address"`

	Logger *logrus.Logger
}

// NewConfig creates a Config.
func NewConfig(tickInterval time.Duration,
	pingInterval time.Duration,
	probeTimeout time.Duration,
	reentryTicks int,
	ref collateral.Outpoint,
	logger *logrus.Logger) *Config {

	conf := DefaultConfig()
	conf.TickInterval = tickInterval
	conf.PingInterval = pingInterval
	conf.ProbeTimeout = probeTimeout
	conf.ReentryTicks = reentryTicks
	conf.Collateral = ref
	conf.Logger = logger

	return conf
}

// DefaultConfig returns a Config with the network defaults and no collateral.
func DefaultConfig() *Config {
	logger := logrus.New()
	logger.Level = logrus.DebugLevel

	return &Config{
		TickInterval:     DefaultTickInterval,
		PingInterval:     DefaultPingInterval,
		ProbeTimeout:     2 * time.Second,
		ReentryTicks:     DefaultReentryTicks,
		ProtocolVersion:  1,
		CollateralAmount: 1000,
		MinConfirmations: 15,
		RequiredPort:     9999,
		Logger:           logger,
	}
}

// TestConfig returns a Config with a test logger, immediate re-entry, and
// local addresses allowed.
func TestConfig(t testing.TB) *Config {
	config := DefaultConfig()
	config.Logger = common.NewTestLogger(t, logrus.DebugLevel)
	config.ReentryTicks = 1
	config.RequiredPort = 0
	config.AllowLocalAddress = true
	config.ProbeTimeout = time.Second
	return config
}
