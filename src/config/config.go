package config

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/common"
	"github.com/mosaicnetworks/servicenode/src/net"
	"github.com/mosaicnetworks/servicenode/src/node"
	"github.com/mosaicnetworks/servicenode/src/node/mode"
	"github.com/pkg/errors"
	"github.com/rifflock/lfshook"
	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Default filenames.
const (
	// DefaultKeysDir is the default name of the folder containing the key files,
	// one per key id.
	DefaultKeysDir = "keys"

	// DefaultBadgerFile is the default name of the folder containing the Badger
	// database of collateral outputs.
	DefaultBadgerFile = "badger_db"
)

// Hosting modes accepted by the "mode" setting.
const (
	ModeNone     = ""
	ModeSelf     = "self"
	ModeOperator = "operator"
)

// Default configuration values.
const (
	DefaultLogLevel          = "debug"
	DefaultBindAddr          = "127.0.0.1:9999"
	DefaultServiceListen     = "127.0.0.1:8000"
	DefaultTCPTimeout        = 1000 * time.Millisecond
	DefaultMaxPool           = 2
	DefaultStore             = false
	DefaultCollateralKeyID   = "collateral"
	DefaultSigningKeyID      = "signing"
	DefaultProbeTimeout      = 2 * time.Second
	DefaultProtocolVersion   = 1
	DefaultCollateralAmount  = 1000
	DefaultMinConfirmations  = 15
	DefaultRequiredPort      = 9999
	DefaultAllowLocalAddress = false
	DefaultSyncTolerance     = 1
	DefaultPeerExpiry        = 65 * time.Minute
)

// Config contains all the configuration properties of a service node.
type Config struct {
	// DataDir is the top-level directory containing configuration and data.
	DataDir string `mapstructure:"datadir"`

	// LogLevel determines the chattiness of the log output.
	LogLevel string `mapstructure:"log"`

	// LogFile, when set, receives a copy of every log entry.
	LogFile string `mapstructure:"log-file"`

	// Moniker defines the friendly name of this node.
	Moniker string `mapstructure:"moniker"`

	// BindAddr is the local address:port where this node exchanges
	// announcements and pings with other service nodes.
	BindAddr string `mapstructure:"listen"`

	// AdvertiseAddr is used to change the address that we advertise to other
	// nodes. It is also the address reported as reachable when no service
	// address is configured.
	AdvertiseAddr string `mapstructure:"advertise"`

	// MaxPool controls how many connections are pooled per peer.
	MaxPool int `mapstructure:"max-pool"`

	// TCPTimeout is the timeout of peer RPC connections.
	TCPTimeout time.Duration `mapstructure:"timeout"`

	// NoService disables the HTTP API service.
	NoService bool `mapstructure:"no-service"`

	// ServiceListen is the address:port of the HTTP status API.
	ServiceListen string `mapstructure:"service-listen"`

	// Mode is "self", "operator", or empty for an unconfigured node.
	Mode string `mapstructure:"mode"`

	// Collateral is the txid-index reference of the collateral output.
	Collateral string `mapstructure:"collateral"`

	CollateralKeyID string `mapstructure:"collateral-key"`
	SigningKeyID    string `mapstructure:"signing-key"`

	// ServiceAddr is the public address of a self-hosted node. When empty the
	// transport's advertise address is used.
	ServiceAddr string `mapstructure:"service-addr"`

	// OperatorPubKey and OperatorAddr designate the operator of an
	// operator-hosted node.
	OperatorPubKey string `mapstructure:"operator-pubkey"`
	OperatorAddr   string `mapstructure:"operator-addr"`

	// Passphrase protects the keystore. An empty passphrase leaves it
	// unprotected.
	Passphrase string `mapstructure:"passphrase"`

	// Locked keeps a protected keystore locked at startup, until it is
	// unlocked through the API.
	Locked bool `mapstructure:"locked"`

	// Store activates persistent storage of collateral outputs.
	Store bool `mapstructure:"store"`

	// DatabaseDir is the directory containing database files.
	DatabaseDir string `mapstructure:"db"`

	TickInterval      time.Duration `mapstructure:"tick-interval"`
	PingInterval      time.Duration `mapstructure:"ping-interval"`
	ProbeTimeout      time.Duration `mapstructure:"probe-timeout"`
	ReentryTicks      int           `mapstructure:"reentry-ticks"`
	ProtocolVersion   uint32        `mapstructure:"protocol-version"`
	CollateralAmount  int64         `mapstructure:"collateral-amount"`
	MinConfirmations  int           `mapstructure:"min-confirmations"`
	RequiredPort      int           `mapstructure:"required-port"`
	AllowLocalAddress bool          `mapstructure:"allow-local-address"`

	// SyncTolerance is the number of blocks the local chain may lag the
	// network and still count as synced.
	SyncTolerance int64 `mapstructure:"sync-tolerance"`

	// VerifyPeers checks the collateral of announced service nodes against
	// the outputs known to the wallet before listing them.
	VerifyPeers bool `mapstructure:"verify-peers"`

	// PeerExpiry is how long a remote service node stays listed without
	// pinging.
	PeerExpiry time.Duration `mapstructure:"peer-expiry"`

	logger *logrus.Logger
}

// NewDefaultConfig returns a config object with default values.
func NewDefaultConfig() *Config {
	config := &Config{
		DataDir:           DefaultDataDir(),
		LogLevel:          DefaultLogLevel,
		BindAddr:          DefaultBindAddr,
		ServiceListen:     DefaultServiceListen,
		TCPTimeout:        DefaultTCPTimeout,
		MaxPool:           DefaultMaxPool,
		Store:             DefaultStore,
		DatabaseDir:       DefaultDatabaseDir(),
		Mode:              ModeNone,
		CollateralKeyID:   DefaultCollateralKeyID,
		SigningKeyID:      DefaultSigningKeyID,
		TickInterval:      node.DefaultTickInterval,
		PingInterval:      node.DefaultPingInterval,
		ProbeTimeout:      DefaultProbeTimeout,
		ReentryTicks:      node.DefaultReentryTicks,
		ProtocolVersion:   DefaultProtocolVersion,
		CollateralAmount:  DefaultCollateralAmount,
		MinConfirmations:  DefaultMinConfirmations,
		RequiredPort:      DefaultRequiredPort,
		AllowLocalAddress: DefaultAllowLocalAddress,
		SyncTolerance:     DefaultSyncTolerance,
		PeerExpiry:        DefaultPeerExpiry,
	}

	return config
}

// NewTestConfig returns a config object with default values and a special
// logger for debugging tests. Local addresses are accepted, any port is
// allowed, and STARTED is re-entered on the first capable tick.
func NewTestConfig(t testing.TB, level logrus.Level) *Config {
	config := NewDefaultConfig()
	config.logger = common.NewTestLogger(t, level)
	config.RequiredPort = 0
	config.AllowLocalAddress = true
	config.ReentryTicks = 1
	config.ProbeTimeout = time.Second
	return config
}

// SetDataDir sets the top-level directory, and updates the database directory
// if it is currently set to the default value. If the database directory is
// not currently the default, it means the user has explicitely set it to
// something else, so avoid changing it again here.
func (c *Config) SetDataDir(dataDir string) {
	c.DataDir = dataDir
	if c.DatabaseDir == DefaultDatabaseDir() {
		c.DatabaseDir = filepath.Join(dataDir, DefaultBadgerFile)
	}
}

// KeysDir returns the directory containing the key files.
func (c *Config) KeysDir() string {
	return filepath.Join(c.DataDir, DefaultKeysDir)
}

// Keyfile returns the full path of the file containing the private key with
// the given id.
func (c *Config) Keyfile(keyID string) string {
	return filepath.Join(c.KeysDir(), keyID)
}

// KeyIDs returns the key ids the configured mode needs, collateral first.
func (c *Config) KeyIDs() []string {
	switch c.Mode {
	case ModeSelf:
		return []string{c.CollateralKeyID, c.SigningKeyID}
	case ModeOperator:
		return []string{c.CollateralKeyID}
	default:
		return nil
	}
}

// CollateralRef parses the collateral reference. An empty setting yields the
// empty Outpoint.
func (c *Config) CollateralRef() (collateral.Outpoint, error) {
	if c.Collateral == "" {
		return collateral.Outpoint{}, nil
	}
	ref, err := collateral.ParseOutpoint(c.Collateral)
	if err != nil {
		return collateral.Outpoint{}, errors.Wrap(err, "collateral")
	}
	return ref, nil
}

// NodeMode builds the hosting mode. It returns nil, without error, for an
// unconfigured node.
func (c *Config) NodeMode() (mode.Mode, error) {
	switch c.Mode {
	case ModeNone:
		return nil, nil
	case ModeSelf:
		return mode.SelfHosted{
			SigningKeyID:    c.SigningKeyID,
			CollateralKeyID: c.CollateralKeyID,
			ServiceAddr:     net.ServiceAddress(c.ServiceAddr),
		}, nil
	case ModeOperator:
		if c.OperatorPubKey == "" {
			return nil, fmt.Errorf("operator mode requires operator-pubkey")
		}
		return mode.OperatorHosted{
			CollateralKeyID: c.CollateralKeyID,
			Authorization: mode.Authorization{
				OperatorPubKey: c.OperatorPubKey,
				OperatorAddr:   net.ServiceAddress(c.OperatorAddr),
			},
		}, nil
	default:
		return nil, fmt.Errorf("unknown mode %q", c.Mode)
	}
}

// NodeConfig returns the parameters of the activation state machine.
func (c *Config) NodeConfig() (*node.Config, error) {
	ref, err := c.CollateralRef()
	if err != nil {
		return nil, err
	}

	conf := node.NewConfig(c.TickInterval,
		c.PingInterval,
		c.ProbeTimeout,
		c.ReentryTicks,
		ref,
		c.baseLogger())

	conf.ProtocolVersion = c.ProtocolVersion
	conf.CollateralAmount = c.CollateralAmount
	conf.MinConfirmations = c.MinConfirmations
	conf.RequiredPort = c.RequiredPort
	conf.AllowLocalAddress = c.AllowLocalAddress

	return conf, nil
}

func (c *Config) baseLogger() *logrus.Logger {
	if c.logger == nil {
		c.logger = logrus.New()
		c.logger.Level = LogLevel(c.LogLevel)
		c.logger.Formatter = new(prefixed.TextFormatter)

		if c.LogFile != "" {
			c.logger.Hooks.Add(fileHook(c.LogFile))
		}
	}
	return c.logger
}

func fileHook(path string) logrus.Hook {
	pathMap := lfshook.PathMap{}
	for _, level := range logrus.AllLevels {
		pathMap[level] = path
	}
	return lfshook.NewHook(pathMap, &logrus.JSONFormatter{})
}

// Logger returns a formatted logrus Entry, with prefix set to "servicenode".
func (c *Config) Logger() *logrus.Entry {
	return c.baseLogger().WithField("prefix", "servicenode")
}

// DefaultDatabaseDir returns the default path for the badger database files.
func DefaultDatabaseDir() string {
	return filepath.Join(DefaultDataDir(), DefaultBadgerFile)
}

// DefaultDataDir return the default directory name for top-level config based
// on the underlying OS, attempting to respect conventions.
func DefaultDataDir() string {
	// Try to place the data folder in the user's home dir
	home := HomeDir()
	if home != "" {
		if runtime.GOOS == "darwin" {
			return filepath.Join(home, ".ServiceNode")
		} else if runtime.GOOS == "windows" {
			return filepath.Join(home, "AppData", "Roaming", "ServiceNode")
		} else {
			return filepath.Join(home, ".servicenode")
		}
	}
	// As we cannot guess a stable location, return empty and handle later
	return ""
}

// HomeDir returns the user's home directory.
func HomeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if usr, err := user.Current(); err == nil {
		return usr.HomeDir
	}
	return ""
}

// LogLevel parses a string into a Logrus log level.
func LogLevel(l string) logrus.Level {
	switch l {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.DebugLevel
	}
}
