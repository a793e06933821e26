package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/mosaicnetworks/servicenode/src/servicenode"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRunCmd returns the command that starts a service node
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Run node",
		PreRunE: loadRunConfig,
		RunE:    runServiceNode,
	}
	AddRunFlags(cmd)
	return cmd
}

/*******************************************************************************
* RUN
*******************************************************************************/

func runServiceNode(cmd *cobra.Command, args []string) error {
	engine := servicenode.NewServiceNode(_config)

	if err := engine.Init(); err != nil {
		_config.Logger().Error("Cannot initialize engine:", err)
		return err
	}

	engine.RunAsync()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	_config.Logger().WithField("signal", sig.String()).Info("Received signal")

	engine.Shutdown()

	return nil
}

/*******************************************************************************
* CONFIG
*******************************************************************************/

// AddRunFlags adds flags to the Run command
func AddRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("moniker", _config.Moniker, "Optional name")

	// Network
	cmd.Flags().StringP("listen", "l", _config.BindAddr, "Listen IP:Port for announcements and pings")
	cmd.Flags().StringP("advertise", "a", _config.AdvertiseAddr, "Advertise IP:Port for announcements and pings")
	cmd.Flags().DurationP("timeout", "t", _config.TCPTimeout, "TCP Timeout")
	cmd.Flags().Int("max-pool", _config.MaxPool, "Connection pool size max")
	cmd.Flags().Duration("peer-expiry", _config.PeerExpiry, "Forget service nodes silent for this long")
	cmd.Flags().Bool("verify-peers", _config.VerifyPeers, "Check the collateral of announced service nodes")

	// Service
	cmd.Flags().Bool("no-service", _config.NoService, "Disable the HTTP API")
	cmd.Flags().StringP("service-listen", "s", _config.ServiceListen, "Listen IP:Port for HTTP service")

	// Mode
	cmd.Flags().String("mode", _config.Mode, "Hosting mode: self, operator, or empty to stay unconfigured")
	cmd.Flags().String("collateral", _config.Collateral, "Collateral output, as txid-index")
	cmd.Flags().String("collateral-key", _config.CollateralKeyID, "Id of the key controlling the collateral")
	cmd.Flags().String("signing-key", _config.SigningKeyID, "Id of the key signing pings")
	cmd.Flags().String("service-addr", _config.ServiceAddr, "Public IP:Port of a self-hosted node")
	cmd.Flags().String("operator-pubkey", _config.OperatorPubKey, "Public key of the operator of an operator-hosted node")
	cmd.Flags().String("operator-addr", _config.OperatorAddr, "IP:Port of the operator of an operator-hosted node")

	// Wallet
	cmd.Flags().String("passphrase", _config.Passphrase, "Keystore passphrase")
	cmd.Flags().Bool("locked", _config.Locked, "Keep the keystore locked until unlocked through the API")
	cmd.Flags().Bool("store", _config.Store, "Use badgerDB instead of in-mem DB for collateral outputs")
	cmd.Flags().String("db", _config.DatabaseDir, "Dabatabase directory")

	// Activation
	cmd.Flags().Duration("tick-interval", _config.TickInterval, "Time between two state evaluations")
	cmd.Flags().Duration("ping-interval", _config.PingInterval, "Minimum time between two pings")
	cmd.Flags().Duration("probe-timeout", _config.ProbeTimeout, "Timeout of each capability check")
	cmd.Flags().Int("reentry-ticks", _config.ReentryTicks, "Consecutive capable ticks needed to start again")
	cmd.Flags().Uint32("protocol-version", _config.ProtocolVersion, "Protocol version announced")
	cmd.Flags().Int64("collateral-amount", _config.CollateralAmount, "Exact value of a collateral output")
	cmd.Flags().Int("min-confirmations", _config.MinConfirmations, "Confirmations required on the collateral")
	cmd.Flags().Int("required-port", _config.RequiredPort, "Port the service address must use, 0 for any")
	cmd.Flags().Bool("allow-local-address", _config.AllowLocalAddress, "Accept loopback and private service addresses")
	cmd.Flags().Int64("sync-tolerance", _config.SyncTolerance, "Blocks the chain may lag and still count as synced")
}

func loadRunConfig(cmd *cobra.Command, args []string) error {
	if err := loadConfig(cmd, args); err != nil {
		return err
	}

	logFields := logrus.Fields{
		"DataDir":          _config.DataDir,
		"BindAddr":         _config.BindAddr,
		"AdvertiseAddr":    _config.AdvertiseAddr,
		"ServiceListen":    _config.ServiceListen,
		"MaxPool":          _config.MaxPool,
		"Store":            _config.Store,
		"LogLevel":         _config.LogLevel,
		"Moniker":          _config.Moniker,
		"Mode":             _config.Mode,
		"Collateral":       _config.Collateral,
		"ServiceAddr":      _config.ServiceAddr,
		"TickInterval":     _config.TickInterval,
		"PingInterval":     _config.PingInterval,
		"ReentryTicks":     _config.ReentryTicks,
		"MinConfirmations": _config.MinConfirmations,
		"RequiredPort":     _config.RequiredPort,
	}

	if _config.Store {
		logFields["DatabaseDir"] = _config.DatabaseDir
	}

	_config.Logger().WithFields(logFields).Debug("RUN")

	return nil
}
