package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// loadConfig binds the flags of cmd, reads [datadir]/servicenode.toml if
// present, and fills _config. Flags set on the command line take precedence
// over the file.
func loadConfig(cmd *cobra.Command, args []string) error {
	if err := bindFlagsLoadViper(cmd); err != nil {
		return err
	}

	// If --datadir was explicitely set, but not --db, this will update the
	// default database dir to be inside the new datadir
	_config.SetDataDir(_config.DataDir)

	return nil
}

// Bind all flags and read the config into viper
func bindFlagsLoadViper(cmd *cobra.Command) error {
	// Register flags with viper. Include flags from this command and all other
	// persistent flags from the parent
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// first unmarshal to read from CLI flags
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// look for config file in [datadir]/servicenode.toml (.json, .yaml also work)
	viper.SetConfigName("servicenode")
	viper.AddConfigPath(_config.DataDir)

	// If a config file is found, read it in.
	found := true
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		found = false
	}

	// second unmarshal to read from config file
	if err := viper.Unmarshal(_config); err != nil {
		return err
	}

	// the logger is built on first use, after the log settings are final
	if found {
		_config.Logger().Debugf("Using config file: %s", viper.ConfigFileUsed())
	} else {
		_config.Logger().Debugf("No config file found in: %s", _config.DataDir)
	}

	return nil
}
