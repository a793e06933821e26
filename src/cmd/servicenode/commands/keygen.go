package commands

import (
	"fmt"

	"github.com/mosaicnetworks/servicenode/src/servicenode"
	"github.com/spf13/cobra"
)

var (
	keyID string
)

// NewKeygenCmd produces a KeygenCmd which create a key pair
func NewKeygenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "keygen",
		Short:   "Create new key pair",
		PreRunE: loadConfig,
		RunE:    keygen,
	}

	AddKeygenFlags(cmd)

	return cmd
}

// AddKeygenFlags adds flags to the keygen command
func AddKeygenFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&keyID, "key-id", _config.SigningKeyID, "Id of the key, e.g. collateral or signing")
}

func keygen(cmd *cobra.Command, args []string) error {
	pub, err := servicenode.Keygen(_config, keyID)
	if err != nil {
		return err
	}

	fmt.Printf("Your private key has been saved to: %s\n", _config.Keyfile(keyID))
	fmt.Printf("Public key: %s\n", pub)

	return nil
}
