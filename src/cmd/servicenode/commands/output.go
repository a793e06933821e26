package commands

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mosaicnetworks/servicenode/src/collateral"
	"github.com/mosaicnetworks/servicenode/src/crypto/keys"
	"github.com/mosaicnetworks/servicenode/src/wallet"
	"github.com/spf13/cobra"
)

var (
	outputValue  int64
	outputHeight int64
	outputKeyID  string
	outputPubKey string
	outputSpent  bool
)

// NewOutputCmd produces the command managing the collateral outputs known to
// the wallet. Outputs are kept in the badger database under --db.
func NewOutputCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "output",
		Short: "Manage collateral outputs",
	}

	cmd.PersistentFlags().String("db", _config.DatabaseDir, "Dabatabase directory")

	add := &cobra.Command{
		Use:     "add [txid-index]",
		Short:   "Record an output",
		Args:    cobra.ExactArgs(1),
		PreRunE: loadConfig,
		RunE:    addOutput,
	}
	add.Flags().Int64Var(&outputValue, "value", _config.CollateralAmount, "Value of the output")
	add.Flags().Int64Var(&outputHeight, "height", 0, "Height of the block that mined the output, 0 if unmined")
	add.Flags().StringVar(&outputKeyID, "key-id", _config.CollateralKeyID, "Id of the local key controlling the output")
	add.Flags().StringVar(&outputPubKey, "pubkey", "", "Public key controlling the output, overrides --key-id")
	add.Flags().BoolVar(&outputSpent, "spent", false, "Mark the output as spent")

	list := &cobra.Command{
		Use:     "list",
		Short:   "List recorded outputs",
		PreRunE: loadConfig,
		RunE:    listOutputs,
	}

	cmd.AddCommand(add, list)

	return cmd
}

func openOutputStore() (*wallet.BadgerOutputStore, error) {
	if err := os.MkdirAll(_config.DatabaseDir, 0700); err != nil {
		return nil, err
	}
	return wallet.NewBadgerOutputStore(_config.DatabaseDir, nil)
}

func controllingKey() ([]byte, error) {
	if outputPubKey != "" {
		return keys.ParsePublicKeyHex(outputPubKey)
	}

	key, err := keys.NewKeyFile(_config.Keyfile(outputKeyID)).ReadKey()
	if err != nil {
		return nil, fmt.Errorf("Reading key %s: %s", outputKeyID, err)
	}
	defer keys.ZeroKey(key)

	return keys.FromPublicKey(&key.PublicKey), nil
}

func addOutput(cmd *cobra.Command, args []string) error {
	ref, err := collateral.ParseOutpoint(args[0])
	if err != nil {
		return err
	}

	pub, err := controllingKey()
	if err != nil {
		return err
	}

	store, err := openOutputStore()
	if err != nil {
		return err
	}
	defer store.Close()

	rec := &wallet.OutputRecord{
		Outpoint:       ref,
		Value:          outputValue,
		Height:         outputHeight,
		ControllingKey: pub,
		Spent:          outputSpent,
	}

	if err := store.SetOutput(rec); err != nil {
		return err
	}

	fmt.Printf("Recorded output %s controlled by %s\n", ref, keys.Fingerprint(pub))

	return nil
}

func listOutputs(cmd *cobra.Command, args []string) error {
	store, err := openOutputStore()
	if err != nil {
		return err
	}
	defer store.Close()

	recs, err := store.ListOutputs()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "OUTPOINT\tVALUE\tHEIGHT\tSPENT\tKEY")
	for _, r := range recs {
		fmt.Fprintf(w, "%s\t%d\t%d\t%t\t%s\n",
			r.Outpoint, r.Value, r.Height, r.Spent, keys.Fingerprint(r.ControllingKey))
	}

	return w.Flush()
}
