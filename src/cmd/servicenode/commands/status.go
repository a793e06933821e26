package commands

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mosaicnetworks/servicenode/src/service"
	"github.com/spf13/cobra"
)

// NewStatusCmd produces the command querying the status API of a running
// node.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "status",
		Short:   "Show the activation state of a running node",
		PreRunE: loadConfig,
		RunE:    status,
	}

	cmd.Flags().StringP("service-listen", "s", _config.ServiceListen, "IP:Port of the HTTP service")

	return cmd
}

func status(cmd *cobra.Command, args []string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(fmt.Sprintf("http://%s/status", _config.ServiceListen))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("status API returned %s", resp.Status)
	}

	var res service.StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return err
	}

	fmt.Printf("State:   %s (%d)\n", res.State, res.StateCode)
	fmt.Printf("Type:    %s\n", res.Type)
	fmt.Printf("Status:  %s\n", res.Summary)
	if res.ServiceAddr != "" {
		fmt.Printf("Address: %s\n", res.ServiceAddr)
	}
	if res.LastPing > 0 {
		fmt.Printf("Last ping: %s\n", time.Unix(res.LastPing, 0).UTC().Format(time.RFC3339))
	}

	return nil
}
