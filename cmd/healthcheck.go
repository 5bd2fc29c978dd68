package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/atomicobject/vaultmcp/pkg/searchindex"
)

// healthcheckResult is the JSON contract a host-level supervisor can probe
// against, per SPEC_FULL.md's supplemented healthcheck behavior.
type healthcheckResult struct {
	OK            bool   `json:"ok"`
	Vault         string `json:"vault"`
	Index         string `json:"index"`
	SchemaVersion int    `json:"schemaVersion"`
}

// healthcheckCmd is a convenience alias (§6) for supervisors to confirm the
// vault directory and search index are both reachable without starting the
// stdio server. It exits non-zero on any failure so it composes with
// container/process health probes.
var healthcheckCmd = &cobra.Command{
	Use:   "healthcheck",
	Short: "Verify the vault directory and search index are reachable, then exit",
	Args:  cobra.NoArgs,
	RunE: func(c *cobra.Command, args []string) error {
		cfg, err := resolveConfig()
		if err != nil {
			return err
		}

		info, err := os.Stat(cfg.VaultPath)
		if err != nil {
			return fmt.Errorf("vault path unreachable: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("vault path %q is not a directory", cfg.VaultPath)
		}

		idx, err := searchindex.Open(cfg.IndexPath)
		if err != nil {
			return fmt.Errorf("search index unreachable: %w", err)
		}
		defer idx.Close()

		if err := idx.IntegrityCheck(c.Context()); err != nil {
			return fmt.Errorf("search index failed integrity check: %w", err)
		}

		result := healthcheckResult{
			OK:            true,
			Vault:         cfg.VaultPath,
			Index:         cfg.IndexPath,
			SchemaVersion: idx.SchemaVersion(),
		}
		enc := json.NewEncoder(c.OutOrStdout())
		return enc.Encode(result)
	},
}

func init() {
	rootCmd.AddCommand(healthcheckCmd)
}
