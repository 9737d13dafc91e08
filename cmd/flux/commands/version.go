package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/fluxrx/internal/engineconfig"
)

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "버전 및 엔진 설정 해시 출력",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := engineconfig.LoadOrDefault(engineConfigPath)
		if err != nil {
			return fmt.Errorf("load engine config: %w", err)
		}
		hash, err := engineconfig.Hash(cfg)
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		if jsonOutput {
			return PrintJSON(w, map[string]string{"version": version, "config_hash": hash})
		}
		fmt.Fprintf(w, "flux %s\n", version)
		fmt.Fprintf(w, "engine config %s\n", hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
