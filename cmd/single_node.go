/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/starmountain1997/vaops/pkg/config"
	"github.com/starmountain1997/vaops/pkg/script"
	"github.com/starmountain1997/vaops/pkg/vllmconfig"
	"github.com/starmountain1997/vaops/pkg/writer"
)

// singleNodeCmd represents the single-node command
var singleNodeCmd = &cobra.Command{
	Use:   "single-node",
	Short: "Generate the single-node server startup script",
	Long: `Generate start_server.sh for a single-node vLLM deployment.

Defaults (model, parallelism, port, server args, environment) come from the
upstream nightly test configuration on GitHub; flags override individual
values.`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		branch, _ := cmd.Flags().GetString("branch")
		modelPath, _ := cmd.Flags().GetString("model-path")
		servedModelName, _ := cmd.Flags().GetString("served-model-name")
		port, _ := cmd.Flags().GetInt("port")

		fmt.Printf("Fetching reference config (branch %s)...\n", branch)

		resolver := &vllmconfig.Resolver{Source: vllmconfig.NewGitHubSource(branch)}
		cfg, err := resolver.Resolve(context.Background(), vllmconfig.SingleNode, vllmconfig.Overrides{
			ModelPath:       modelPath,
			ServedModelName: servedModelName,
			Port:            port,
			Branch:          branch,
		})
		if err != nil {
			log.Fatalf("Failed to resolve configuration: %v", err)
		}

		rendered, err := script.Render(vllmconfig.SingleNode, cfg)
		if err != nil {
			log.Fatalf("Failed to render script: %v", err)
		}

		path, err := writer.Write(rendered, output)
		if err != nil {
			log.Fatalf("Failed to write script: %v", err)
		}

		fmt.Printf("✓ Generated: %s\n", path)
		fmt.Printf("  Model: %s (served as %s)\n", cfg.ModelPath, cfg.ServedModelName)
		fmt.Printf("  Port: %d, TP: %d, DP: %d\n", cfg.Port, cfg.TensorParallelSize, cfg.DataParallelSize)
		fmt.Println("\nUsage:")
		fmt.Printf("  cd %s && ./%s\n", output, rendered.Filename)
	},
}

func init() {
	rootCmd.AddCommand(singleNodeCmd)

	singleNodeCmd.Flags().StringP("output", "o", config.DefaultSingleNodeOutputDir, "Output directory")
	singleNodeCmd.Flags().StringP("branch", "b", config.DefaultBranch, "Branch of the reference config to fetch")
	singleNodeCmd.Flags().String("model-path", "", "Model path (default: from reference config)")
	singleNodeCmd.Flags().String("served-model-name", "", "Served model name (default: from reference config)")
	singleNodeCmd.Flags().Int("port", 0, "Server port (default: from reference config)")
}
