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
	"github.com/starmountain1997/vaops/pkg/netutil"
	"github.com/starmountain1997/vaops/pkg/script"
	"github.com/starmountain1997/vaops/pkg/vllmconfig"
	"github.com/starmountain1997/vaops/pkg/writer"
)

// dualNodesCmd represents the dual-nodes command
var dualNodesCmd = &cobra.Command{
	Use:   "dual-nodes",
	Short: "Generate the dual-node deployment scripts",
	Long: `Generate node0.sh (master) and node1.sh (worker) for a dual-machine vLLM
deployment from the upstream dual-node reference config.

The rendezvous address stays late-bound: node0.sh reads it from LOCAL_IP
and node1.sh from MASTER_IP, so the same pair of scripts works on any two
machines. node1.sh's MASTER_IP default is this machine's IP unless
--master-ip says otherwise.`,
	Run: func(cmd *cobra.Command, args []string) {
		output, _ := cmd.Flags().GetString("output")
		branch, _ := cmd.Flags().GetString("branch")
		modelPath, _ := cmd.Flags().GetString("model-path")
		servedModelName, _ := cmd.Flags().GetString("served-model-name")
		masterIP, _ := cmd.Flags().GetString("master-ip")

		fmt.Printf("Fetching reference config (branch %s)...\n", branch)

		resolver := &vllmconfig.Resolver{
			Source:   vllmconfig.NewGitHubSource(branch),
			DetectIP: netutil.LocalIP,
		}
		overrides := vllmconfig.Overrides{
			ModelPath:       modelPath,
			ServedModelName: servedModelName,
			MasterIP:        masterIP,
			Branch:          branch,
		}

		ctx := context.Background()
		for _, variant := range []vllmconfig.Variant{vllmconfig.DualNodeMaster, vllmconfig.DualNodeWorker} {
			cfg, err := resolver.Resolve(ctx, variant, overrides)
			if err != nil {
				log.Fatalf("Failed to resolve %s configuration: %v", variant, err)
			}

			rendered, err := script.Render(variant, cfg)
			if err != nil {
				log.Fatalf("Failed to render %s script: %v", variant, err)
			}

			path, err := writer.Write(rendered, output)
			if err != nil {
				log.Fatalf("Failed to write %s: %v", rendered.Filename, err)
			}
			fmt.Printf("✓ Generated: %s\n", path)
		}

		fmt.Println("\nConfigure before execution:")
		fmt.Println("  Node 0: export LOCAL_IP=<this_machine_ip>")
		fmt.Println("  Node 1: export MASTER_IP=<node0_ip>")
	},
}

func init() {
	rootCmd.AddCommand(dualNodesCmd)

	dualNodesCmd.Flags().StringP("output", "o", config.DefaultDualNodeOutputDir, "Output directory")
	dualNodesCmd.Flags().StringP("branch", "b", config.DefaultBranch, "Branch of the reference config to fetch")
	dualNodesCmd.Flags().String("model-path", "", "Model path (default: from reference config)")
	dualNodesCmd.Flags().String("served-model-name", "", "Served model name (default: from reference config)")
	dualNodesCmd.Flags().String("master-ip", "auto", "MASTER_IP default baked into node1.sh (auto = this machine's IP)")
}
