/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/psanford/wormhole-william/wormhole"
	"github.com/spf13/cobra"

	"github.com/starmountain1997/vaops/pkg/script"
	"github.com/starmountain1997/vaops/pkg/vllmconfig"
	"github.com/starmountain1997/vaops/pkg/writer"
)

// receiveCmd represents the receive command
var receiveCmd = &cobra.Command{
	Use:   "receive <code>",
	Short: "Receive a shared launch script",
	Long: `Receive a launch script shared with 'vaops share' and write it, marked
executable, into the output directory.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		code := args[0]
		output, _ := cmd.Flags().GetString("output")

		fmt.Printf("Connecting to wormhole with code: %s\n", code)

		var c wormhole.Client
		ctx := context.Background()

		msg, err := c.Receive(ctx, code)
		if err != nil {
			log.Fatalf("Failed to receive: %v", err)
		}
		if msg.Type != wormhole.TransferFile {
			log.Fatalf("Expected file transfer, got type %d", msg.Type)
		}

		data, err := io.ReadAll(msg)
		if err != nil {
			log.Fatalf("Failed to read received data: %v", err)
		}

		// Plain files pass through unchanged; a share payload carries the
		// script name and variant alongside the content.
		rendered := script.RenderedScript{Filename: msg.Name, Content: string(data)}
		var payload SharePayload
		if strings.HasSuffix(msg.Name, ".json") {
			if err := json.Unmarshal(data, &payload); err == nil && payload.ScriptName != "" {
				rendered = script.RenderedScript{
					Variant:  vllmconfig.Variant(payload.Variant),
					Filename: payload.ScriptName,
					Content:  payload.Content,
				}
			} else if err != nil {
				log.Printf("Warning: could not parse share payload, saving raw file: %v", err)
			}
		}

		path, err := writer.Write(rendered, output)
		if err != nil {
			log.Fatalf("Failed to write script: %v", err)
		}
		fmt.Printf("✓ Received: %s\n", path)

		if rendered.Variant == vllmconfig.DualNodeWorker {
			fmt.Println("\nBefore running, point the worker at the master node:")
			if payload.MasterIP != "" {
				fmt.Printf("  export MASTER_IP=%s  # sender's address\n", payload.MasterIP)
			} else {
				fmt.Println("  export MASTER_IP=<node0_ip>")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(receiveCmd)

	receiveCmd.Flags().StringP("output", "o", ".", "Directory the received script is written into")
}
