/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/psanford/wormhole-william/wormhole"
	"github.com/spf13/cobra"

	"github.com/starmountain1997/vaops/pkg/config"
	"github.com/starmountain1997/vaops/pkg/netutil"
	"github.com/starmountain1997/vaops/pkg/vllmconfig"
)

// SharePayload carries a generated launch script to another operator.
type SharePayload struct {
	ScriptName string `json:"script_name"`
	Variant    string `json:"variant"`
	Content    string `json:"content"`
	MasterIP   string `json:"master_ip,omitempty"`
}

// variantForFilename guesses the deployment variant from a script filename.
func variantForFilename(name string) vllmconfig.Variant {
	switch name {
	case "start_server.sh":
		return vllmconfig.SingleNode
	case "node0.sh":
		return vllmconfig.DualNodeMaster
	case "node1.sh":
		return vllmconfig.DualNodeWorker
	}
	return ""
}

// shareCmd represents the share command
var shareCmd = &cobra.Command{
	Use:   "share <script-file>",
	Short: "Share a generated script with another operator",
	Long: `Send a generated launch script using the Magic Wormhole protocol.
Generates a one-time code the receiver redeems with 'vaops receive'.

Sharing node1.sh includes this machine's IP as the suggested MASTER_IP,
since the worker script is usually generated on the master node.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		scriptPath := args[0]

		content, err := os.ReadFile(scriptPath)
		if err != nil {
			log.Fatalf("Failed to read script %s: %v", scriptPath, err)
		}

		payload := SharePayload{
			ScriptName: filepath.Base(scriptPath),
			Variant:    string(variantForFilename(filepath.Base(scriptPath))),
			Content:    string(content),
		}

		if payload.Variant == string(vllmconfig.DualNodeWorker) {
			if ip, err := netutil.LocalIP(); err == nil {
				payload.MasterIP = ip
			} else {
				log.Printf("Warning: could not detect local IP: %v", err)
			}
		}

		jsonData, err := json.Marshal(payload)
		if err != nil {
			log.Fatalf("Failed to marshal payload: %v", err)
		}

		fmt.Printf("Preparing to share %s\n\n", payload.ScriptName)
		fmt.Println("Generating secure code...")

		var c wormhole.Client
		ctx := context.Background()

		reader := strings.NewReader(string(jsonData))
		code, status, err := c.SendFile(ctx, "vaops-share.json", reader)
		if err != nil {
			log.Fatalf("Failed to start send: %v", err)
		}

		fmt.Printf("\nShare this code with the receiver:\n\n")
		fmt.Printf("\t%s\n\n", code)
		fmt.Println("On the other machine, run:")
		fmt.Printf("\tvaops receive %s\n\n", code)
		fmt.Println("Waiting for receiver to connect...")

		select {
		case s := <-status:
			if s.Error != nil {
				log.Fatalf("Transfer failed: %v", s.Error)
			} else if s.OK {
				fmt.Println("\nTransfer completed successfully!")
			}
		case <-time.After(config.ShareTimeout):
			log.Fatal("Transfer timed out waiting for receiver")
		}
	},
}

func init() {
	rootCmd.AddCommand(shareCmd)
}
