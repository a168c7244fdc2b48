/*
Copyright © 2025 STARMOUNTAIN1997
*/
package cmd

import (
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/starmountain1997/vaops/pkg/config"
	"github.com/starmountain1997/vaops/pkg/remote"
)

// pushCmd represents the push command
var pushCmd = &cobra.Command{
	Use:   "push <script>...",
	Short: "Upload launch scripts to a serving node",
	Long: `Upload one or more generated scripts to a node over SSH and mark them
executable. With --run the first script is started in a detached tmux
session afterwards.

Example:
  vaops dual-nodes -o ./dual
  vaops push -H 10.0.0.1 -i ~/.ssh/id_rsa --run ./dual/node0.sh`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: Could not load .env file: %v", err)
		}

		host, _ := cmd.Flags().GetString("host")
		user, _ := cmd.Flags().GetString("user")
		keyFile, _ := cmd.Flags().GetString("key")
		dest, _ := cmd.Flags().GetString("dest")
		run, _ := cmd.Flags().GetBool("run")

		if host == "" {
			log.Fatal("Target host not set. Use --host")
		}
		if keyFile == "" {
			keyFile = os.Getenv("VAOPS_SSH_KEY")
		}
		if keyFile == "" {
			log.Fatal("SSH key not set. Use --key or the VAOPS_SSH_KEY environment variable")
		}

		client, err := remote.Connect(host, user, keyFile)
		if err != nil {
			log.Fatalf("Failed to connect to %s: %v", host, err)
		}
		defer client.Close()

		var remotePaths []string
		for _, scriptPath := range args {
			content, err := os.ReadFile(scriptPath)
			if err != nil {
				log.Fatalf("Failed to read %s: %v", scriptPath, err)
			}

			remotePath := path.Join(dest, filepath.Base(scriptPath))
			if err := client.UploadScript(content, remotePath); err != nil {
				log.Fatalf("Failed to upload %s: %v", scriptPath, err)
			}
			fmt.Printf("✓ Uploaded: %s -> %s:%s\n", scriptPath, host, remotePath)
			remotePaths = append(remotePaths, remotePath)
		}

		if run {
			session := "vaops-" + strings.TrimSuffix(path.Base(remotePaths[0]), ".sh")
			if err := client.Launch(remotePaths[0], session); err != nil {
				log.Fatalf("Failed to launch %s: %v", remotePaths[0], err)
			}
			fmt.Printf("✓ Started %s in tmux session '%s'\n", path.Base(remotePaths[0]), session)
			fmt.Printf("\nAttach with: %s\n", remote.AttachCommand(user, host, session))
		}
	},
}

func init() {
	rootCmd.AddCommand(pushCmd)

	pushCmd.Flags().StringP("host", "H", "", "Target node address")
	pushCmd.Flags().String("user", config.DefaultSSHUser, "SSH login user")
	pushCmd.Flags().StringP("key", "i", "", "SSH private key file")
	pushCmd.Flags().String("dest", config.DefaultRemoteDir, "Remote directory for the scripts")
	pushCmd.Flags().Bool("run", false, "Start the first script in a tmux session after upload")
}
