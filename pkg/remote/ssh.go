// Package remote delivers rendered launch scripts to serving nodes over SSH.
package remote

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"

	"golang.org/x/crypto/ssh"

	"github.com/starmountain1997/vaops/pkg/config"
)

// NodeClient is an SSH connection to one serving node.
type NodeClient struct {
	client *ssh.Client
	host   string
}

// Connect dials a node with private-key authentication. Serving nodes are
// freshly imaged machines, so host keys are not checked.
func Connect(host, user, keyFile string) (*NodeClient, error) {
	keyBytes, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("read key: %w", err)
	}

	signer, err := ssh.ParsePrivateKey(keyBytes)
	if err != nil {
		return nil, fmt.Errorf("parse key: %w", err)
	}

	sshConfig := &ssh.ClientConfig{
		User: user,
		Auth: []ssh.AuthMethod{
			ssh.PublicKeys(signer),
		},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         config.SSHDialTimeout,
	}

	client, err := ssh.Dial("tcp", host+":22", sshConfig)
	if err != nil {
		return nil, fmt.Errorf("dial SSH: %w", err)
	}

	return &NodeClient{client: client, host: host}, nil
}

// Close shuts down the connection.
func (nc *NodeClient) Close() error {
	return nc.client.Close()
}

// Execute runs a single command on the node and returns its combined output.
func (nc *NodeClient) Execute(command string) (string, error) {
	session, err := nc.client.NewSession()
	if err != nil {
		return "", fmt.Errorf("session error: %w", err)
	}
	defer session.Close()

	output, err := session.CombinedOutput(command)
	if err != nil {
		return string(output), fmt.Errorf("run %q on %s: %w", command, nc.host, err)
	}
	return string(output), nil
}

// UploadScript writes content to destPath on the node and marks it
// executable. The content travels base64-encoded so shell quoting never
// mangles it.
func (nc *NodeClient) UploadScript(content []byte, destPath string) error {
	if _, err := nc.Execute(mkdirCommand(destPath)); err != nil {
		return fmt.Errorf("failed to create remote directory: %w", err)
	}
	if _, err := nc.Execute(uploadCommand(content, destPath)); err != nil {
		return fmt.Errorf("failed to upload %s: %w", destPath, err)
	}
	if _, err := nc.Execute(fmt.Sprintf("chmod +x %s", destPath)); err != nil {
		return fmt.Errorf("failed to mark %s executable: %w", destPath, err)
	}
	return nil
}

// Launch starts an uploaded script inside a detached tmux session so it
// survives the SSH connection. An existing session with the same name is
// replaced.
func (nc *NodeClient) Launch(destPath, session string) error {
	if _, err := nc.Execute(launchCommand(destPath, session)); err != nil {
		return fmt.Errorf("failed to launch %s: %w", destPath, err)
	}
	return nil
}

// AttachCommand returns the ssh invocation an operator runs to watch a
// launched session.
func AttachCommand(user, host, session string) string {
	return fmt.Sprintf("ssh %s@%s -t 'tmux attach -t %s'", user, host, session)
}

func mkdirCommand(destPath string) string {
	return fmt.Sprintf("mkdir -p %s", path.Dir(destPath))
}

func uploadCommand(content []byte, destPath string) string {
	encoded := base64.StdEncoding.EncodeToString(content)
	return fmt.Sprintf("echo %s | base64 -d > %s", encoded, destPath)
}

func launchCommand(destPath, session string) string {
	return fmt.Sprintf("tmux kill-session -t %s 2>/dev/null; tmux new-session -d -s %s 'cd %s && ./%s'",
		session, session, path.Dir(destPath), path.Base(destPath))
}
