/*
Copyright © 2025 STARMOUNTAIN1997

constants.go defines all configuration constants for the vaops toolchain.
Update these values to change default behavior across all commands.
*/
package config

import "time"

// =============================================================================
// UPSTREAM REFERENCE CONFIGURATION
// =============================================================================

const (
	// SingleNodeConfigURL is the raw URL of the single-node nightly test config.
	// The %s is the git branch name.
	SingleNodeConfigURL = "https://raw.githubusercontent.com/starmountain1997/vllm-ascend/%s/tests/e2e/nightly/single_node/models/test_deepseek_v3_2_w8a8.py"

	// DualNodeConfigURL is the raw URL of the dual-node deployment config.
	// The %s is the git branch name.
	DualNodeConfigURL = "https://raw.githubusercontent.com/starmountain1997/vllm-ascend/%s/tests/e2e/nightly/multi_node/config/DeepSeek-V3_2-W8A8-A3-dual-nodes.yaml"

	// DefaultBranch is the branch the reference configs are fetched from
	DefaultBranch = "main"

	// FetchTimeout bounds a single reference-config download
	FetchTimeout = 30 * time.Second
)

// =============================================================================
// GENERATION DEFAULTS
// =============================================================================

const (
	// DefaultSingleNodeOutputDir is where start_server.sh is written
	DefaultSingleNodeOutputDir = "./test_single_node"

	// DefaultDualNodeOutputDir is where node0.sh / node1.sh are written
	DefaultDualNodeOutputDir = "./dual_ds32_w8a8"

	// DefaultModel is used when the reference config carries no model list
	DefaultModel = "vllm-ascend/DeepSeek-V3.2-W8A8"

	// DefaultPort is used when the reference config carries no PORT value
	DefaultPort = 8087

	// Parallelism fallbacks for the single-node variant
	DefaultTensorParallel = 1
	DefaultDataParallel   = 1

	// Parallelism fallbacks for the dual-node variants (A3 dual-machine layout)
	DefaultDualTensorParallel    = 8
	DefaultDualDataParallel      = 4
	DefaultDualDataParallelLocal = 2

	// DefaultRPCPort is the data-parallel rendezvous RPC port
	DefaultRPCPort = 13389
)

// =============================================================================
// NIGHTLY CI WATCHER
// =============================================================================

const (
	// DefaultWatchRepo is the repository whose workflow runs are archived
	DefaultWatchRepo = "vllm-project/vllm-ascend"

	// DefaultWorkflow is the nightly workflow file watched for runs
	DefaultWorkflow = "schedule_nightly_test_a3.yaml"

	// DefaultWatchBranch limits archived runs to this branch
	DefaultWatchBranch = "main"

	// DefaultRunLimit is how many recent runs are inspected per invocation
	DefaultRunLimit = 4

	// DefaultLogsDir is the directory (inside the tracking repo) logs land in
	DefaultLogsDir = "logs"
)

// TargetJobKeywords selects which jobs of a nightly run get archived.
// A job is captured when its name contains any of these substrings.
var TargetJobKeywords = []string{
	"multi-node-dpsk3.2-2node",
	"test_deepseek_v3_2_w8a8",
}

// =============================================================================
// REMOTE DEPLOYMENT
// =============================================================================

const (
	// DefaultRemoteDir is where pushed scripts are stored on target hosts
	DefaultRemoteDir = "/root/vaops"

	// DefaultSSHUser is the login user for script pushes
	DefaultSSHUser = "root"

	// SSHDialTimeout bounds the TCP/SSH handshake to a target host
	SSHDialTimeout = 10 * time.Second

	// ShareTimeout is how long a wormhole transfer waits for the receiver
	ShareTimeout = 10 * time.Minute
)

// =============================================================================
// BENCHMARK DATASET GENERATION
// =============================================================================

const (
	// DefaultDatasetInputLen is the per-sample input token length
	DefaultDatasetInputLen = 64000

	// DefaultDatasetBatchSize is the number of samples in the generated set
	DefaultDatasetBatchSize = 2800

	// DefaultDatasetModelID is the modelscope model whose tokenizer is used
	DefaultDatasetModelID = "deepseek-ai/DeepSeek-V3"
)
