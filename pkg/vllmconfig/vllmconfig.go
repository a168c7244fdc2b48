// Package vllmconfig resolves the deployment configuration a launch script is
// rendered from: upstream reference configs merged with caller overrides.
package vllmconfig

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by resolution. Callers distinguish them with errors.Is;
// the CLI maps any of them to a non-zero exit.
var (
	// ErrConfig marks a field that is missing or invalid after merging
	// overrides with upstream defaults.
	ErrConfig = errors.New("config error")

	// ErrNetwork marks a failed reference-config fetch or local-IP detection.
	ErrNetwork = errors.New("network error")
)

// Variant selects which launch script a configuration is resolved for.
type Variant string

const (
	SingleNode     Variant = "single_node"
	DualNodeMaster Variant = "dual_node_master"
	DualNodeWorker Variant = "dual_node_worker"
)

// EnvVar is one exported environment variable in a launch script.
// Slice order follows the reference config, so rendering is reproducible.
type EnvVar struct {
	Name  string
	Value string
}

// Flag is one server command-line argument. Name keeps its leading dashes and
// may carry an inline "--key=value" spelling, in which case Value is empty.
// Value also stays empty for bare switches.
type Flag struct {
	Name  string
	Value string
}

// String returns the flag as it appears in the rendered command line.
func (f Flag) String() string {
	if f.Value == "" {
		return f.Name
	}
	return f.Name + " " + f.Value
}

// DeploymentConfig is the fully resolved input to script rendering. It is
// built once per invocation, consumed by the renderer, and never mutated.
type DeploymentConfig struct {
	ModelPath             string
	ServedModelName       string
	Port                  int
	TensorParallelSize    int
	DataParallelSize      int
	DataParallelSizeLocal int
	DataParallelStartRank int
	RPCPort               int
	MasterIP              string
	Branch                string
	ServeCommand          string
	Env                   []EnvVar
	ExtraFlags            []Flag
}

// Validate checks the invariants the given variant needs before rendering.
func (c DeploymentConfig) Validate(variant Variant) error {
	if c.ModelPath == "" {
		return fmt.Errorf("%w: model path is empty", ErrConfig)
	}
	if c.ServedModelName == "" {
		return fmt.Errorf("%w: served model name is empty", ErrConfig)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d is outside the valid TCP range", ErrConfig, c.Port)
	}
	if c.TensorParallelSize <= 0 {
		return fmt.Errorf("%w: tensor parallel size %d is not positive", ErrConfig, c.TensorParallelSize)
	}
	if c.DataParallelSize <= 0 {
		return fmt.Errorf("%w: data parallel size %d is not positive", ErrConfig, c.DataParallelSize)
	}

	switch variant {
	case SingleNode:
	case DualNodeMaster, DualNodeWorker:
		if c.DataParallelSizeLocal <= 0 {
			return fmt.Errorf("%w: local data parallel size %d is not positive", ErrConfig, c.DataParallelSizeLocal)
		}
		if c.RPCPort <= 0 || c.RPCPort > 65535 {
			return fmt.Errorf("%w: rpc port %d is outside the valid TCP range", ErrConfig, c.RPCPort)
		}
		if variant == DualNodeWorker {
			if c.MasterIP == "" {
				return fmt.Errorf("%w: master IP is required for the worker script and was neither supplied nor detected", ErrConfig)
			}
			if c.DataParallelStartRank <= 0 {
				return fmt.Errorf("%w: data parallel start rank %d is not positive", ErrConfig, c.DataParallelStartRank)
			}
		}
	default:
		return fmt.Errorf("%w: unknown script variant %q", ErrConfig, variant)
	}
	return nil
}
