package vllmconfig

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DualNodeConfig is the upstream dual-node deployment description: the shared
// environment block and the launch command of each node, master first.
type DualNodeConfig struct {
	Env   []EnvVar
	Nodes []NodeCommand
}

// NodeCommand is one deployment entry's server command, split into stripped
// lines. The first line carries the serve command and the model path; each
// following line is one flag, with its inline quoting preserved.
type NodeCommand struct {
	Name  string
	Lines []string
}

// ParseDualNodeConfig decodes the upstream dual-node YAML. Exactly two
// deployment entries are required: node 0 is the master, node 1 the worker.
func ParseDualNodeConfig(content string) (*DualNodeConfig, error) {
	var doc struct {
		EnvCommon  yaml.Node `yaml:"env_common"`
		Deployment []struct {
			Name      string `yaml:"name"`
			ServerCmd string `yaml:"server_cmd"`
		} `yaml:"deployment"`
	}
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		return nil, fmt.Errorf("%w: parse dual-node reference config: %v", ErrConfig, err)
	}
	if len(doc.Deployment) != 2 {
		return nil, fmt.Errorf("%w: expected 2 deployment entries, found %d", ErrConfig, len(doc.Deployment))
	}

	env, err := envFromMapping(&doc.EnvCommon)
	if err != nil {
		return nil, err
	}

	cfg := &DualNodeConfig{Env: env}
	for _, d := range doc.Deployment {
		cfg.Nodes = append(cfg.Nodes, NodeCommand{Name: d.Name, Lines: commandLines(d.ServerCmd)})
	}
	return cfg, nil
}

// commandLines strips indentation, trailing continuation backslashes and
// blank lines from a multiline command block.
func commandLines(block string) []string {
	var out []string
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimSuffix(line, "\\"))
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return out
}

// envFromMapping walks a YAML mapping node in document order. Booleans are
// normalized to "true"/"false", everything else keeps its scalar text.
func envFromMapping(node *yaml.Node) ([]EnvVar, error) {
	if node.IsZero() || (node.Kind == yaml.ScalarNode && node.Tag == "!!null") {
		return nil, nil
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: env_common is not a mapping", ErrConfig)
	}
	var out []EnvVar
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		if val.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("%w: env_common value for %q is not a scalar", ErrConfig, key.Value)
		}
		value := val.Value
		if val.Tag == "!!bool" {
			b, err := strconv.ParseBool(strings.ToLower(value))
			if err == nil {
				value = strconv.FormatBool(b)
			}
		}
		out = append(out, EnvVar{Name: key.Value, Value: value})
	}
	return out, nil
}
