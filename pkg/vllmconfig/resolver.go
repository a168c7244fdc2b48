package vllmconfig

import (
	"context"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/starmountain1997/vaops/pkg/config"
)

// Overrides carries the caller-supplied configuration fields. Zero values
// mean "use the upstream default".
type Overrides struct {
	ModelPath       string
	ServedModelName string
	Port            int
	MasterIP        string
	Branch          string
}

// Resolver merges overrides with upstream defaults into a DeploymentConfig.
// DetectIP, when set, supplies the master address for worker scripts when no
// master IP override is given; leaving it nil disables auto-detection.
type Resolver struct {
	Source   Source
	DetectIP func() (string, error)
}

// Resolve builds the configuration for one script variant. It is pure over
// its inputs apart from the optional local-IP lookup.
func (r *Resolver) Resolve(ctx context.Context, variant Variant, ov Overrides) (DeploymentConfig, error) {
	switch variant {
	case SingleNode:
		return r.resolveSingleNode(ctx, ov)
	case DualNodeMaster, DualNodeWorker:
		return r.resolveDualNode(ctx, variant, ov)
	default:
		return DeploymentConfig{}, fmt.Errorf("%w: unknown script variant %q", ErrConfig, variant)
	}
}

func (r *Resolver) resolveSingleNode(ctx context.Context, ov Overrides) (DeploymentConfig, error) {
	ref, err := r.Source.SingleNode(ctx)
	if err != nil {
		return DeploymentConfig{}, err
	}

	cfg := DeploymentConfig{
		Branch: branchOrDefault(ov.Branch),
		Env:    ref.Env,
	}

	cfg.ModelPath = config.DefaultModel
	if len(ref.Models) > 0 {
		cfg.ModelPath = ref.Models[0]
	}
	if ov.ModelPath != "" {
		cfg.ModelPath = ov.ModelPath
	}

	cfg.TensorParallelSize = config.DefaultTensorParallel
	if len(ref.TensorParallels) > 0 {
		cfg.TensorParallelSize = ref.TensorParallels[0]
	}
	cfg.DataParallelSize = config.DefaultDataParallel
	if len(ref.DataParallels) > 0 {
		cfg.DataParallelSize = ref.DataParallels[0]
	}

	cfg.Port = config.DefaultPort
	if ref.Port != 0 {
		cfg.Port = ref.Port
	}
	if ov.Port != 0 {
		cfg.Port = ov.Port
	}

	tokens, err := substitutePlaceholders(ref.ServerArgs, cfg)
	if err != nil {
		return DeploymentConfig{}, err
	}
	flags, err := mergeFlagTokens(tokens)
	if err != nil {
		return DeploymentConfig{}, err
	}
	extras, lifted, err := liftCanonical(flags)
	if err != nil {
		return DeploymentConfig{}, err
	}
	cfg.ExtraFlags = extras

	// Values spelled directly in server_args back the dedicated variables up
	// when the reference config omits them.
	if len(ref.Models) == 0 && ov.ModelPath == "" && lifted.modelPath != "" {
		cfg.ModelPath = lifted.modelPath
	}
	if len(ref.TensorParallels) == 0 && lifted.tensorParallel > 0 {
		cfg.TensorParallelSize = lifted.tensorParallel
	}
	if len(ref.DataParallels) == 0 && lifted.dataParallel > 0 {
		cfg.DataParallelSize = lifted.dataParallel
	}
	if ref.Port == 0 && ov.Port == 0 && lifted.port > 0 {
		cfg.Port = lifted.port
	}

	cfg.ServedModelName = ov.ServedModelName
	if cfg.ServedModelName == "" {
		cfg.ServedModelName = lifted.servedModelName
	}
	if cfg.ServedModelName == "" {
		cfg.ServedModelName = path.Base(cfg.ModelPath)
	}

	if err := cfg.Validate(SingleNode); err != nil {
		return DeploymentConfig{}, err
	}
	return cfg, nil
}

func (r *Resolver) resolveDualNode(ctx context.Context, variant Variant, ov Overrides) (DeploymentConfig, error) {
	ref, err := r.Source.DualNode(ctx)
	if err != nil {
		return DeploymentConfig{}, err
	}

	node := ref.Nodes[0]
	if variant == DualNodeWorker {
		node = ref.Nodes[1]
	}

	serveCmd, flags, err := parseNodeCommand(node)
	if err != nil {
		return DeploymentConfig{}, err
	}
	extras, lifted, err := liftCanonical(flags)
	if err != nil {
		return DeploymentConfig{}, err
	}

	cfg := DeploymentConfig{
		Branch:       branchOrDefault(ov.Branch),
		Env:          ref.Env,
		ServeCommand: serveCmd,
		ExtraFlags:   extras,
	}
	if cfg.ServeCommand == "" {
		cfg.ServeCommand = "vllm serve"
	}

	cfg.ModelPath = config.DefaultModel
	if lifted.modelPath != "" {
		cfg.ModelPath = lifted.modelPath
	}
	if ov.ModelPath != "" {
		cfg.ModelPath = ov.ModelPath
	}

	cfg.Port = config.DefaultPort
	if lifted.port > 0 {
		cfg.Port = lifted.port
	}

	cfg.TensorParallelSize = config.DefaultDualTensorParallel
	if lifted.tensorParallel > 0 {
		cfg.TensorParallelSize = lifted.tensorParallel
	}
	cfg.DataParallelSize = config.DefaultDualDataParallel
	if lifted.dataParallel > 0 {
		cfg.DataParallelSize = lifted.dataParallel
	}
	cfg.DataParallelSizeLocal = config.DefaultDualDataParallelLocal
	if lifted.dataParallelLocal > 0 {
		cfg.DataParallelSizeLocal = lifted.dataParallelLocal
	}
	cfg.RPCPort = config.DefaultRPCPort
	if lifted.rpcPort > 0 {
		cfg.RPCPort = lifted.rpcPort
	}

	cfg.DataParallelStartRank = lifted.startRank
	if variant == DualNodeWorker && cfg.DataParallelStartRank == 0 {
		cfg.DataParallelStartRank = cfg.DataParallelSize - cfg.DataParallelSizeLocal
	}

	cfg.ServedModelName = ov.ServedModelName
	if cfg.ServedModelName == "" {
		cfg.ServedModelName = lifted.servedModelName
	}
	if cfg.ServedModelName == "" {
		cfg.ServedModelName = path.Base(cfg.ModelPath)
	}

	if variant == DualNodeWorker {
		ip := ov.MasterIP
		if ip == "" || ip == "auto" {
			if r.DetectIP != nil {
				detected, err := r.DetectIP()
				if err != nil {
					return DeploymentConfig{}, fmt.Errorf("%w: detect local IP: %v", ErrNetwork, err)
				}
				ip = detected
			} else if ip == "auto" {
				return DeploymentConfig{}, fmt.Errorf("%w: master IP auto-detection is not available", ErrConfig)
			}
		}
		cfg.MasterIP = ip
	} else if ov.MasterIP != "" && ov.MasterIP != "auto" {
		cfg.MasterIP = ov.MasterIP
	}

	if err := cfg.Validate(variant); err != nil {
		return DeploymentConfig{}, err
	}
	return cfg, nil
}

func branchOrDefault(branch string) string {
	if branch == "" {
		return config.DefaultBranch
	}
	return branch
}

// substitutePlaceholders replaces the STR_* tokens the reference parser
// produced with the resolved values. Any placeholder left over is a config
// mismatch and rejected outright.
func substitutePlaceholders(tokens []string, cfg DeploymentConfig) ([]string, error) {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		switch t {
		case "STR_TP_SIZE":
			out = append(out, strconv.Itoa(cfg.TensorParallelSize))
		case "STR_DP_SIZE":
			out = append(out, strconv.Itoa(cfg.DataParallelSize))
		case "STR_PORT":
			out = append(out, strconv.Itoa(cfg.Port))
		default:
			if strings.HasPrefix(t, "STR_") {
				return nil, fmt.Errorf("%w: unresolved placeholder %s in reference server args", ErrConfig, t)
			}
			out = append(out, t)
		}
	}
	return out, nil
}

// mergeFlagTokens joins flag/value token pairs: "--flag value" and "-f value"
// become one Flag, inline "--flag=value" spellings and bare switches pass
// through, and tokens without a leading dash stay positional.
func mergeFlagTokens(tokens []string) ([]Flag, error) {
	var flags []Flag
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		switch {
		case strings.HasPrefix(tok, "--"):
			f := Flag{Name: tok}
			if !strings.Contains(tok, "=") && i+1 < len(tokens) && !strings.HasPrefix(tokens[i+1], "-") {
				f.Value = tokens[i+1]
				i++
			}
			flags = append(flags, f)
		case strings.HasPrefix(tok, "-"):
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("%w: flag %s is missing a value", ErrConfig, tok)
			}
			flags = append(flags, Flag{Name: tok, Value: tokens[i+1]})
			i++
		default:
			flags = append(flags, Flag{Name: tok})
		}
	}
	return flags, nil
}

// liftedFields are the canonical values pulled out of a reference command so
// the templates render them from named config fields instead of passing raw
// text through.
type liftedFields struct {
	modelPath         string
	servedModelName   string
	port              int
	tensorParallel    int
	dataParallel      int
	dataParallelLocal int
	startRank         int
	rpcPort           int
}

// liftCanonical separates the canonical flags from the passthrough extras.
// The first positional token is taken as the model path. The rendezvous
// address and the headless switch are dropped entirely: the templates own
// them, emitting the late-bound environment variable form.
func liftCanonical(flags []Flag) ([]Flag, liftedFields, error) {
	var c liftedFields
	var extras []Flag

	for _, f := range flags {
		name, value := f.Name, f.Value
		if n, v, ok := strings.Cut(f.Name, "="); ok && strings.HasPrefix(n, "--") {
			name, value = n, v
		}

		if !strings.HasPrefix(name, "-") {
			if c.modelPath == "" {
				c.modelPath = name
				continue
			}
			extras = append(extras, f)
			continue
		}

		var intTarget *int
		switch name {
		case "--model":
			c.modelPath = value
			continue
		case "--served-model-name":
			c.servedModelName = value
			continue
		case "--data-parallel-address", "--headless":
			continue
		case "--port":
			intTarget = &c.port
		case "--tensor-parallel-size":
			intTarget = &c.tensorParallel
		case "--data-parallel-size":
			intTarget = &c.dataParallel
		case "--data-parallel-size-local":
			intTarget = &c.dataParallelLocal
		case "--data-parallel-start-rank":
			intTarget = &c.startRank
		case "--data-parallel-rpc-port":
			intTarget = &c.rpcPort
		default:
			extras = append(extras, f)
			continue
		}

		n, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, liftedFields{}, fmt.Errorf("%w: invalid value %q for %s", ErrConfig, value, name)
		}
		*intTarget = n
	}
	return extras, c, nil
}

// parseNodeCommand splits a deployment entry into the serve command and its
// flags. The first line carries the command words and the model path; every
// following line is one flag with its inline quoting preserved.
func parseNodeCommand(node NodeCommand) (string, []Flag, error) {
	if len(node.Lines) == 0 {
		return "", nil, fmt.Errorf("%w: deployment %q has an empty server_cmd", ErrConfig, node.Name)
	}

	first := strings.Fields(node.Lines[0])
	serveCmd := ""
	idx := 0
	switch {
	case len(first) >= 2 && first[0] == "vllm" && first[1] == "serve":
		serveCmd = "vllm serve"
		idx = 2
	case len(first) >= 3 && (first[0] == "python" || first[0] == "python3") && first[1] == "-m":
		serveCmd = strings.Join(first[:3], " ")
		idx = 3
	case len(first) > 0:
		serveCmd = first[0]
		idx = 1
	}

	flags, err := mergeFlagTokens(first[idx:])
	if err != nil {
		return "", nil, err
	}
	for _, line := range node.Lines[1:] {
		name, value, _ := strings.Cut(line, " ")
		flags = append(flags, Flag{Name: name, Value: strings.TrimSpace(value)})
	}
	return serveCmd, flags, nil
}
