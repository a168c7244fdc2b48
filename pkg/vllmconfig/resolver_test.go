package vllmconfig

import (
	"context"
	"errors"
	"os"
	"testing"
)

func fixtureSource(t *testing.T) StaticSource {
	t.Helper()
	py, err := os.ReadFile("testdata/test_deepseek_v3_2_w8a8.py")
	if err != nil {
		t.Fatalf("read single-node fixture: %v", err)
	}
	yml, err := os.ReadFile("testdata/deepseek_v3_2_w8a8_dual.yaml")
	if err != nil {
		t.Fatalf("read dual-node fixture: %v", err)
	}
	return StaticSource{SingleNodePy: string(py), DualNodeYAML: string(yml)}
}

func TestResolveSingleNodeDefaults(t *testing.T) {
	r := &Resolver{Source: fixtureSource(t)}

	cfg, err := r.Resolve(context.Background(), SingleNode, Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.ModelPath != "vllm-ascend/DeepSeek-V3.2-Exp-W8A8" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.ServedModelName != "dsv32" {
		t.Errorf("ServedModelName = %q, want dsv32 (lifted from server args)", cfg.ServedModelName)
	}
	if cfg.Port != 8087 {
		t.Errorf("Port = %d, want 8087", cfg.Port)
	}
	if cfg.TensorParallelSize != 16 || cfg.DataParallelSize != 1 {
		t.Errorf("TP/DP = %d/%d, want 16/1", cfg.TensorParallelSize, cfg.DataParallelSize)
	}

	// Canonical flags are lifted out of the passthrough extras.
	for _, f := range cfg.ExtraFlags {
		switch f.Name {
		case "--port", "--tensor-parallel-size", "--data-parallel-size", "--served-model-name":
			t.Errorf("canonical flag %s left in extras", f.Name)
		}
	}
	extras := map[string]string{}
	for _, f := range cfg.ExtraFlags {
		extras[f.Name] = f.Value
	}
	if extras["--quantization"] != "ascend" {
		t.Errorf("extras missing --quantization ascend: %v", cfg.ExtraFlags)
	}
	if _, ok := extras["--enforce-eager"]; !ok {
		t.Errorf("extras missing --enforce-eager: %v", cfg.ExtraFlags)
	}
}

func TestResolveSingleNodeOverrides(t *testing.T) {
	r := &Resolver{Source: fixtureSource(t)}

	cfg, err := r.Resolve(context.Background(), SingleNode, Overrides{
		ModelPath:       "/mnt/weight/DeepSeek-V3.2-Exp-W8A8",
		ServedModelName: "dsv3",
		Port:            9000,
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.ModelPath != "/mnt/weight/DeepSeek-V3.2-Exp-W8A8" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.ServedModelName != "dsv3" {
		t.Errorf("ServedModelName = %q", cfg.ServedModelName)
	}
	if cfg.Port != 9000 {
		t.Errorf("Port = %d, want 9000", cfg.Port)
	}
}

func TestResolveDualNodeMaster(t *testing.T) {
	r := &Resolver{Source: fixtureSource(t)}

	cfg, err := r.Resolve(context.Background(), DualNodeMaster, Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.ServeCommand != "vllm serve" {
		t.Errorf("ServeCommand = %q", cfg.ServeCommand)
	}
	if cfg.ModelPath != "/root/.cache/weights/DeepSeek-V3.2-Exp-W8A8" {
		t.Errorf("ModelPath = %q", cfg.ModelPath)
	}
	if cfg.ServedModelName != "deepseek_v3.2" {
		t.Errorf("ServedModelName = %q", cfg.ServedModelName)
	}
	if cfg.Port != 8004 {
		t.Errorf("Port = %d, want 8004", cfg.Port)
	}
	if cfg.TensorParallelSize != 8 || cfg.DataParallelSize != 4 || cfg.DataParallelSizeLocal != 2 {
		t.Errorf("TP/DP/DP-local = %d/%d/%d, want 8/4/2",
			cfg.TensorParallelSize, cfg.DataParallelSize, cfg.DataParallelSizeLocal)
	}
	if cfg.RPCPort != 13389 {
		t.Errorf("RPCPort = %d, want 13389", cfg.RPCPort)
	}

	// The hard-coded rendezvous address must not survive resolution; the
	// template emits the LOCAL_IP form instead.
	for _, f := range cfg.ExtraFlags {
		if f.Name == "--data-parallel-address" {
			t.Errorf("rendezvous address leaked into extras: %v", f)
		}
	}
}

func TestResolveDualNodeWorker(t *testing.T) {
	r := &Resolver{
		Source:   fixtureSource(t),
		DetectIP: func() (string, error) { return "10.0.0.5", nil },
	}

	cfg, err := r.Resolve(context.Background(), DualNodeWorker, Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	if cfg.DataParallelStartRank != 2 {
		t.Errorf("DataParallelStartRank = %d, want 2", cfg.DataParallelStartRank)
	}
	if cfg.MasterIP != "10.0.0.5" {
		t.Errorf("MasterIP = %q, want the detected IP", cfg.MasterIP)
	}
	for _, f := range cfg.ExtraFlags {
		if f.Name == "--headless" || f.Name == "--data-parallel-address" {
			t.Errorf("template-owned flag leaked into extras: %v", f)
		}
	}
}

func TestResolveDualNodeWorkerMasterIPOverride(t *testing.T) {
	r := &Resolver{
		Source:   fixtureSource(t),
		DetectIP: func() (string, error) { return "10.0.0.5", nil },
	}

	cfg, err := r.Resolve(context.Background(), DualNodeWorker, Overrides{MasterIP: "192.168.1.10"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if cfg.MasterIP != "192.168.1.10" {
		t.Errorf("MasterIP = %q, want the override", cfg.MasterIP)
	}
}

func TestResolveDualNodeWorkerNoDetection(t *testing.T) {
	r := &Resolver{Source: fixtureSource(t)}

	_, err := r.Resolve(context.Background(), DualNodeWorker, Overrides{MasterIP: "auto"})
	if err == nil {
		t.Fatal("expected an error when auto-detection is unavailable")
	}
	if !errors.Is(err, ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}

func TestResolveWorkerStartRankDerived(t *testing.T) {
	yml := `deployment:
  - name: node0
    server_cmd: |
      vllm serve /models/m \
        --data-parallel-size 8 \
        --data-parallel-size-local 2 \
        --data-parallel-rpc-port 13389 \
        --tensor-parallel-size 4
  - name: node1
    server_cmd: |
      vllm serve /models/m \
        --headless \
        --data-parallel-size 8 \
        --data-parallel-size-local 2 \
        --data-parallel-rpc-port 13389 \
        --tensor-parallel-size 4
`
	r := &Resolver{
		Source:   StaticSource{DualNodeYAML: yml},
		DetectIP: func() (string, error) { return "10.0.0.5", nil },
	}

	cfg, err := r.Resolve(context.Background(), DualNodeWorker, Overrides{})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	// The reference omits the start rank, so it falls out of the topology.
	if cfg.DataParallelStartRank != 6 {
		t.Errorf("DataParallelStartRank = %d, want 8-2=6", cfg.DataParallelStartRank)
	}
}

func TestResolveUnknownVariant(t *testing.T) {
	r := &Resolver{Source: fixtureSource(t)}
	if _, err := r.Resolve(context.Background(), Variant("bogus"), Overrides{}); !errors.Is(err, ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}

func TestValidateRejectsBadPort(t *testing.T) {
	cfg := DeploymentConfig{
		ModelPath:          "/models/m",
		ServedModelName:    "m",
		Port:               70000,
		TensorParallelSize: 1,
		DataParallelSize:   1,
	}
	if err := cfg.Validate(SingleNode); !errors.Is(err, ErrConfig) {
		t.Errorf("error = %v, want ErrConfig", err)
	}
}
