package script

import (
	"errors"
	"fmt"
	"strings"

	"github.com/starmountain1997/vaops/pkg/vllmconfig"
)

// ErrRender marks a template/config mismatch: a missing template, a failed
// substitution or a placeholder surviving into the output.
var ErrRender = errors.New("render error")

// GSM8KPrep is the auxiliary dataset-prep script. It renders from
// DatasetParams rather than a DeploymentConfig.
const GSM8KPrep = vllmconfig.Variant("gsm8k_prep")

const gsm8kTemplateFile = "gsm8k_prep.sh.tmpl"

// RenderedScript is a rendered launch script. It is immutable once produced
// and its content carries no unresolved placeholder tokens.
type RenderedScript struct {
	Variant  vllmconfig.Variant
	Filename string
	Content  string
}

// Render produces the launch script for a deployment variant from a resolved
// configuration. The config is validated for the variant first; rendering the
// same inputs twice yields byte-identical output.
func Render(variant vllmconfig.Variant, cfg vllmconfig.DeploymentConfig) (RenderedScript, error) {
	e, ok := catalog[variant]
	if !ok {
		return RenderedScript{}, fmt.Errorf("%w: no template for variant %q", ErrRender, variant)
	}
	if err := cfg.Validate(variant); err != nil {
		return RenderedScript{}, err
	}
	content, err := execute(e.file, cfg)
	if err != nil {
		return RenderedScript{}, err
	}
	return RenderedScript{Variant: variant, Filename: e.filename, Content: content}, nil
}

// DatasetParams parameterize the GSM8K benchmark dataset prep script.
type DatasetParams struct {
	InputLen  int
	BatchSize int
	ModelID   string
}

// RenderDataset produces the benchmark dataset preparation script.
func RenderDataset(p DatasetParams) (RenderedScript, error) {
	if p.InputLen <= 0 {
		return RenderedScript{}, fmt.Errorf("%w: input length %d is not positive", vllmconfig.ErrConfig, p.InputLen)
	}
	if p.BatchSize <= 0 {
		return RenderedScript{}, fmt.Errorf("%w: batch size %d is not positive", vllmconfig.ErrConfig, p.BatchSize)
	}
	if p.ModelID == "" {
		return RenderedScript{}, fmt.Errorf("%w: model id is empty", vllmconfig.ErrConfig)
	}
	content, err := execute(gsm8kTemplateFile, p)
	if err != nil {
		return RenderedScript{}, err
	}
	return RenderedScript{Variant: GSM8KPrep, Filename: "gsm8k_prep.sh", Content: content}, nil
}

// execute runs one catalog template and asserts that no placeholder survived
// substitution. A surviving "{{" means a catalog/config mapping is missing;
// no script is ever emitted with unresolved placeholder syntax.
func execute(file string, data any) (string, error) {
	var b strings.Builder
	if err := templates.ExecuteTemplate(&b, file, data); err != nil {
		return "", fmt.Errorf("%w: execute %s: %v", ErrRender, file, err)
	}
	content := b.String()
	if i := strings.Index(content, "{{"); i >= 0 {
		end := i + 24
		if end > len(content) {
			end = len(content)
		}
		return "", fmt.Errorf("%w: unresolved placeholder near %q", ErrRender, content[i:end])
	}
	return content, nil
}
