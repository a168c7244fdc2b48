// Package script renders launch scripts from the reviewed template catalog.
package script

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"github.com/starmountain1997/vaops/pkg/vllmconfig"
)

//go:embed templates/*.sh.tmpl
var templateFS embed.FS

var templates = template.Must(
	template.New("scripts").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"flagBlock": flagBlock,
		}).
		ParseFS(templateFS, "templates/*.sh.tmpl"),
)

// catalog maps each deployment variant to its template file and the filename
// the rendered script is written as.
var catalog = map[vllmconfig.Variant]catalogEntry{
	vllmconfig.SingleNode:     {file: "single_node.sh.tmpl", filename: "start_server.sh"},
	vllmconfig.DualNodeMaster: {file: "dual_node_master.sh.tmpl", filename: "node0.sh"},
	vllmconfig.DualNodeWorker: {file: "dual_node_worker.sh.tmpl", filename: "node1.sh"},
}

type catalogEntry struct {
	file     string
	filename string
}

// Template returns the parsed template for a deployment variant.
func Template(variant vllmconfig.Variant) (*template.Template, error) {
	e, ok := catalog[variant]
	if !ok {
		return nil, fmt.Errorf("%w: no template for variant %q", ErrRender, variant)
	}
	return templates.Lookup(e.file), nil
}

// Filename returns the output filename a deployment variant renders to.
func Filename(variant vllmconfig.Variant) (string, error) {
	e, ok := catalog[variant]
	if !ok {
		return "", fmt.Errorf("%w: no template for variant %q", ErrRender, variant)
	}
	return e.filename, nil
}

// flagBlock joins passthrough flags into backslash-continued command lines.
func flagBlock(flags []vllmconfig.Flag) string {
	parts := make([]string, 0, len(flags))
	for _, f := range flags {
		parts = append(parts, f.String())
	}
	return strings.Join(parts, " \\\n    ")
}
