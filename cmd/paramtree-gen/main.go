// Command paramtree-gen compiles YAML data model files into Go source that
// builds the same definition with the schema builder, so a device can embed
// its data model without parsing YAML at startup.
//
// Usage:
//
//	paramtree-gen -bundle tr181 -package model -output tr181_gen.go
//	paramtree-gen -model acme.yaml,acme-diag.yaml -func AcmeModel -output acme_gen.go
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/tools/imports"

	"github.com/paramtree/paramtree-go/pkg/model"
	"github.com/paramtree/paramtree-go/pkg/schema"
)

func main() {
	bundle := flag.String("bundle", "", "Bundled data model: "+strings.Join(schema.Bundles(), ", "))
	models := flag.String("model", "", "Comma-separated YAML model files")
	pkg := flag.String("package", "main", "Package name of the generated file")
	fn := flag.String("func", "", "Name of the generated function (derived from the model name if empty)")
	output := flag.String("output", "", "Output path for the generated Go file")
	flag.Parse()

	if (*bundle == "") == (*models == "") || *output == "" {
		fmt.Fprintln(os.Stderr, "Usage: paramtree-gen (-bundle <name> | -model <files>) -output <path> [-package <name>] [-func <name>]")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(*bundle, *models, *pkg, *fn, *output); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(bundle, models, pkg, fn, output string) error {
	var (
		def    *model.ObjectDef
		source string
		err    error
	)
	if bundle != "" {
		def, err = schema.LoadBundle(bundle)
		source = "bundle " + bundle
		if fn == "" {
			fn = funcName(bundle)
		}
	} else {
		paths := strings.Split(models, ",")
		def, err = schema.LoadFiles(paths...)
		names := make([]string, len(paths))
		for i, p := range paths {
			names[i] = filepath.Base(p)
		}
		source = strings.Join(names, ", ")
		if fn == "" {
			fn = funcName(strings.TrimSuffix(names[0], filepath.Ext(names[0])))
		}
	}
	if err != nil {
		return fmt.Errorf("loading model: %w", err)
	}

	code, err := Generate(def, pkg, fn, source)
	if err != nil {
		return fmt.Errorf("generating %s: %w", def.Name, err)
	}
	if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}
	if err := writeFormatted(output, code); err != nil {
		return err
	}
	fmt.Printf("  generated %s\n", output)
	return nil
}

// writeFormatted formats Go source code with goimports and writes it to a file.
func writeFormatted(path string, code string) error {
	formatted, err := imports.Process(path, []byte(code), nil)
	if err != nil {
		// Write unformatted so you can debug the generator output
		_ = os.WriteFile(path+".broken", []byte(code), 0o644)
		return fmt.Errorf("goimports %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, formatted, 0o644)
}
