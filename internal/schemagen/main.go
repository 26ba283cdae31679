// Command schemagen writes the JSON schemas of rule documents and
// configuration files, with descriptions taken from Go doc comments.
package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"

	"github.com/macropower/rulepack/api/v1beta1/configs"
	"github.com/macropower/rulepack/pkg/rule"
	"github.com/macropower/rulepack/pkg/yaml"
)

const modulePath = "github.com/macropower/rulepack"

var (
	kind    = flag.String("kind", "rule", "Schema to generate, one of: [rule, config]")
	outFile = flag.String("o", "schema.json", "Output file for the generated schema")
	root    = flag.String("root", ".", "Module root, for reading doc comments")
)

func main() {
	flag.Parse()

	out, err := filepath.Abs(*outFile)
	if err != nil {
		log.Fatalf("resolve output path: %v", err)
	}

	var (
		gen  *yaml.SchemaGenerator
		id   string
		pkgs []string
	)

	switch *kind {
	case "rule":
		gen, id, pkgs = yaml.NewSchemaGenerator(&rule.Rule{}), rule.SchemaURL, []string{"pkg/rule"}
	case "config":
		gen, id, pkgs = yaml.NewSchemaGenerator(configs.New()), configs.SchemaURL, []string{"api/v1beta1"}
	default:
		log.Fatalf("unknown schema kind %q", *kind)
	}

	// Doc comments are read relative to the module root.
	err = os.Chdir(*root)
	if err != nil {
		log.Fatalf("change to module root: %v", err)
	}

	opts := []yaml.SchemaOpt{yaml.WithSchemaID(id)}
	for _, pkg := range pkgs {
		opts = append(opts, yaml.WithGoComments(modulePath, pkg))
	}

	jsData, err := gen.Generate(opts...)
	if err != nil {
		log.Fatalf("generate JSON schema: %v", err)
	}

	err = os.MkdirAll(filepath.Dir(out), 0o755)
	if err != nil {
		log.Fatalf("create output directory: %v", err)
	}

	// Write schema.json file.
	err = os.WriteFile(out, jsData, 0o600)
	if err != nil {
		log.Fatalf("write schema file: %v", err)
	}
}
