package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/reoring/skematic"
	"github.com/reoring/skematic/i18n"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	switch os.Args[1] {
	case "check":
		checkCmd(os.Args[2:])
	case "validate":
		validateCmd(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "skematic CLI\n\nUsage:\n  skematic check -schema schema.json [-strict]\n  skematic validate -schema schema.json [-cast] [-strict-format] [-fail-fast] [-lang en|ja] instance.json ...\n\nSchemas and instances may be JSON or YAML (by file extension).")
}

// checkCmd compiles a schema and reports build errors without validating
// anything.
func checkCmd(args []string) {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	var schemaPath string
	var strict bool
	fs.StringVar(&schemaPath, "schema", "", "schema file (JSON or YAML)")
	fs.BoolVar(&strict, "strict", false, "reject unknown keywords")
	_ = fs.Parse(args)
	if schemaPath == "" {
		fs.Usage()
		os.Exit(2)
	}

	if _, err := compileFile(schemaPath, skematic.CompileOpt{StrictKeywords: strict}); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Printf("%s: ok\n", schemaPath)
}

func validateCmd(args []string) {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	var schemaPath, lang string
	var cast, strictFormat, strictKeywords, failFast bool
	fs.StringVar(&schemaPath, "schema", "", "schema file (JSON or YAML)")
	fs.StringVar(&lang, "lang", "en", "message language (en/ja)")
	fs.BoolVar(&cast, "cast", false, "apply lossless numeric coercions")
	fs.BoolVar(&strictFormat, "strict-format", false, "assert format keywords")
	fs.BoolVar(&strictKeywords, "strict", false, "reject unknown keywords")
	fs.BoolVar(&failFast, "fail-fast", false, "stop at the first issue per node")
	_ = fs.Parse(args)
	if schemaPath == "" || fs.NArg() == 0 {
		fs.Usage()
		os.Exit(2)
	}
	i18n.SetLanguage(lang)

	s, err := compileFile(schemaPath, skematic.CompileOpt{StrictKeywords: strictKeywords})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	ctx := context.Background()
	opt := skematic.ValidateOpt{Cast: cast, StrictFormat: strictFormat, FailFast: failFast}
	exit := 0
	for _, path := range fs.Args() {
		inst, err := loadDocument(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			exit = 1
			continue
		}
		if _, err := s.Validate(ctx, inst, opt); err != nil {
			exit = 1
			if iss, ok := skematic.AsIssues(err); ok {
				fmt.Printf("%s: invalid\n", path)
				for _, line := range skematic.FormatIssues(iss) {
					fmt.Println("  " + line)
				}
			} else {
				fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			}
			continue
		}
		fmt.Printf("%s: valid\n", path)
	}
	os.Exit(exit)
}

func compileFile(path string, opt skematic.CompileOpt) (*skematic.Schema, error) {
	doc, err := loadDocument(path)
	if err != nil {
		return nil, err
	}
	opt.Loader = dirLoader(filepath.Dir(path))
	if opt.DefaultBase == "" {
		opt.DefaultBase = filepath.Base(path)
	}
	s, err := skematic.Compile(doc, opt)
	if err != nil {
		var be *skematic.BuildError
		if errors.As(err, &be) {
			return nil, fmt.Errorf("%s: %w", path, be)
		}
		return nil, err
	}
	return s, nil
}

func loadDocument(path string) (any, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return skematic.DocumentFromYAML(b)
	default:
		return skematic.DocumentFromJSON(b)
	}
}

// dirLoader resolves file://-less relative bases against the schema's
// directory, so split schema files work without a registry.
type dirLoader string

func (d dirLoader) Load(base string) (any, error) {
	if strings.Contains(base, "://") {
		return nil, fmt.Errorf("cannot load remote schema %q", base)
	}
	return loadDocument(filepath.Join(string(d), base))
}
