package skematic

import (
	"fmt"
	"regexp"

	"github.com/reoring/skematic/format"
)

// Loader is the schema retrieval collaborator: given a base identifier it
// returns the raw schema document as a JSON-like value tree, or an error.
// The builder calls a Loader at most once per distinct base and caches the
// result for the lifetime of one compilation.
type Loader interface {
	Load(base string) (any, error)
}

// MapLoader serves schema documents from an in-memory map keyed by base.
type MapLoader map[string]any

func (m MapLoader) Load(base string) (any, error) {
	doc, ok := m[base]
	if !ok {
		return nil, fmt.Errorf("skematic: schema %q not found", base)
	}
	return doc, nil
}

// Matcher is the compiled form produced by the regular-expression
// collaborator; pattern and patternProperties only need membership tests.
type Matcher interface {
	MatchString(s string) bool
}

// RegexpCompiler compiles a pattern string into a Matcher. Compilation
// failure surfaces as a BuildError tied to the offending keyword.
type RegexpCompiler func(pattern string) (Matcher, error)

func stdRegexpCompiler(pattern string) (Matcher, error) {
	return regexp.Compile(pattern)
}

// CompileOpt bundles compilation options.
type CompileOpt struct {
	// StrictKeywords makes keywords claimed by no vocabulary a build error
	// instead of being ignored.
	StrictKeywords bool
	// Loader resolves external bases referenced via $ref/$dynamicRef.
	// When nil, any external reference fails the build.
	Loader Loader
	// Regexp overrides the regular-expression collaborator. Defaults to the
	// standard library.
	Regexp RegexpCompiler
	// DefaultBase names the root document when it declares no $id.
	DefaultBase string
}

func (o CompileOpt) regexp() RegexpCompiler {
	if o.Regexp != nil {
		return o.Regexp
	}
	return stdRegexpCompiler
}

// ValidateOpt bundles validation options.
type ValidateOpt struct {
	// Cast applies the lossless numeric coercions (whole-number float or
	// fraction-free decimal under type:integer becomes a native integer) and
	// propagates the replaced values upward. When false the same instances
	// are accepted but returned unchanged.
	Cast bool
	// StrictFormat asserts format keywords instead of treating them as
	// annotations.
	StrictFormat bool
	// Checkers is the ordered format-checker set; the first checker
	// supporting a format name wins. Defaults to format.Default().
	Checkers []format.Checker
	// FailFast stops at the first issue at each schema node instead of
	// collecting siblings.
	FailFast bool
}

func (o ValidateOpt) checkers() []format.Checker {
	if o.Checkers != nil {
		return o.Checkers
	}
	return format.Default()
}
