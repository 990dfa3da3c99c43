package skematic

import "sort"

// ruleKind classifies how a vocabulary consumes a keyword it claims.
type ruleKind int

const (
	// ruleTake compiles the keyword's raw value (optionally guarded by a
	// shape predicate) into a partial validator entry.
	ruleTake ruleKind = iota
	// ruleConsume recognizes the keyword but produces no runtime validator
	// (documentation/identity keywords).
	ruleConsume
	// ruleIgnoreRest marks that any keyword not otherwise claimed by this
	// vocabulary is left for other vocabularies. Each vocabulary lists it
	// exactly once, as its final rule.
	ruleIgnoreRest
)

// keywordRule is one consumption rule of a vocabulary.
type keywordRule struct {
	keyword string
	kind    ruleKind
	// guard validates the raw value's shape before compile runs; a non-nil
	// error fails the build with the offending keyword attached.
	guard func(v any) error
	// compile folds the raw value into the vocabulary's accumulator and may
	// stage sub-schema compile jobs on the builder.
	compile func(b *builder, ns *nodeState, acc any, v any) (any, error)
}

// record is an opaque compiled validator record, produced by a vocabulary's
// finalize and consumed only by that vocabulary's execute.
type record interface {
	keyword() string
}

// vocabulary is one keyword family: it declares its consumption rules,
// merges accumulated entries into compact runtime records, executes those
// records against instances, and formats the errors they produce.
type vocabulary interface {
	name() string
	// priority fixes module-level ordering: reference-following runs before
	// structural assertions, assertions before format checks, and the
	// unevaluated keywords last.
	priority() int
	rules() []keywordRule
	// init seeds the per-schema-node accumulator.
	init(ns *nodeState) any
	// finalize turns the accumulator into zero or more records; nil means
	// the vocabulary contributes nothing at this schema node.
	finalize(b *builder, ns *nodeState, acc any) ([]record, error)
	execute(e *evalCtx, rec record, v any) (any, Issues)
	formatError(it Issue) string
}

// entry pairs a compiled record with its owning vocabulary.
type entry struct {
	vocab vocabulary
	rec   record
}

// unit is the compiled validator list for one schema location. Boolean
// schemas never enter keyword dispatch and compile to the two-element base
// case instead.
type unit struct {
	loc     Location
	boolean *bool
	entries []entry
}

// nodeState is the builder's per-schema-node dispatch state.
type nodeState struct {
	raw       map[string]any
	loc       Location
	unclaimed map[string]struct{}
}

func (ns *nodeState) claim(kw string) { delete(ns.unclaimed, kw) }

// registry is the closed set of vocabularies, resolved once into a
// keyword->vocabulary table at builder construction time.
type registry struct {
	vocabs    []vocabulary
	byKeyword map[string]vocabulary
}

func newRegistry(in ...vocabulary) *registry {
	vs := append([]vocabulary(nil), in...)
	sort.SliceStable(vs, func(i, j int) bool { return vs[i].priority() < vs[j].priority() })
	byKw := make(map[string]vocabulary)
	for _, v := range vs {
		for _, r := range v.rules() {
			if r.kind == ruleIgnoreRest {
				continue
			}
			if _, dup := byKw[r.keyword]; !dup {
				byKw[r.keyword] = v
			}
		}
	}
	return &registry{vocabs: vs, byKeyword: byKw}
}

var defaultVocabularies = []vocabulary{
	coreVocab{},
	applicatorVocab{},
	validationVocab{},
	formatVocab{},
	contentVocab{},
	metadataVocab{},
	unevaluatedVocab{},
}

func defaultRegistry() *registry {
	return newRegistry(defaultVocabularies...)
}
