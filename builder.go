package skematic

import (
	"fmt"
	"sort"
	"strconv"
)

// builder walks raw schema documents once per distinct schema location,
// dispatches keywords to the vocabulary that claims them, and assembles the
// compiled-schema table. It is a sequential fold owned by one compilation
// call; the table it produces is read-only afterwards.
type builder struct {
	opt CompileOpt
	reg *registry

	table    map[string]*unit
	inFlight map[string]struct{}
	jobs     []compileJob

	// resources caches raw documents by base; the loader is consulted at
	// most once per base.
	resources map[string]any
	// anchors and dynAnchors map "base#name" to the declaring location.
	anchors    map[string]Location
	dynAnchors map[string]Location
	// refs collects every reference record for lazy resolution in finish.
	refs []*refRecord
	// aliases maps a parent-derived key of an embedded-$id node to its
	// canonical key; applied once compilation settles.
	aliases map[string]string
}

type compileJob struct {
	raw any
	loc Location
}

func newBuilder(opt CompileOpt) *builder {
	return &builder{
		opt:        opt,
		reg:        defaultRegistry(),
		table:      map[string]*unit{},
		inFlight:   map[string]struct{}{},
		resources:  map[string]any{},
		anchors:    map[string]Location{},
		dynAnchors: map[string]Location{},
		aliases:    map[string]string{},
	}
}

func compileRoot(doc any, opt CompileOpt) (*Schema, error) {
	b := newBuilder(opt)
	base := opt.DefaultBase
	if base == "" {
		base = "mem://schema"
	}
	if m, ok := doc.(map[string]any); ok {
		if id, ok := m["$id"].(string); ok && id != "" {
			base = resolveBase("", id)
		}
	}
	root := Location{Base: base}
	if err := b.addResource(base, doc); err != nil {
		return nil, err
	}
	b.stage(doc, root)
	if err := b.finish(); err != nil {
		return nil, err
	}
	return &Schema{
		root:       root,
		table:      b.table,
		anchors:    b.anchors,
		dynAnchors: b.dynAnchors,
	}, nil
}

// addResource registers a raw document under its base and pre-scans it for
// embedded resources ($id) and anchor declarations, so that forward and
// cross-resource anchor references resolve without a second load.
func (b *builder) addResource(base string, doc any) error {
	if _, ok := b.resources[base]; ok {
		return nil
	}
	b.resources[base] = doc
	return b.scanResource(doc, base, Location{Base: base})
}

// scanResource walks the raw tree registering $anchor/$dynamicAnchor under
// the innermost enclosing base. Nested nodes declaring their own $id become
// embedded resources and anchor registration continues under the new base.
func (b *builder) scanResource(v any, base string, loc Location) error {
	m, ok := v.(map[string]any)
	if !ok {
		if arr, ok := v.([]any); ok {
			for i, el := range arr {
				if err := b.scanResource(el, base, loc.Child(strconv.Itoa(i))); err != nil {
					return err
				}
			}
		}
		return nil
	}
	if id, ok := m["$id"]; ok && loc.Ptr != "" {
		s, ok := id.(string)
		if !ok || s == "" {
			return buildErrf(loc, "$id", "must be a non-empty string")
		}
		newBase := resolveBase(base, s)
		if _, seen := b.resources[newBase]; !seen {
			b.resources[newBase] = m
		}
		base = newBase
		loc = Location{Base: newBase}
	}
	if a, ok := m["$anchor"]; ok {
		s, ok := a.(string)
		if !ok || s == "" {
			return buildErrf(loc, "$anchor", "must be a non-empty string")
		}
		b.anchors[base+"#"+s] = loc
	}
	if a, ok := m["$dynamicAnchor"]; ok {
		s, ok := a.(string)
		if !ok || s == "" {
			return buildErrf(loc, "$dynamicAnchor", "must be a non-empty string")
		}
		b.dynAnchors[base+"#"+s] = loc
		// a dynamic anchor is also addressable as a plain anchor
		if _, dup := b.anchors[base+"#"+s]; !dup {
			b.anchors[base+"#"+s] = loc
		}
	}
	for k, val := range m {
		if err := b.scanResource(val, base, loc.Child(k)); err != nil {
			return err
		}
	}
	return nil
}

// stage queues a sub-schema for compilation; already-registered or in-flight
// locations short-circuit so self-referential schemas compile to a graph
// with a back-edge rather than unrolling.
func (b *builder) stage(raw any, loc Location) {
	key := loc.Key()
	if _, done := b.table[key]; done {
		return
	}
	if _, busy := b.inFlight[key]; busy {
		return
	}
	b.inFlight[key] = struct{}{}
	b.jobs = append(b.jobs, compileJob{raw: raw, loc: loc})
}

func (b *builder) drain() error {
	for len(b.jobs) > 0 {
		j := b.jobs[0]
		b.jobs = b.jobs[1:]
		if err := b.compileNode(j.raw, j.loc); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) compileNode(raw any, loc Location) error {
	key := loc.Key()
	defer delete(b.inFlight, key)
	if _, done := b.table[key]; done {
		return nil
	}

	switch t := raw.(type) {
	case bool:
		v := t
		b.table[key] = &unit{loc: loc, boolean: &v}
		return nil
	case map[string]any:
		return b.compileObjectNode(t, loc, key)
	default:
		return buildErrf(loc, "", "schema must be an object or boolean, got %T", raw)
	}
}

func (b *builder) compileObjectNode(raw map[string]any, loc Location, key string) error {
	// A nested $id re-addresses this node to its own base; the compiled unit
	// is registered under both keys so parent-derived references still land.
	if id, ok := raw["$id"].(string); ok && loc.Ptr != "" {
		canonical := Location{Base: resolveBase(loc.Base, id)}
		b.aliases[key] = canonical.Key()
		loc = canonical
		key = loc.Key()
		if _, done := b.table[key]; done {
			return nil
		}
		if _, busy := b.inFlight[key]; busy {
			return nil
		}
		b.inFlight[key] = struct{}{}
		defer delete(b.inFlight, key)
	}

	ns := &nodeState{raw: raw, loc: loc, unclaimed: make(map[string]struct{}, len(raw))}
	for k := range raw {
		ns.unclaimed[k] = struct{}{}
	}

	u := &unit{loc: loc}
	for _, v := range b.reg.vocabs {
		acc := v.init(ns)
		for _, r := range v.rules() {
			if r.kind == ruleIgnoreRest {
				continue
			}
			val, present := raw[r.keyword]
			if !present {
				continue
			}
			switch r.kind {
			case ruleConsume:
				ns.claim(r.keyword)
			case ruleTake:
				if r.guard != nil {
					if err := r.guard(val); err != nil {
						return &BuildError{Keyword: r.keyword, Location: loc, Msg: err.Error()}
					}
				}
				var err error
				acc, err = r.compile(b, ns, acc, val)
				if err != nil {
					if be, ok := err.(*BuildError); ok {
						return be
					}
					return &BuildError{Keyword: r.keyword, Location: loc, Cause: err}
				}
				ns.claim(r.keyword)
			}
		}
		recs, err := v.finalize(b, ns, acc)
		if err != nil {
			if be, ok := err.(*BuildError); ok {
				return be
			}
			return &BuildError{Location: loc, Cause: err}
		}
		for _, rec := range recs {
			u.entries = append(u.entries, entry{vocab: v, rec: rec})
		}
	}

	if b.opt.StrictKeywords && len(ns.unclaimed) > 0 {
		unknown := make([]string, 0, len(ns.unclaimed))
		for k := range ns.unclaimed {
			unknown = append(unknown, k)
		}
		sort.Strings(unknown)
		return buildErrf(loc, unknown[0], "unknown keyword")
	}

	b.table[key] = u
	return nil
}

// finish alternates draining staged jobs with resolving pending references
// until a fixpoint: resolving a pointer reference may stage the target node,
// and compiling it may register further references.
func (b *builder) finish() error {
	for {
		if err := b.drain(); err != nil {
			return err
		}
		progress := false
		for _, r := range b.refs {
			if r.resolved {
				continue
			}
			if err := b.resolveRef(r); err != nil {
				return err
			}
			progress = true
		}
		if !progress && len(b.jobs) == 0 {
			break
		}
	}
	for alias, canonical := range b.aliases {
		if u, ok := b.table[canonical]; ok {
			b.table[alias] = u
		}
	}
	// every reference must land on a compiled unit
	for _, r := range b.refs {
		if _, ok := b.table[r.target.Key()]; !ok {
			return buildErrf(r.at, r.kw, "unresolved reference %s", r.ref)
		}
	}
	return nil
}

func (b *builder) resolveRef(r *refRecord) error {
	doc, err := b.loadResource(r.at, r.kw, r.ref.Base)
	if err != nil {
		return err
	}
	switch r.ref.Kind {
	case RefAnchor:
		t, ok := b.anchors[r.ref.Base+"#"+r.ref.Anchor]
		if !ok {
			return buildErrf(r.at, r.kw, "anchor %q not found in %s", r.ref.Anchor, r.ref.Base)
		}
		r.target = t
		if _, done := b.table[t.Key()]; !done {
			if node, err := evalPointer(doc, t.Ptr); err == nil {
				b.stage(node, t)
			}
		}
		// A $dynamicRef stays dynamic only when the resolved base itself
		// declares a matching $dynamicAnchor; otherwise it degrades silently
		// to a non-dynamic reference.
		if r.kw == "$dynamicRef" {
			if _, ok := b.dynAnchors[r.ref.Base+"#"+r.ref.Anchor]; ok {
				r.dynamic = true
				r.anchor = r.ref.Anchor
			}
		}
	case RefPointer:
		tgt := Location{Base: r.ref.Base, Ptr: r.ref.Ptr}
		if _, done := b.table[tgt.Key()]; !done {
			node, err := evalPointer(doc, r.ref.Ptr)
			if err != nil {
				return buildErrf(r.at, r.kw, "cannot resolve pointer %q in %s", r.ref.Ptr, r.ref.Base)
			}
			// Boundary skip: a pointer target carrying its own base is
			// re-addressed to that base directly, so dynamic resolution never
			// has to re-derive intermediate bases.
			if m, ok := node.(map[string]any); ok {
				if id, ok := m["$id"].(string); ok && id != "" && r.ref.Ptr != "" {
					tgt = Location{Base: resolveBase(r.ref.Base, id)}
				}
			}
			b.stage(node, tgt)
		}
		r.target = tgt
	}
	r.resolved = true
	// staged target nodes still need compiling
	return nil
}

func (b *builder) loadResource(at Location, kw, base string) (any, error) {
	if doc, ok := b.resources[base]; ok {
		return doc, nil
	}
	if b.opt.Loader == nil {
		return nil, buildErrf(at, kw, "no loader configured for external schema %q", base)
	}
	doc, err := b.opt.Loader.Load(base)
	if err != nil {
		return nil, &BuildError{Keyword: kw, Location: at, Msg: fmt.Sprintf("loading schema %q", base), Cause: err}
	}
	if err := b.addResource(base, doc); err != nil {
		return nil, err
	}
	b.stage(doc, Location{Base: base})
	if err := b.drain(); err != nil {
		return nil, err
	}
	return doc, nil
}

// evalPointer resolves a JSON Pointer within a raw document.
func evalPointer(doc any, ptr string) (any, error) {
	cur := doc
	for _, seg := range splitPointer(ptr) {
		switch t := cur.(type) {
		case map[string]any:
			v, ok := t[seg]
			if !ok {
				return nil, fmt.Errorf("missing key %q", seg)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, fmt.Errorf("bad index %q", seg)
			}
			cur = t[i]
		default:
			return nil, fmt.Errorf("cannot descend into %T", cur)
		}
	}
	return cur, nil
}
