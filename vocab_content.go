package skematic

// contentRec records the content annotations for one schema node. The
// content keywords never assert: contentSchema is compiled (so it can be
// referenced) but not applied to the instance.
type contentRec struct {
	encoding  string
	mediaType string
	schema    *Location
}

func (*contentRec) keyword() string { return "contentEncoding" }

type contentVocab struct{}

func (contentVocab) name() string  { return "content" }
func (contentVocab) priority() int { return 40 }

func (contentVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "contentEncoding", kind: ruleTake, guard: guardString, compile: compileContent("contentEncoding")},
		{keyword: "contentMediaType", kind: ruleTake, guard: guardString, compile: compileContent("contentMediaType")},
		{keyword: "contentSchema", kind: ruleTake, guard: guardSchema, compile: compileContent("contentSchema")},
		{kind: ruleIgnoreRest},
	}
}

func (contentVocab) init(ns *nodeState) any { return &contentRec{} }

func compileContent(kw string) func(b *builder, ns *nodeState, acc any, v any) (any, error) {
	return func(b *builder, ns *nodeState, acc any, v any) (any, error) {
		r := acc.(*contentRec)
		switch kw {
		case "contentEncoding":
			r.encoding = v.(string)
		case "contentMediaType":
			r.mediaType = v.(string)
		case "contentSchema":
			loc := ns.loc.Child("contentSchema")
			b.stage(v, loc)
			r.schema = &loc
		}
		return r, nil
	}
}

func (contentVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	r := acc.(*contentRec)
	if r.encoding == "" && r.mediaType == "" && r.schema == nil {
		return nil, nil
	}
	return []record{r}, nil
}

func (contentVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	// annotations only
	return v, nil
}

func (contentVocab) formatError(it Issue) string {
	return it.Path + ": " + it.Message
}
