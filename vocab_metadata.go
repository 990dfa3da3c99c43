package skematic

// metadataVocab consumes the documentation keywords; they never produce a
// runtime validator.
type metadataVocab struct{}

func (metadataVocab) name() string  { return "metadata" }
func (metadataVocab) priority() int { return 50 }

func (metadataVocab) rules() []keywordRule {
	return []keywordRule{
		{keyword: "title", kind: ruleConsume},
		{keyword: "description", kind: ruleConsume},
		{keyword: "default", kind: ruleConsume},
		{keyword: "examples", kind: ruleConsume},
		{keyword: "deprecated", kind: ruleConsume},
		{keyword: "readOnly", kind: ruleConsume},
		{keyword: "writeOnly", kind: ruleConsume},
		{kind: ruleIgnoreRest},
	}
}

func (metadataVocab) init(ns *nodeState) any { return nil }

func (metadataVocab) finalize(b *builder, ns *nodeState, acc any) ([]record, error) {
	return nil, nil
}

func (metadataVocab) execute(e *evalCtx, rec record, v any) (any, Issues) {
	return v, nil
}

func (metadataVocab) formatError(it Issue) string {
	return it.Path + ": " + it.Message
}
