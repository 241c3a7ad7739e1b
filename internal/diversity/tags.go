package diversity

import "strings"

// OperationTag names the dominant operation a problem exercises.
type OperationTag string

const (
	TagIterate   OperationTag = "ITERATE"
	TagCount     OperationTag = "COUNT"
	TagTransform OperationTag = "TRANSFORM"
	TagValidate  OperationTag = "VALIDATE"
	TagSearch    OperationTag = "SEARCH"
	TagSort      OperationTag = "SORT"
	TagPartition OperationTag = "PARTITION"
	TagAggregate OperationTag = "AGGREGATE"
	TagCompare   OperationTag = "COMPARE"
	TagGenerate  OperationTag = "GENERATE"
)

// DefaultTag is assigned when no keyword matches an archetype.
const DefaultTag = TagIterate

// Vocabulary returns every tag in canonical order.
func Vocabulary() []OperationTag {
	return []OperationTag{
		TagIterate, TagCount, TagTransform, TagValidate, TagSearch,
		TagSort, TagPartition, TagAggregate, TagCompare, TagGenerate,
	}
}

// tagKeywords maps each tag to the archetype-ID token prefixes that imply it.
var tagKeywords = map[OperationTag][]string{
	TagIterate:   {"iterate", "each", "loop", "print", "traverse", "walk"},
	TagCount:     {"count", "frequen", "length", "occurrence", "tally"},
	TagTransform: {"reverse", "transform", "convert", "replace", "swap", "double", "case", "trim", "rotate", "encode", "decode", "format", "pad", "flatten", "join"},
	TagValidate:  {"valid", "check", "is", "balanced", "verify"},
	TagSearch:    {"search", "find", "index", "lookup", "contains", "match", "first", "last"},
	TagSort:      {"sort", "order", "rank", "kth", "top"},
	TagPartition: {"partition", "split", "group", "chunk", "bucket"},
	TagAggregate: {"sum", "total", "average", "max", "min", "aggregate", "median"},
	TagCompare:   {"compare", "equal", "anagram", "same", "diff"},
	TagGenerate:  {"generate", "build", "make", "create", "repeat", "range"},
}

// InferTags derives operation tags from an archetype ID by keyword
// matching on its dash/underscore-separated tokens. A keyword matches a
// token it prefixes. The result is in vocabulary order, never empty: an
// archetype matching nothing gets DefaultTag.
func InferTags(archetypeID string) []OperationTag {
	tokens := strings.FieldsFunc(strings.ToLower(archetypeID), func(r rune) bool {
		return r == '-' || r == '_' || r == ' ' || r == '/' || r == '.'
	})

	var tags []OperationTag
	for _, tag := range Vocabulary() {
		if matchesAny(tokens, tagKeywords[tag]) {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		return []OperationTag{DefaultTag}
	}
	return tags
}

func matchesAny(tokens, keywords []string) bool {
	for _, tok := range tokens {
		for _, kw := range keywords {
			if strings.HasPrefix(tok, kw) {
				return true
			}
		}
	}
	return false
}

// tagIndex orders tags by vocabulary position for sorting.
var tagIndex = func() map[OperationTag]int {
	m := make(map[OperationTag]int)
	for i, t := range Vocabulary() {
		m[t] = i
	}
	return m
}()
