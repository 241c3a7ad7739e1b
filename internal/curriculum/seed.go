package curriculum

// FocusModuleID is the module the mini-curriculum is drawn from by default.
const FocusModuleID = "string-manipulation"

// defaultCatalog is built once from seedModules at package init.
var defaultCatalog = mustBuild(seedModules)

// Default returns the built-in catalog.
func Default() *Catalog {
	return defaultCatalog
}

func mustBuild(modules []Module) *Catalog {
	c, err := New(modules)
	if err != nil {
		panic(err)
	}
	return c
}

var seedModules = []Module{
	{
		ID:   "arrays-and-slices",
		Name: "Arrays & Slices",
		Subtopics: []Subtopic{
			{ID: "array-iteration", Name: "Iterating Arrays", Archetypes: []string{"sum-elements", "print-each-element", "running-total"}},
			{ID: "array-basics", Name: "Array Basics", Archetypes: []string{"max-element", "count-positives", "average-of-elements"}},
			{ID: "slice-append", Name: "Growing Slices", Archetypes: []string{"append-evens", "build-squares", "generate-range"}},
			{ID: "array-search", Name: "Searching Arrays", Archetypes: []string{"find-target-index", "contains-duplicate", "first-negative-lookup"}},
			{ID: "array-transform", Name: "Transforming Arrays", Archetypes: []string{"double-each-element", "reverse-array", "rotate-left"}},
			{ID: "two-pointers", Name: "Two Pointers", Archetypes: []string{"pair-sum-search", "merge-sorted-arrays", "partition-by-parity"}},
		},
	},
	{
		ID:   "string-manipulation",
		Name: "String Manipulation",
		Subtopics: []Subtopic{
			{ID: "string-concatenation", Name: "Concatenation", Archetypes: []string{"join-with-separator", "build-greeting", "repeat-string"}},
			{ID: "string-basics", Name: "String Basics", Archetypes: []string{"string-length", "first-and-last-char", "is-empty-check"}},
			{ID: "string-case", Name: "Case Conversion", Archetypes: []string{"to-title-case", "swap-case", "count-uppercase"}},
			{ID: "string-operations", Name: "Common String Operations", Archetypes: []string{"trim-whitespace", "replace-substring", "contains-substring"}},
			{ID: "string-search", Name: "Substring Search", Archetypes: []string{"find-substring-index", "count-occurrences", "last-index-lookup"}},
			{ID: "string-indexing", Name: "Character Indexing", Archetypes: []string{"char-at-index", "every-other-char", "index-of-char"}},
			{ID: "string-slicing", Name: "Slicing Substrings", Archetypes: []string{"slice-middle", "take-prefix", "drop-suffix"}},
			{ID: "string-formatting", Name: "Formatting", Archetypes: []string{"format-currency", "pad-left", "generate-table-row"}},
			{ID: "string-palindromes", Name: "Palindromes", Archetypes: []string{"is-palindrome", "longest-palindrome-search", "make-palindrome"}},
			{ID: "string-anagrams", Name: "Anagrams", Archetypes: []string{"are-anagrams", "group-anagrams", "sort-letters"}},
			{ID: "string-splitting", Name: "Splitting & Joining", Archetypes: []string{"split-on-delimiter", "split-words-count", "chunk-string"}},
			{ID: "string-counting", Name: "Character Counting", Archetypes: []string{"count-vowels", "char-frequency", "most-common-char"}},
			{ID: "string-reversal", Name: "Reversal", Archetypes: []string{"reverse-string", "reverse-words", "reverse-each-word"}},
			{ID: "string-compression", Name: "Run-Length Compression", Archetypes: []string{"run-length-encode", "run-length-decode", "compare-compressed-length"}},
			{ID: "string-validation", Name: "Validation Patterns", Archetypes: []string{"validate-email", "is-numeric-string", "check-balanced-brackets"}},
		},
	},
	{
		ID:   "maps-and-sets",
		Name: "Maps & Sets",
		Subtopics: []Subtopic{
			{ID: "map-basics", Name: "Map Basics", Archetypes: []string{"word-count-map", "lookup-default", "invert-map"}},
			{ID: "map-grouping", Name: "Grouping with Maps", Archetypes: []string{"group-by-length", "bucket-by-first-letter", "partition-by-key"}},
			{ID: "set-operations", Name: "Set Operations", Archetypes: []string{"unique-elements", "set-intersection", "compare-sets"}},
			{ID: "map-aggregation", Name: "Aggregating Values", Archetypes: []string{"sum-by-category", "max-per-key", "average-by-group"}},
		},
	},
	{
		ID:   "control-flow",
		Name: "Control Flow",
		Subtopics: []Subtopic{
			{ID: "conditionals", Name: "Conditionals", Archetypes: []string{"classify-number", "validate-age-range", "fizz-buzz"}},
			{ID: "loops", Name: "Loops", Archetypes: []string{"count-down", "sum-to-n", "generate-multiplication-table"}},
			{ID: "nested-loops", Name: "Nested Loops", Archetypes: []string{"print-triangle", "compare-all-pairs", "matrix-sum"}},
			{ID: "early-exit", Name: "Early Exit", Archetypes: []string{"first-match-search", "break-on-sentinel", "validate-until-error"}},
		},
	},
	{
		ID:   "sorting-and-searching",
		Name: "Sorting & Searching",
		Subtopics: []Subtopic{
			{ID: "basic-sorting", Name: "Basic Sorting", Archetypes: []string{"bubble-sort", "sort-descending", "sort-by-length"}},
			{ID: "custom-ordering", Name: "Custom Ordering", Archetypes: []string{"sort-by-key", "stable-sort-records", "compare-versions"}},
			{ID: "binary-search", Name: "Binary Search", Archetypes: []string{"binary-search-target", "find-insert-position", "search-rotated-array"}},
			{ID: "selection", Name: "Selection", Archetypes: []string{"kth-smallest", "top-n-elements", "median-of-list"}},
		},
	},
	{
		ID:   "recursion",
		Name: "Recursion",
		Subtopics: []Subtopic{
			{ID: "recursion-basics", Name: "Recursion Basics", Archetypes: []string{"factorial", "sum-digits", "count-down-recursive"}},
			{ID: "recursive-structures", Name: "Recursive Structures", Archetypes: []string{"flatten-nested-list", "tree-depth", "generate-subsets"}},
			{ID: "divide-and-conquer", Name: "Divide & Conquer", Archetypes: []string{"merge-sort", "max-subarray-split", "power-by-squaring"}},
		},
	},
}
