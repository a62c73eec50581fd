package embed

import "strings"

// tokenize lowercases and splits on non-alphanumeric runs. Only used by
// mockReranker's deterministic scoring; real providers tokenize with
// their own model's vocabulary.
func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
}

func tokenizeSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, t := range tokenize(s) {
		set[t] = true
	}
	return set
}
