package chunker

import "github.com/pkoukk/tiktoken-go"

// tokenCounter wraps a cl100k_base encoding, grounded on archguard's
// internal/analysis engine use of pkoukk/tiktoken-go for budget
// estimation ahead of an LLM call. Embedding models here are not
// tokenized with a GPT encoding, but cl100k_base gives a stable,
// dependency-free estimate of "how many pieces will this become" that
// is close enough to drive striding decisions.
type tokenCounter struct {
	enc *tiktoken.Tiktoken
}

func newTokenCounter() (*tokenCounter, error) {
	enc, err := tiktoken.GetEncoding("cl100k_base")
	if err != nil {
		return nil, err
	}
	return &tokenCounter{enc: enc}, nil
}

func (t *tokenCounter) count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}
