package paddle

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
)

// Dictionary maps CTC class indices to tokens. Index 0 is the blank and
// the last index is the space character.
type Dictionary struct {
	tokens []string
}

// NewDictionary builds a dictionary from the character list of a model.
func NewDictionary(chars []string) *Dictionary {
	tokens := make([]string, 0, len(chars)+2)
	tokens = append(tokens, "")
	tokens = append(tokens, chars...)
	tokens = append(tokens, " ")
	return &Dictionary{tokens: tokens}
}

// LoadDictionary reads one token per line. Lines are trimmed, empty lines
// are skipped and a leading UTF-8 BOM is removed.
func LoadDictionary(path string) (*Dictionary, error) {
	if path == "" {
		return nil, errors.New("dictionary path cannot be empty")
	}
	f, err := os.Open(path) //nolint:gosec // G304: dictionary path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to open dictionary: %w", err)
	}
	defer func() { _ = f.Close() }()

	var chars []string
	sc := bufio.NewScanner(f)
	first := true
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if first {
			line = strings.TrimPrefix(line, "\uFEFF")
			first = false
		}
		if line != "" {
			chars = append(chars, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed reading dictionary: %w", err)
	}
	if len(chars) == 0 {
		return nil, fmt.Errorf("dictionary is empty: %s", path)
	}
	return NewDictionary(chars), nil
}

// Size is the number of CTC classes including blank and space.
func (d *Dictionary) Size() int { return len(d.tokens) }

// Decode concatenates the tokens for indices, ignoring the blank and
// out-of-range indices.
func (d *Dictionary) Decode(indices []int) string {
	var sb strings.Builder
	for _, i := range indices {
		if i <= 0 || i >= len(d.tokens) {
			continue
		}
		sb.WriteString(d.tokens[i])
	}
	return sb.String()
}
