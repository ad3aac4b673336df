package pipeline

import (
	"strings"

	"github.com/waijian1/resume-parser-project/model"
)

// ExtractText joins the text of every LINE block, in input order, into
// one newline-separated document. Nil or empty input yields the empty
// string. A LINE block without a text value breaks the OCR service
// contract and is reported as a malformed collaborator response.
func ExtractText(blocks []model.Block) (string, error) {
	if len(blocks) == 0 {
		return "", nil
	}

	var lines []string
	for _, b := range blocks {
		if b.BlockType != model.BlockTypeLine {
			continue
		}
		if b.Text == nil {
			return "", model.WrapError(model.ErrMalformedResponse, "extract text", nil)
		}
		lines = append(lines, *b.Text)
	}
	return strings.Join(lines, "\n"), nil
}

// MatchSkills returns the vocabulary terms that occur as
// case-insensitive substrings of text. Matching is deliberately
// substring containment, not word-boundary matching, so "java" also
// matches inside "javascript". Result order is not significant.
func MatchSkills(text string, vocab []string) []string {
	if text == "" {
		return nil
	}

	lowered := strings.ToLower(text)
	seen := make(map[string]struct{}, len(vocab))
	var found []string
	for _, skill := range vocab {
		if _, ok := seen[skill]; ok {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(skill)) {
			seen[skill] = struct{}{}
			found = append(found, skill)
		}
	}
	return found
}

// NormalizeEntities lowercases the text of every entity whose category
// is not excluded. Duplicates pass through; MergeKeywords collapses
// them.
func NormalizeEntities(entities []model.Entity, exclude map[string]struct{}) []string {
	var out []string
	for _, e := range entities {
		if _, excluded := exclude[e.Category]; excluded {
			continue
		}
		out = append(out, strings.ToLower(e.Text))
	}
	return out
}

// MergeKeywords returns the case-folded set union of matched skills
// and normalized entity text, with duplicates removed. Ordering is not
// guaranteed.
func MergeKeywords(skills, entities []string) []string {
	combined := make(map[string]struct{}, len(skills)+len(entities))
	for _, s := range skills {
		combined[strings.ToLower(s)] = struct{}{}
	}
	for _, e := range entities {
		combined[strings.ToLower(e)] = struct{}{}
	}

	out := make([]string, 0, len(combined))
	for k := range combined {
		out = append(out, k)
	}
	return out
}

// ExclusionSet builds the category lookup used by NormalizeEntities.
func ExclusionSet(categories []string) map[string]struct{} {
	set := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}
