package triage

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/Skufu/kanpo-triage/internal/catalog"
)

// CategoryScores maps a category label to its evidence score. Keys exist only
// for scores above zero.
type CategoryScores map[string]int

// Total is the sum of all category scores.
func (s CategoryScores) Total() int {
	total := 0
	for _, v := range s {
		total += v
	}
	return total
}

// Categories returns the keys in a stable order for rendering.
func (s CategoryScores) Categories() []string {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type Match struct {
	Descriptor catalog.Descriptor
	Score      int
}

// Fragments splits a descriptor title once per delimiter and concatenates
// the resulting lists. A title without a given delimiter contributes itself
// whole for that pass, so an utterance quoting a descriptor verbatim earns
// one hit per delimiter it lacks.
func Fragments(title string, delimiters []string) []string {
	var out []string
	for _, d := range delimiters {
		for _, p := range strings.Split(title, d) {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// ScoreDescriptor counts keyword hits of one descriptor in the utterance.
func ScoreDescriptor(d catalog.Descriptor, utterance string, rules *Rules) int {
	score := 0
	for _, frag := range Fragments(d.Title, rules.Delimiters) {
		if utf8.RuneCountInString(frag) >= rules.MinFragmentRunes && strings.Contains(utterance, frag) {
			score++
		}
	}
	for _, syn := range rules.Synonyms {
		if !strings.Contains(d.Title, syn.Keyword) {
			continue
		}
		for _, related := range syn.Related {
			if related != "" && strings.Contains(utterance, related) {
				score++
			}
		}
	}
	return score
}

// Score builds the category map for a single utterance and lists the
// descriptors that fired, in catalog order.
func Score(descriptors []catalog.Descriptor, utterance string, rules *Rules) (CategoryScores, []Match) {
	scores := CategoryScores{}
	var matched []Match
	for _, d := range descriptors {
		s := ScoreDescriptor(d, utterance, rules)
		if s <= 0 {
			continue
		}
		scores[d.Category()] += s
		matched = append(matched, Match{Descriptor: d, Score: s})
	}
	return scores, matched
}
