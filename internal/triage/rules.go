package triage

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// GroupCount is fixed: every recommendation resolves to one of three remedies.
const GroupCount = 3

var ErrInvalidRules = errors.New("invalid triage rules")

//go:embed rules.yaml
var defaultRulesYAML []byte

type Synonym struct {
	Keyword string   `yaml:"keyword"`
	Related []string `yaml:"related"`
}

type Group struct {
	Remedy     string   `yaml:"remedy"`
	Categories []string `yaml:"categories"`
}

type WeakCategory struct {
	Category string `yaml:"category"`
	Question string `yaml:"question"`
}

// Rules is the configuration data behind scoring and selection. It is
// script specific (delimiters, synonyms) so it lives outside the code.
type Rules struct {
	Delimiters             []string       `yaml:"delimiters"`
	MinFragmentRunes       int            `yaml:"min_fragment_runes"`
	Synonyms               []Synonym      `yaml:"synonyms"`
	Groups                 []Group        `yaml:"groups"`
	HighConfidenceMin      int            `yaml:"high_confidence_min"`
	MaxFollowUps           int            `yaml:"max_follow_ups"`
	LowConfidenceQuestions []string       `yaml:"low_confidence_questions"`
	WeakCategoryQuestions  []WeakCategory `yaml:"weak_category_questions"`

	groupIndex map[string]int
}

// DefaultRules parses the embedded rules.yaml.
func DefaultRules() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
}

// LoadRules reads an override file; an empty path means the embedded default.
func LoadRules(path string) (*Rules, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultRules()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules %s: %w", path, err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRules, err)
	}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *Rules) validate() error {
	if len(r.Delimiters) == 0 {
		return fmt.Errorf("%w: no delimiters", ErrInvalidRules)
	}
	for _, d := range r.Delimiters {
		if d == "" {
			return fmt.Errorf("%w: empty delimiter", ErrInvalidRules)
		}
	}
	if r.MinFragmentRunes < 1 {
		return fmt.Errorf("%w: min_fragment_runes must be at least 1", ErrInvalidRules)
	}
	if len(r.Groups) != GroupCount {
		return fmt.Errorf("%w: expected %d remedy groups, got %d", ErrInvalidRules, GroupCount, len(r.Groups))
	}
	if r.HighConfidenceMin < 1 {
		return fmt.Errorf("%w: high_confidence_min must be at least 1", ErrInvalidRules)
	}
	if r.MaxFollowUps < 1 {
		return fmt.Errorf("%w: max_follow_ups must be at least 1", ErrInvalidRules)
	}
	if len(r.LowConfidenceQuestions) == 0 {
		return fmt.Errorf("%w: no low_confidence_questions", ErrInvalidRules)
	}
	for i, q := range r.LowConfidenceQuestions {
		if strings.TrimSpace(q) == "" {
			return fmt.Errorf("%w: low confidence question %d is empty", ErrInvalidRules, i)
		}
	}
	for i, w := range r.WeakCategoryQuestions {
		if strings.TrimSpace(w.Category) == "" || strings.TrimSpace(w.Question) == "" {
			return fmt.Errorf("%w: weak category question %d needs category and question", ErrInvalidRules, i)
		}
	}

	r.groupIndex = make(map[string]int)
	for i, g := range r.Groups {
		if strings.TrimSpace(g.Remedy) == "" {
			return fmt.Errorf("%w: group %d has no remedy", ErrInvalidRules, i)
		}
		for _, c := range g.Categories {
			if prev, dup := r.groupIndex[c]; dup {
				return fmt.Errorf("%w: category %q in groups %d and %d", ErrInvalidRules, c, prev, i)
			}
			r.groupIndex[c] = i
		}
	}
	return nil
}

// GroupOf maps a category to its remedy group. Stacked sub-labels such as
// "水（脾虚）" roll up to their parent "水".
func (r *Rules) GroupOf(category string) (int, bool) {
	if i, ok := r.groupIndex[category]; ok {
		return i, true
	}
	i, ok := r.groupIndex[ParentCategory(category)]
	return i, ok
}

// ParentCategory strips a parenthesised sub-label, full-width or ASCII.
func ParentCategory(category string) string {
	if i := strings.IndexAny(category, "（("); i > 0 {
		return strings.TrimSpace(category[:i])
	}
	return category
}
