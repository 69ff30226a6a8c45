package triage

import (
	"errors"

	"github.com/Skufu/kanpo-triage/internal/catalog"
)

// Engine holds the read-only catalog and rules shared by every request.
// It has no mutable state, so concurrent Analyze calls need no locking.
type Engine struct {
	catalog *catalog.Catalog
	rules   *Rules
}

func NewEngine(cat *catalog.Catalog, rules *Rules) (*Engine, error) {
	if cat == nil {
		return nil, errors.New("triage: nil catalog")
	}
	if rules == nil {
		return nil, errors.New("triage: nil rules")
	}
	return &Engine{catalog: cat, rules: rules}, nil
}

func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }
func (e *Engine) Rules() *Rules             { return e.rules }

// Analysis is the per-request result; owned by the caller.
type Analysis struct {
	Scores     CategoryScores
	Totals     GroupTotals
	Remedy     string
	Record     *catalog.Remedy
	Confidence Confidence
	FollowUps  []string
	Matched    []Match
}

// RecordTitle is the resolved remedy title, or "" when nothing resolved.
func (a Analysis) RecordTitle() string {
	if a.Record == nil {
		return ""
	}
	return a.Record.Title
}

// Analyze runs scoring, selection and follow-up generation for one utterance.
// Conversation history does not influence scoring.
func (e *Engine) Analyze(utterance string) Analysis {
	scores, matched := Score(e.catalog.Descriptors, utterance, e.rules)
	sel := Select(scores, e.rules, e.catalog.Remedies)
	return Analysis{
		Scores:     scores,
		Totals:     sel.Totals,
		Remedy:     sel.Remedy,
		Record:     sel.Record,
		Confidence: sel.Confidence,
		FollowUps:  FollowUps(scores, sel.Confidence, e.rules),
		Matched:    matched,
	}
}
