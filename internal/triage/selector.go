package triage

import "github.com/Skufu/kanpo-triage/internal/catalog"

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

type GroupTotal struct {
	Remedy string `json:"remedy"`
	Total  int    `json:"total"`
}

// GroupTotals always holds exactly GroupCount entries in rule order.
type GroupTotals [GroupCount]GroupTotal

func (g GroupTotals) Sum() int {
	sum := 0
	for _, t := range g {
		sum += t.Total
	}
	return sum
}

type Selection struct {
	Totals     GroupTotals
	Remedy     string // empty when nothing was selected
	Confidence Confidence
	// Record is nil when the remedy catalog has no entry for Remedy.
	Record *catalog.Remedy
}

// Aggregate rolls category scores up into the three remedy groups.
// Categories outside every group contribute nothing.
func Aggregate(scores CategoryScores, rules *Rules) GroupTotals {
	var totals GroupTotals
	for i, g := range rules.Groups {
		totals[i].Remedy = g.Remedy
	}
	for category, score := range scores {
		if i, ok := rules.GroupOf(category); ok {
			totals[i].Total += score
		}
	}
	return totals
}

// Select applies the decision table:
//
//	no scores                    -> none, low
//	single winner, max >= min    -> winner, high
//	several winners (any max)    -> first winner in group order, medium
//	otherwise                    -> none, low
func Select(scores CategoryScores, rules *Rules, remedies catalog.Remedies) Selection {
	totals := Aggregate(scores, rules)
	sel := Selection{Totals: totals, Confidence: ConfidenceLow}
	if len(scores) == 0 {
		return sel
	}

	top := totals[0].Total
	for _, t := range totals[1:] {
		if t.Total > top {
			top = t.Total
		}
	}
	var winners []int
	for i, t := range totals {
		if t.Total == top {
			winners = append(winners, i)
		}
	}

	switch {
	case len(winners) == 1 && top >= rules.HighConfidenceMin:
		sel.Remedy = totals[winners[0]].Remedy
		sel.Confidence = ConfidenceHigh
	case len(winners) > 1:
		sel.Remedy = totals[winners[0]].Remedy
		sel.Confidence = ConfidenceMedium
	default:
		return sel
	}

	if r, ok := remedies.Find(sel.Remedy); ok {
		sel.Record = &r
	}
	return sel
}
