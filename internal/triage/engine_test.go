package triage

import (
	"reflect"
	"testing"

	"github.com/Skufu/kanpo-triage/internal/catalog"
)

func newTestEngine(t *testing.T, remedies catalog.Remedies) *Engine {
	t.Helper()
	rules, err := DefaultRules()
	if err != nil {
		t.Fatalf("default rules: %v", err)
	}
	cat := &catalog.Catalog{Descriptors: catalog.BuiltinDescriptors(), Remedies: remedies, Builtin: true}
	engine, err := NewEngine(cat, rules)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	return engine
}

func sampleRemedies() catalog.Remedies {
	return catalog.Remedies{
		Recipes: []catalog.Remedy{
			{Title: catalog.RecipeRhythm, Fields: map[string]any{"composition": "当帰、紅花", "usage": "週2回"}},
			{Title: catalog.RecipeDetox, Fields: map[string]any{"composition": "ハトムギ", "usage": "週3回"}},
		},
	}
}

func TestAnalyzeSleepUtterance(t *testing.T) {
	engine := newTestEngine(t, catalog.Remedies{})
	a := engine.Analyze("眠りが浅く、夜中に目が覚める")

	if a.Scores["自律神経"] < 1 || a.Scores["精"] < 1 {
		t.Fatalf("expected autonomic and essence scores, got %v", a.Scores)
	}
	if a.Remedy != catalog.RecipeSleep || a.Confidence != ConfidenceHigh {
		t.Fatalf("expected high confidence sleep recipe, got %q %s", a.Remedy, a.Confidence)
	}
	if a.Record != nil {
		t.Fatalf("empty remedy catalog must not resolve a record, got %+v", a.Record)
	}
	if len(a.FollowUps) != 0 {
		t.Fatalf("high confidence needs no follow-ups, got %v", a.FollowUps)
	}
	ids := []string{}
	for _, m := range a.Matched {
		ids = append(ids, m.Descriptor.ID)
	}
	if !reflect.DeepEqual(ids, []string{"M1", "F13"}) {
		t.Fatalf("unexpected matched descriptors: %v", ids)
	}
}

func TestAnalyzeNoKeywords(t *testing.T) {
	engine := newTestEngine(t, sampleRemedies())
	a := engine.Analyze("こんにちは")

	if len(a.Scores) != 0 {
		t.Fatalf("expected empty scores, got %v", a.Scores)
	}
	if a.Confidence != ConfidenceLow || a.Remedy != "" || a.Record != nil {
		t.Fatalf("expected low confidence without remedy, got %+v", a)
	}
	want := engine.Rules().LowConfidenceQuestions[:2]
	if !reflect.DeepEqual(a.FollowUps, want) {
		t.Fatalf("expected first two low-confidence questions, got %v", a.FollowUps)
	}
}

func TestAnalyzeSingleGroupHighConfidence(t *testing.T) {
	engine := newTestEngine(t, sampleRemedies())
	a := engine.Analyze("花粉症と鼻炎があり、浮腫もある")

	if a.Totals[0].Total != 0 || a.Totals[1].Total != 3 || a.Totals[2].Total != 0 {
		t.Fatalf("expected totals 0/3/0, got %+v", a.Totals)
	}
	if a.Confidence != ConfidenceHigh || a.Remedy != catalog.RecipeDetox {
		t.Fatalf("expected high detox, got %q %s", a.Remedy, a.Confidence)
	}
	if a.Record == nil || a.Record.Field("usage") != "週3回" {
		t.Fatalf("expected resolved detox record, got %+v", a.Record)
	}
}

func TestAnalyzeVerbatimDescriptorIsHighConfidence(t *testing.T) {
	engine := newTestEngine(t, sampleRemedies())
	a := engine.Analyze("月経のリズムが安定しない")

	if !reflect.DeepEqual(a.Scores, CategoryScores{"ホルモン": 3}) {
		t.Fatalf("expected hormonal score 3, got %v", a.Scores)
	}
	if a.Confidence != ConfidenceHigh || a.Remedy != catalog.RecipeRhythm {
		t.Fatalf("expected high rhythm, got %q %s", a.Remedy, a.Confidence)
	}
	if a.Record == nil || a.Record.Field("usage") != "週2回" {
		t.Fatalf("expected resolved rhythm record, got %+v", a.Record)
	}
}

func TestAnalyzeTieIsPositional(t *testing.T) {
	engine := newTestEngine(t, sampleRemedies())
	utterances := []string{
		"顔色が悪く、経血の色が薄い。花粉症と鼻炎もある",
		"花粉症と鼻炎もある。顔色が悪く、経血の色が薄い",
	}
	for _, u := range utterances {
		a := engine.Analyze(u)
		if a.Totals[0].Total != 2 || a.Totals[1].Total != 2 || a.Totals[2].Total != 0 {
			t.Fatalf("%s: expected totals 2/2/0, got %+v", u, a.Totals)
		}
		if a.Confidence != ConfidenceMedium || a.Remedy != catalog.RecipeRhythm {
			t.Fatalf("%s: expected medium rhythm, got %q %s", u, a.Remedy, a.Confidence)
		}
		want := []string{
			engine.Rules().WeakCategoryQuestions[0].Question,
			engine.Rules().WeakCategoryQuestions[1].Question,
		}
		if !reflect.DeepEqual(a.FollowUps, want) {
			t.Fatalf("%s: unexpected follow-ups %v", u, a.FollowUps)
		}
	}
}

func TestAnalyzeIsIdempotent(t *testing.T) {
	engine := newTestEngine(t, sampleRemedies())
	u := "疲れやすくて生理痛もひどい、肩こりもある"
	first := engine.Analyze(u)
	second := engine.Analyze(u)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("analysis changed between calls:\n%+v\n%+v", first, second)
	}
}

func TestGroupTotalsCoverAllScores(t *testing.T) {
	engine := newTestEngine(t, catalog.Remedies{})
	utterances := []string{
		"",
		"こんにちは",
		"眠りが浅く、夜中に目が覚める",
		"舌の周りに歯の痕がつきやすい、のどが渇くのに水を飲みたくない",
		"耳鳴り・難聴・めまいがある。抜け毛や白髪が気になる",
		"肩こり・冷え性・経血に塊がある、生理が重い",
		"疲れやすく、だるさが取れない。ため息が多く、やる気が出ない",
	}
	for _, u := range utterances {
		a := engine.Analyze(u)
		if len(a.Totals) != GroupCount {
			t.Fatalf("expected %d totals, got %d", GroupCount, len(a.Totals))
		}
		for _, tot := range a.Totals {
			if tot.Total < 0 {
				t.Fatalf("%q: negative total %+v", u, tot)
			}
		}
		if a.Totals.Sum() != a.Scores.Total() {
			t.Fatalf("%q: totals sum %d != scores sum %d (%v)", u, a.Totals.Sum(), a.Scores.Total(), a.Scores)
		}
		if len(a.FollowUps) > 2 {
			t.Fatalf("%q: too many follow-ups %v", u, a.FollowUps)
		}
	}
}

func TestNewEngineRejectsNil(t *testing.T) {
	rules, _ := DefaultRules()
	if _, err := NewEngine(nil, rules); err == nil {
		t.Fatal("expected error for nil catalog")
	}
	if _, err := NewEngine(&catalog.Catalog{}, nil); err == nil {
		t.Fatal("expected error for nil rules")
	}
}
