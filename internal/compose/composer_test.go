package compose

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Skufu/kanpo-triage/internal/catalog"
	"github.com/Skufu/kanpo-triage/internal/llm"
	"github.com/Skufu/kanpo-triage/internal/triage"
)

type fakeLLM struct {
	reply    string
	err      error
	block    bool
	messages []llm.Message
}

func (f *fakeLLM) Chat(ctx context.Context, messages []llm.Message) (string, error) {
	f.messages = messages
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return f.reply, f.err
}

func sampleAnalysis() triage.Analysis {
	rec := catalog.Remedy{Title: catalog.RecipeSleep, Fields: map[string]any{"composition": "ラベンダー"}}
	return triage.Analysis{
		Scores:     triage.CategoryScores{"自律神経": 1, "精": 1},
		Remedy:     catalog.RecipeSleep,
		Record:     &rec,
		Confidence: triage.ConfidenceHigh,
		FollowUps:  []string{},
	}
}

func TestReplyReturnsModelTextVerbatim(t *testing.T) {
	fake := &fakeLLM{reply: "  安眠ゆるり蒸しがおすすめです。\n"}
	remedies := catalog.Remedies{Recipes: []catalog.Remedy{{Title: catalog.RecipeSleep, Fields: map[string]any{"composition": "ラベンダー"}}}}
	c := NewComposer(fake, remedies, time.Second, nil)

	history := []Turn{{ID: "1", Text: "こんにちは", IsBot: true}, {ID: "2", Text: "眠れません"}}
	got := c.Reply(context.Background(), "眠りが浅く、夜中に目が覚める", history, sampleAnalysis())
	if got != fake.reply {
		t.Fatalf("reply altered: %q", got)
	}
	if len(fake.messages) != 2 || fake.messages[0].Role != llm.RoleSystem || fake.messages[1].Role != llm.RoleUser {
		t.Fatalf("expected system+user exchange, got %+v", fake.messages)
	}
	system := fake.messages[0].Content
	for _, want := range []string{"ラベンダー", "- 診断信頼度: high", "- 推奨レシピ: 安眠ゆるり蒸し", "{精: 1, 自律神経: 1}", "応答ガイドライン"} {
		if !strings.Contains(system, want) {
			t.Fatalf("instruction missing %q:\n%s", want, system)
		}
	}
	user := fake.messages[1].Content
	if !strings.Contains(user, "AI: こんにちは\nユーザー: 眠れません") || !strings.HasSuffix(user, "新しいユーザー入力: 眠りが浅く、夜中に目が覚める") {
		t.Fatalf("unexpected user message:\n%s", user)
	}
}

func TestReplyApologisesOnFailure(t *testing.T) {
	fake := &fakeLLM{err: errors.New("quota exceeded")}
	c := NewComposer(fake, catalog.Remedies{}, time.Second, nil)
	got := c.Reply(context.Background(), "こんにちは", nil, triage.Analysis{Confidence: triage.ConfidenceLow})
	if !strings.HasPrefix(got, "申し訳ございません。システムエラーが発生しました: ") || !strings.Contains(got, "quota exceeded") {
		t.Fatalf("expected apology with detail, got %q", got)
	}
}

func TestReplyTimeoutUsesApology(t *testing.T) {
	fake := &fakeLLM{block: true}
	c := NewComposer(fake, catalog.Remedies{}, 20*time.Millisecond, nil)

	done := make(chan string, 1)
	go func() {
		done <- c.Reply(context.Background(), "こんにちは", nil, triage.Analysis{Confidence: triage.ConfidenceLow})
	}()
	select {
	case got := <-done:
		if !strings.Contains(got, context.DeadlineExceeded.Error()) {
			t.Fatalf("expected deadline apology, got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("reply did not honour the timeout")
	}
}

func TestTranscriptKeepsLastFiveOldestFirst(t *testing.T) {
	var history []Turn
	for i := 1; i <= 7; i++ {
		history = append(history, Turn{Text: string(rune('a' + i - 1)), IsBot: i%2 == 0})
	}
	got := Transcript(history)
	want := "ユーザー: c\nAI: d\nユーザー: e\nAI: f\nユーザー: g"
	if got != want {
		t.Fatalf("transcript = %q, want %q", got, want)
	}
	if Transcript(nil) != "" {
		t.Fatal("empty history should render empty")
	}
}

func TestBuildInstructionWithoutRemedy(t *testing.T) {
	a := triage.Analysis{
		Scores:     triage.CategoryScores{},
		Confidence: triage.ConfidenceLow,
		FollowUps:  []string{"どのような症状が一番お辛いですか？", "症状はいつ頃から始まりましたか？"},
	}
	got := BuildInstruction(catalog.EmptyRemedies(), a)
	for _, want := range []string{
		`"recipes": []`,
		`"logic_rules": []`,
		"- 推奨レシピ: なし",
		"- 症状スコア: {}",
		`- 次の質問候補: ["どのような症状が一番お辛いですか？", "症状はいつ頃から始まりましたか？"]`,
		"参考質問:",
		basicQuestions[0],
	} {
		if !strings.Contains(got, want) {
			t.Fatalf("instruction missing %q:\n%s", want, got)
		}
	}
}

func TestSuggestedQuestionsSkipCoveredCategories(t *testing.T) {
	got := suggestedQuestions(triage.CategoryScores{"水（脾虚）": 1, "精": 2})
	joined := strings.Join(got, "\n")
	if strings.Contains(joined, "むくみやすく") || strings.Contains(joined, "抜け毛") {
		t.Fatalf("covered categories should be skipped: %v", got)
	}
	if !strings.Contains(joined, "月経周期に変化") {
		t.Fatalf("uncovered hormonal question missing: %v", got)
	}
}

func TestBuildInstructionEmbedsWholeDiagnosisFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shindan.json")
	content := `{
  "recipes": [
    {"title": "安眠ゆるり蒸し", "herbs": ["ラベンダー", "カモミール"], "frequency": "週3回"}
  ],
  "logic_rules": [
    {"id": "rule_001", "condition": {"single_winner": true}, "description": "単一レシピ推奨"}
  ]
}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	remedies, _, err := catalog.LoadRemedies(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	got := BuildInstruction(remedies, sampleAnalysis())
	for _, want := range []string{"カモミール", "週3回", "単一レシピ推奨", `"single_winner": true`} {
		if !strings.Contains(got, want) {
			t.Fatalf("instruction missing %q:\n%s", want, got)
		}
	}
}
