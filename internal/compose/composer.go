package compose

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Skufu/kanpo-triage/internal/catalog"
	"github.com/Skufu/kanpo-triage/internal/llm"
	"github.com/Skufu/kanpo-triage/internal/logger"
	"github.com/Skufu/kanpo-triage/internal/triage"
)

// HistoryWindow is how many trailing turns make it into the transcript.
const HistoryWindow = 5

// Turn is one caller-supplied conversation entry. Never persisted here.
type Turn struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	IsBot     bool   `json:"isBot"`
	Timestamp string `json:"timestamp"`
}

// Composer phrases the final reply through an LLM.
type Composer struct {
	llm      llm.Client
	remedies catalog.Remedies
	timeout  time.Duration
	log      *logger.Logger
	tracer   trace.Tracer
}

func NewComposer(client llm.Client, remedies catalog.Remedies, timeout time.Duration, log *logger.Logger) *Composer {
	if log == nil {
		log = logger.Nop()
	}
	return &Composer{
		llm:      client,
		remedies: remedies,
		timeout:  timeout,
		log:      log,
		tracer:   otel.Tracer("github.com/Skufu/kanpo-triage/internal/compose"),
	}
}

// Reply always returns text: the model's answer, or an apology carrying the
// failure detail.
func (c *Composer) Reply(ctx context.Context, utterance string, history []Turn, a triage.Analysis) string {
	ctx, span := c.tracer.Start(ctx, "compose.reply", trace.WithAttributes(
		attribute.String("triage.confidence", string(a.Confidence)),
		attribute.String("triage.remedy", a.Remedy),
		attribute.Int("history.turns", len(history)),
	))
	defer span.End()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: BuildInstruction(c.remedies, a)},
		{Role: llm.RoleUser, Content: BuildUserMessage(utterance, history)},
	}

	start := time.Now()
	reply, err := c.llm.Chat(ctx, messages)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		c.log.Error("llm call failed", "error", err, "elapsed", time.Since(start))
		return fmt.Sprintf(ApologyFormat, err)
	}
	c.log.Debug("llm reply", "elapsed", time.Since(start), "chars", len(reply))
	return reply
}

// BuildInstruction renders the system message for one analysis.
func BuildInstruction(remedies catalog.Remedies, a triage.Analysis) string {
	var b strings.Builder
	b.WriteString(systemPreamble)
	b.WriteString("\n\n診断データ（shindan.json）:\n")
	b.WriteString(remediesJSON(remedies))
	b.WriteString("\n\n現在の症状分析結果:\n")
	b.WriteString("- 症状スコア: " + FormatScores(a.Scores) + "\n")
	b.WriteString("- 診断信頼度: " + string(a.Confidence) + "\n")

	title := a.RecordTitle()
	if title == "" {
		title = NoRemedy
	}
	b.WriteString("- 推奨レシピ: " + title + "\n")
	b.WriteString("- 次の質問候補: " + formatList(a.FollowUps) + "\n")

	if a.Confidence != triage.ConfidenceHigh {
		b.WriteString("\n参考質問:\n")
		for _, q := range suggestedQuestions(a.Scores) {
			b.WriteString("- " + q + "\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(guidelines)
	b.WriteString("\n")
	return b.String()
}

// BuildUserMessage pairs the bounded transcript with the new utterance.
func BuildUserMessage(utterance string, history []Turn) string {
	return "会話履歴:\n" + Transcript(history) + "\n\n新しいユーザー入力: " + utterance
}

// Transcript renders the last HistoryWindow turns, oldest first.
func Transcript(history []Turn) string {
	if len(history) > HistoryWindow {
		history = history[len(history)-HistoryWindow:]
	}
	lines := make([]string, 0, len(history))
	for _, t := range history {
		role := roleUser
		if t.IsBot {
			role = roleBot
		}
		lines = append(lines, role+": "+t.Text)
	}
	return strings.Join(lines, "\n")
}

// FormatScores renders scores in a stable order, e.g. {精: 1, 自律神経: 1}.
func FormatScores(scores triage.CategoryScores) string {
	parts := make([]string, 0, len(scores))
	for _, k := range scores.Categories() {
		parts = append(parts, k+": "+strconv.Itoa(scores[k]))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func formatList(items []string) string {
	quoted := make([]string, 0, len(items))
	for _, it := range items {
		quoted = append(quoted, strconv.Quote(it))
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

// remediesJSON indents the diagnosis document as read, so keys the engine
// never interprets still reach the model.
func remediesJSON(remedies catalog.Remedies) string {
	raw, err := remedies.JSON()
	if err != nil {
		return "{}"
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return "{}"
	}
	return buf.String()
}

// suggestedQuestions picks the opening questions, then the first bank
// question of every category without evidence yet.
func suggestedQuestions(scores triage.CategoryScores) []string {
	out := append([]string{}, basicQuestions...)
	for _, cq := range questionBank {
		if hasCategory(scores, cq.category) {
			continue
		}
		out = append(out, cq.questions[0])
	}
	return out
}

func hasCategory(scores triage.CategoryScores, parent string) bool {
	for k := range scores {
		if triage.ParentCategory(k) == parent {
			return true
		}
	}
	return false
}
