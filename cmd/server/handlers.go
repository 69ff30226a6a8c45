package main

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/kanpo-triage/internal/catalog"
	"github.com/Skufu/kanpo-triage/internal/compose"
	"github.com/Skufu/kanpo-triage/internal/logger"
	"github.com/Skufu/kanpo-triage/internal/store"
	"github.com/Skufu/kanpo-triage/internal/triage"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	welcomeMessage  = "漢方AI診断APIへようこそ"
	auditTimeout    = 2 * time.Second
)

// ChatRequest requires the message key; an empty string is a valid message
// and lands on the low-confidence path.
type ChatRequest struct {
	Message  *string        `json:"message"`
	Messages []compose.Turn `json:"messages"`
}

func (r ChatRequest) Text() string {
	if r.Message == nil {
		return ""
	}
	return *r.Message
}

// ChatResponse carries the reply; Diagnosis is reserved and always null.
type ChatResponse struct {
	Message   string         `json:"message"`
	Diagnosis map[string]any `json:"diagnosis"`
}

type AnalyzeResponse struct {
	SymptomScores     triage.CategoryScores `json:"symptom_scores"`
	GroupTotals       triage.GroupTotals    `json:"group_totals"`
	SelectedRemedy    string                `json:"selected_remedy"`
	RecommendedRecipe *catalog.Remedy       `json:"recommended_recipe"`
	Confidence        triage.Confidence     `json:"diagnosis_confidence"`
	NextQuestions     []string              `json:"next_questions"`
	MatchedSymptoms   []catalog.Descriptor  `json:"matched_symptoms"`
}

type handlers struct {
	engine   *triage.Engine
	composer *compose.Composer
	audit    AuditRecorder
	log      *logger.Logger
}

func (h *handlers) root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": welcomeMessage})
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().Format(time.RFC3339)})
}

func (h *handlers) chat(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	analysis := h.engine.Analyze(req.Text())
	h.record(c, analysis)

	reply := h.composer.Reply(c.Request.Context(), req.Text(), req.Messages, analysis)
	c.JSON(http.StatusOK, ChatResponse{Message: reply})
}

func (h *handlers) analyze(c *gin.Context) {
	req, ok := bindChatRequest(c)
	if !ok {
		return
	}

	a := h.engine.Analyze(req.Text())
	matched := make([]catalog.Descriptor, 0, len(a.Matched))
	for _, m := range a.Matched {
		matched = append(matched, m.Descriptor)
	}
	c.JSON(http.StatusOK, AnalyzeResponse{
		SymptomScores:     a.Scores,
		GroupTotals:       a.Totals,
		SelectedRemedy:    a.Remedy,
		RecommendedRecipe: a.Record,
		Confidence:        a.Confidence,
		NextQuestions:     a.FollowUps,
		MatchedSymptoms:   matched,
	})
}

func bindChatRequest(c *gin.Context) (ChatRequest, bool) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return req, false
	}
	if req.Message == nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "validation_failed", "detail": "message is required"})
		return req, false
	}
	return req, true
}

// record writes the outcome to the audit log without holding up the reply.
func (h *handlers) record(c *gin.Context, a triage.Analysis) {
	lg := h.log.With("request_id", c.GetString(requestIDKey))
	lg.Debug("triage analysed",
		"confidence", a.Confidence,
		"remedy", a.Remedy,
		"matched", len(a.Matched),
	)
	if h.audit == nil {
		return
	}
	event := store.NewEvent(c.GetString(requestIDKey), a)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), auditTimeout)
		defer cancel()
		if err := h.audit.RecordTriage(ctx, event); err != nil {
			lg.Warn("audit record failed", "error", err)
		}
	}()
}

func requestLogger(lg *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		reqID := c.GetHeader(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		c.Set(requestIDKey, reqID)
		c.Header(requestIDHeader, reqID)

		c.Next()

		lg.Info("request",
			"request_id", reqID,
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start),
		)
	}
}
