package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/memoraio/memora/internal/metrics"
	"github.com/memoraio/memora/internal/models"
)

const insightSystemPrompt = `You are a memory consolidation assistant. Extract durable insights about the user from the conversation transcript.

Focus on:
- preferences (likes, dislikes, habits)
- facts (stable personal details)
- goals (what the user is working toward)
- triggers (topics that provoke strong reactions)
- coping (strategies that help the user)
- context (situational details worth remembering)

Respond with a JSON array only, no prose. Each element:
{"content": "...", "type": "preference|fact|context|goal|trigger|coping|general", "summary": "...", "importance": 0.0-1.0}

Return [] if the transcript contains nothing worth keeping.`

// insight is one extracted long-term memory candidate.
type insight struct {
	Content    string  `json:"content"`
	Type       string  `json:"type"`
	Summary    string  `json:"summary"`
	Importance float64 `json:"importance"`
}

// ConsolidationResult reports what a consolidation pass did.
type ConsolidationResult struct {
	TurnsExamined int
	InsightsKept  int
	TurnsRemoved  int
	Skipped       bool
}

// Consolidator promotes short-term conversation into long-term
// memories by extracting insights with an LLM.
type Consolidator struct {
	turns     TurnStore
	ltm       *LTMManager
	model     InsightModel
	threshold int
	force     int
	logger    *slog.Logger
	collector *metrics.Collector
}

// NewConsolidator creates a consolidator. threshold is the session
// turn count at which consolidation runs; force is the count at which
// it runs even when the model is degraded elsewhere.
func NewConsolidator(turns TurnStore, ltm *LTMManager, model InsightModel, threshold, force int, logger *slog.Logger, collector *metrics.Collector) *Consolidator {
	if threshold <= 0 {
		threshold = 10
	}
	if force < threshold {
		force = threshold * 2
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{
		turns:     turns,
		ltm:       ltm,
		model:     model,
		threshold: threshold,
		force:     force,
		logger:    logger,
		collector: collector,
	}
}

// MaybeConsolidate consolidates the session if it has accumulated
// enough turns. Below the threshold it is a no-op with Skipped set.
func (c *Consolidator) MaybeConsolidate(ctx context.Context, userID, session string) (*ConsolidationResult, error) {
	count, err := c.turns.CountActiveTurns(ctx, userID, session)
	if err != nil {
		return nil, fmt.Errorf("count turns: %w", err)
	}
	if count < c.threshold {
		return &ConsolidationResult{Skipped: true}, nil
	}
	return c.Consolidate(ctx, userID, session)
}

// Consolidate extracts insights from the session's turns, stores them
// as long-term memories, and removes the consolidated turns. Turns are
// only removed after every insight has been persisted, so a failed
// pass loses nothing.
func (c *Consolidator) Consolidate(ctx context.Context, userID, session string) (*ConsolidationResult, error) {
	start := time.Now()
	defer func() {
		if c.collector != nil {
			c.collector.RecordTiming(metrics.OpConsolidate, time.Since(start))
		}
	}()

	turns, err := c.turns.SessionTurns(ctx, userID, &session)
	if err != nil {
		return nil, fmt.Errorf("load session turns: %w", err)
	}
	if len(turns) == 0 {
		return &ConsolidationResult{Skipped: true}, nil
	}

	transcript := buildTranscript(turns)
	raw, err := c.model.GenerateWithSystem(ctx, insightSystemPrompt, transcript)
	if err != nil {
		return nil, fmt.Errorf("extract insights: %w", err)
	}

	insights := parseInsights(raw)
	kept := 0
	for _, ins := range insights {
		if strings.TrimSpace(ins.Content) == "" {
			continue
		}
		_, err := c.ltm.rememberClamped(ctx, userID, ins.Content, models.MemoryType(ins.Type), ins.Summary, ins.Importance)
		if err != nil {
			return nil, fmt.Errorf("store insight: %w", err)
		}
		kept++
	}

	ids := make([]string, 0, len(turns))
	for _, turn := range turns {
		id, err := models.RecordIDString(turn.ID)
		if err != nil {
			return nil, fmt.Errorf("consolidate: %w", err)
		}
		ids = append(ids, id)
	}
	removed, err := c.turns.DeleteTurns(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("remove consolidated turns: %w", err)
	}

	c.logger.Info("session consolidated",
		"user", userID, "session", session,
		"turns", len(turns), "insights", kept, "removed", removed)
	return &ConsolidationResult{
		TurnsExamined: len(turns),
		InsightsKept:  kept,
		TurnsRemoved:  removed,
	}, nil
}

// ForceThreshold returns the turn count at which consolidation should
// run regardless of other pressure.
func (c *Consolidator) ForceThreshold() int {
	return c.force
}

func buildTranscript(turns []models.ShortTermMemory) string {
	var b strings.Builder
	for _, turn := range turns {
		b.WriteString(string(turn.Role))
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// parseInsights decodes the model's JSON response. Models often wrap
// JSON in markdown fences; those are stripped first. Unparseable
// output yields zero insights rather than an error.
func parseInsights(raw string) []insight {
	s := strings.TrimSpace(raw)
	if after, ok := strings.CutPrefix(s, "```json"); ok {
		s = after
	} else if after, ok := strings.CutPrefix(s, "```"); ok {
		s = after
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	s = strings.TrimSpace(s)

	var insights []insight
	if err := json.Unmarshal([]byte(s), &insights); err != nil {
		return nil
	}
	return insights
}
