package memory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/memoraio/memora/internal/models"
)

// Default caps and threshold for assembled context.
const (
	DefaultRecentTurns  = 5
	DefaultRelevantMems = 3
	DefaultThreshold    = 0.3
)

// AssembleOptions tune a single context assembly.
type AssembleOptions struct {
	// MaxTurns caps recent short-term turns. Zero takes the default.
	MaxTurns int
	// MaxMemories caps relevant long-term memories. Zero takes
	// the default.
	MaxMemories int
	// Threshold is the minimum similarity for long-term recall.
	// Zero takes the default.
	Threshold float64
}

// ContextBundle is the assembled context for a prompt: recent
// conversation plus relevant long-term knowledge. Partial is set when
// long-term recall failed and only the short-term half is present.
type ContextBundle struct {
	UserID      string
	Session     string
	RecentTurns []models.ShortTermMemory
	Relevant    []models.ScoredMemory
	Partial     bool
}

// Assembler builds prompt context from both memory tiers.
type Assembler struct {
	stm    *STMManager
	ltm    *LTMManager
	logger *slog.Logger
}

// NewAssembler creates a context assembler.
func NewAssembler(stm *STMManager, ltm *LTMManager, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{stm: stm, ltm: ltm, logger: logger}
}

// Assemble fetches recent turns and relevant memories concurrently.
// A short-term failure fails the whole assembly; a long-term failure
// degrades to a partial bundle, since recent conversation alone is
// still usable context.
func (a *Assembler) Assemble(ctx context.Context, userID, session, query string, opts AssembleOptions) (*ContextBundle, error) {
	if userID == "" {
		return nil, validationErr("user_id", "must not be empty")
	}
	if strings.TrimSpace(query) == "" {
		return nil, validationErr("query", "must not be empty")
	}

	maxTurns := opts.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultRecentTurns
	}
	maxMems := opts.MaxMemories
	if maxMems <= 0 {
		maxMems = DefaultRelevantMems
	}
	threshold := opts.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	bundle := &ContextBundle{UserID: userID, Session: session}
	var ltmErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		turns, err := a.stm.Recent(gctx, userID, session, maxTurns)
		if err != nil {
			return fmt.Errorf("recent turns: %w", err)
		}
		bundle.RecentTurns = turns
		return nil
	})
	g.Go(func() error {
		// Captured, not returned: a long-term failure must not
		// cancel the short-term fetch.
		mems, err := a.ltm.Search(gctx, userID, query, threshold, maxMems)
		if err != nil {
			ltmErr = err
			return nil
		}
		bundle.Relevant = mems
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble context: %w", err)
	}

	if ltmErr != nil {
		a.logger.Warn("long-term recall failed, returning partial context",
			"user", userID, "error", ltmErr)
		bundle.Partial = true
		bundle.Relevant = nil
	}

	a.logger.Debug("context assembled",
		"user", userID, "session", session,
		"turns", len(bundle.RecentTurns), "memories", len(bundle.Relevant),
		"partial", bundle.Partial)
	return bundle, nil
}
