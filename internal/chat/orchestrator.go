package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spielleiter/grimoire/internal/campaign"
	"github.com/spielleiter/grimoire/internal/observe"
	"github.com/spielleiter/grimoire/pkg/provider/llm"
)

// Config holds all dependencies needed to create an [Orchestrator].
//
// Store and Provider are required. The bounds default to
// [DefaultMaxRecentMessages] and [DefaultSummarizeThreshold] when zero; when
// set, SummarizeThreshold must be greater than MaxRecentMessages.
type Config struct {
	// Store is the campaign document store holding the NPC records.
	Store campaign.Store

	// Provider is the LLM backend used for replies and summaries.
	Provider llm.Provider

	// MaxRecentMessages is the number of messages retained verbatim after a
	// compaction.
	MaxRecentMessages int

	// SummarizeThreshold is the buffer length that triggers compaction.
	SummarizeThreshold int

	// GenerationTimeout bounds each LLM call. Zero means no timeout beyond
	// the caller's context.
	GenerationTimeout time.Duration

	// Metrics receives turn and compaction telemetry. When nil, the
	// package-level default instruments are used.
	Metrics *observe.Metrics
}

// TurnResult is the outcome of one successfully processed chat turn.
type TurnResult struct {
	// Reply is the cleaned NPC reply text.
	Reply string

	// NPCName is the NPC's display name, for labelling the reply.
	NPCName string
}

// Orchestrator processes chat turns: it sequences persona-prompt building,
// generation, response cleanup, memory update, compaction, and persistence
// for one turn at a time.
//
// Concurrent turns for the same NPC are serialised via a per-NPC mutex so a
// slow turn can never silently discard another turn's memory update;
// turns for different NPCs proceed in parallel.
type Orchestrator struct {
	store      campaign.Store
	provider   llm.Provider
	compactor  *Compactor
	threshold  int
	maxRecent  int
	genTimeout time.Duration
	metrics    *observe.Metrics

	mu       sync.Mutex
	npcLocks map[string]*sync.Mutex
}

// NewOrchestrator creates an [Orchestrator] from the given configuration.
// Errors are prefixed with "chat: ".
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, errors.New("chat: Store must not be nil")
	}
	if cfg.Provider == nil {
		return nil, errors.New("chat: Provider must not be nil")
	}

	maxRecent := cfg.MaxRecentMessages
	if maxRecent == 0 {
		maxRecent = DefaultMaxRecentMessages
	}
	threshold := cfg.SummarizeThreshold
	if threshold == 0 {
		threshold = DefaultSummarizeThreshold
	}
	if threshold <= maxRecent {
		return nil, fmt.Errorf("chat: SummarizeThreshold (%d) must be greater than MaxRecentMessages (%d)", threshold, maxRecent)
	}

	compactor, err := NewCompactor(cfg.Provider, maxRecent)
	if err != nil {
		return nil, err
	}

	metrics := cfg.Metrics
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}

	return &Orchestrator{
		store:      cfg.Store,
		provider:   cfg.Provider,
		compactor:  compactor,
		threshold:  threshold,
		maxRecent:  maxRecent,
		genTimeout: cfg.GenerationTimeout,
		metrics:    metrics,
	}, nil
}

// HandleTurn processes one chat turn for the given NPC.
//
// The implementation:
//  1. Validates inputs and resolves the NPC ([ValidationError],
//     [ErrNPCNotFound]) before any generation call.
//  2. Builds the persona prompt and concatenates the memory summary block,
//     the recent transcript, the player's new message, and the NPC name cue.
//  3. Calls the LLM once. Failures classify as [GenerationError] and abort
//     the turn before any memory mutation.
//  4. Cleans the reply, appends the turn to memory, and compacts when the
//     buffer exceeds the threshold — falling back to a lossy trim when
//     summarization fails, so the buffer stays bounded either way.
//  5. Persists the memory as part of the NPC record. A save failure is a
//     [PersistenceError]: no reply is returned, because the next turn would
//     contradict what the player saw.
//
// HandleTurn respects context cancellation. Concurrent calls for the same
// NPC are serialised.
func (o *Orchestrator) HandleTurn(ctx context.Context, npcID, message string) (result *TurnResult, err error) {
	message = strings.TrimSpace(message)
	if npcID == "" {
		return nil, &ValidationError{Field: "npcId"}
	}
	if message == "" {
		return nil, &ValidationError{Field: "message"}
	}

	start := time.Now()
	defer func() {
		o.metrics.RecordTurn(ctx, npcID, turnStatus(err), time.Since(start).Seconds())
	}()

	lock := o.lockFor(npcID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("chat: %w", err)
	}

	// 1. Resolve the NPC and its memory.
	doc, err := o.store.Load(ctx)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	npc := doc.FindNPC(npcID)
	if npc == nil {
		return nil, ErrNPCNotFound
	}
	state := cloneMemory(npc)

	// 2. Assemble the full prompt.
	prompt := o.buildTurnPrompt(npc, doc, state, message)

	// 3. Generate the reply.
	reply, err := o.generateReply(ctx, npc.Name, prompt)
	if err != nil {
		return nil, err
	}

	// 4. Append the turn and compact when the buffer has outgrown the
	// threshold.
	state = AppendTurn(state, message, reply, time.Now().UnixMilli())
	if len(state.RecentMessages) > o.threshold {
		state = o.compact(ctx, npc.Name, npcID, state)
	}

	// 5. Persist the new memory as part of the NPC record.
	saveErr := o.store.UpdateNPC(ctx, npcID, func(n *campaign.NPC) error {
		n.ChatState = &state
		return nil
	})
	if saveErr != nil {
		if errors.Is(saveErr, campaign.ErrNPCNotFound) {
			// The NPC was deleted while the turn was in flight.
			return nil, ErrNPCNotFound
		}
		return nil, &PersistenceError{Err: saveErr}
	}

	return &TurnResult{Reply: reply, NPCName: npc.Name}, nil
}

// buildTurnPrompt concatenates the persona block, the memory summary block
// (if any), the recent transcript (if any), the new player message, and the
// trailing NPC name cue that makes the generator continue as that NPC.
func (o *Orchestrator) buildTurnPrompt(npc *campaign.NPC, doc *campaign.Document, state campaign.ChatState, message string) string {
	var sb strings.Builder

	sb.WriteString(BuildPersonaPrompt(npc, doc.AreaName(npc.Area), doc.WorldDescription, state.MemorySummary))
	sb.WriteString("\n\n")

	if state.MemorySummary != "" {
		fmt.Fprintf(&sb, "ERINNERUNGSZUSAMMENFASSUNG (was bisher geschah):\n%s\n\n", state.MemorySummary)
	}
	if len(state.RecentMessages) > 0 {
		fmt.Fprintf(&sb, "LETZTE NACHRICHTEN:\n%s\n\n", renderTranscript(state.RecentMessages, npc.Name))
	}

	fmt.Fprintf(&sb, "Spieler: %s\n\n%s:", message, npc.Name)

	return sb.String()
}

// generateReply performs the primary generation call and post-processes the
// response. All failure modes — provider errors, timeouts, and empty
// completions — surface as a [GenerationError] before any memory mutation.
func (o *Orchestrator) generateReply(ctx context.Context, npcName, prompt string) (string, error) {
	genCtx := ctx
	if o.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.genTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := o.provider.Complete(genCtx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: prompt}},
	})
	o.metrics.RecordGeneration(ctx, "reply", time.Since(start).Seconds())

	if err != nil {
		genErr := ClassifyGenerationError(err)
		o.metrics.RecordProviderError(ctx, string(genErr.Kind))
		return "", genErr
	}

	var reply string
	if resp != nil {
		reply = CleanReply(resp.Content, npcName)
	}
	if reply == "" {
		o.metrics.RecordProviderError(ctx, string(GenerationEmptyResponse))
		return "", &GenerationError{Kind: GenerationEmptyResponse}
	}
	return reply, nil
}

// compact attempts to fold old messages into the summary. When the
// summarization call fails, it degrades to a lossy trim: the last maxRecent
// messages survive, the summary stays unchanged, and the discarded turns are
// gone. Losing old conversational context is preferable to losing the
// current turn, so the failure never propagates.
func (o *Orchestrator) compact(ctx context.Context, npcName, npcID string, state campaign.ChatState) campaign.ChatState {
	genCtx := ctx
	if o.genTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.genTimeout)
		defer cancel()
	}

	start := time.Now()
	compacted, err := o.compactor.Compact(genCtx, npcName, state)
	o.metrics.RecordGeneration(ctx, "summary", time.Since(start).Seconds())

	if err != nil {
		slog.Warn("memory compaction failed; trimming buffer without summary",
			"npc_id", npcID,
			"err", err,
		)
		o.metrics.RecordCompaction(ctx, "fallback")
		return trimMemory(state, o.maxRecent)
	}

	o.metrics.RecordCompaction(ctx, "success")
	return compacted
}

// trimMemory keeps only the newest maxRecent messages and leaves the summary
// untouched.
func trimMemory(state campaign.ChatState, maxRecent int) campaign.ChatState {
	if len(state.RecentMessages) <= maxRecent {
		return state
	}
	kept := make([]campaign.ChatMessage, maxRecent)
	copy(kept, state.RecentMessages[len(state.RecentMessages)-maxRecent:])
	return campaign.ChatState{
		MemorySummary:  state.MemorySummary,
		RecentMessages: kept,
	}
}

// lockFor returns the mutex guarding the given NPC's turns, creating it on
// first use. The lock map grows with the number of distinct NPCs chatted
// with, which is bounded by the campaign roster.
func (o *Orchestrator) lockFor(npcID string) *sync.Mutex {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.npcLocks == nil {
		o.npcLocks = make(map[string]*sync.Mutex)
	}
	lock, ok := o.npcLocks[npcID]
	if !ok {
		lock = &sync.Mutex{}
		o.npcLocks[npcID] = lock
	}
	return lock
}

// turnStatus maps a HandleTurn error onto the metric status label.
func turnStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrNPCNotFound):
		return "not_found"
	default:
		var vErr *ValidationError
		var gErr *GenerationError
		var pErr *PersistenceError
		switch {
		case errors.As(err, &vErr):
			return "validation_error"
		case errors.As(err, &gErr):
			return "generation_error"
		case errors.As(err, &pErr):
			return "persistence_error"
		}
		return "error"
	}
}
