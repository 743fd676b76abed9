// Package pipeline runs one anonymization pass over a document: extract,
// classify locally, classify the remainder remotely (or fall back), plan
// rewrites and apply them.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/deck-anonymizer/constants"
	"github.com/joseph-ayodele/deck-anonymizer/internal/classify"
	"github.com/joseph-ayodele/deck-anonymizer/internal/entity"
	"github.com/joseph-ayodele/deck-anonymizer/internal/fragment"
	"github.com/joseph-ayodele/deck-anonymizer/internal/llm"
	"github.com/joseph-ayodele/deck-anonymizer/internal/rewrite"
)

// Config holds timeouts for the suspension points of a run.
type Config struct {
	RemoteTimeout time.Duration // default 60s
}

// Outcome summarizes one run. NO_TEXT and NOTHING_TO_REWRITE are normal
// terminal states, not errors.
type Outcome struct {
	RunID            uuid.UUID
	Status           constants.RunStatus
	Fragments        int
	LocalClassified  int
	RemoteClassified int
	Fallback         bool
	DroppedItems     int
	Classifications  []fragment.Classification
	Planned          []fragment.Rewrite
	Applied          int
}

// Processor coordinates the stages of a run. Remote and Runs are optional.
type Processor struct {
	Logger  *slog.Logger
	Cfg     Config
	Local   *classify.Local
	Remote  llm.Classifier
	Planner *rewrite.Planner
	Runs    RunRecorder
}

func NewProcessor(
	logger *slog.Logger,
	cfg Config,
	local *classify.Local,
	remote llm.Classifier,
	planner *rewrite.Planner,
	runs RunRecorder,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RemoteTimeout <= 0 {
		cfg.RemoteTimeout = 60 * time.Second
	}
	return &Processor{
		Logger:  logger,
		Cfg:     cfg,
		Local:   local,
		Remote:  remote,
		Planner: planner,
		Runs:    runs,
	}
}

// Run processes one document start to finish and applies the rewrites.
// Only systemic failures (extraction, invalid snapshot, apply) return an
// error.
func (p *Processor) Run(ctx context.Context, port DocumentPort) (Outcome, error) {
	return p.run(ctx, port, true)
}

// Plan runs every stage except ApplyRewrites.
func (p *Processor) Plan(ctx context.Context, port DocumentPort) (Outcome, error) {
	return p.run(ctx, port, false)
}

func (p *Processor) run(ctx context.Context, port DocumentPort, apply bool) (out Outcome, err error) {
	out = Outcome{RunID: uuid.New(), Status: constants.RunStatusRunning}
	start := time.Now()
	source := ""
	if n, ok := port.(Named); ok {
		source = n.Name()
	}
	log := p.Logger.With("run_id", out.RunID)
	log.Info("pipeline.run.start", "source", source, "apply", apply)
	if apply {
		p.recordStart(ctx, out.RunID, source, start)
		defer func() { p.recordFinish(ctx, out, source, start, err) }()
	}

	snap, err := port.ListFragments(ctx)
	if err != nil {
		out.Status = constants.RunStatusFailed
		log.Error("pipeline.extract.failed", "error", err)
		return out, fmt.Errorf("list fragments: %w", err)
	}
	if err := snap.Validate(); err != nil {
		out.Status = constants.RunStatusFailed
		log.Error("pipeline.extract.invalid", "error", err)
		return out, fmt.Errorf("invalid snapshot: %w", err)
	}
	frags := snap.Fragments()
	out.Fragments = len(frags)
	if len(frags) == 0 {
		out.Status = constants.RunStatusNoText
		log.Info("pipeline.run.no_text", "elapsed_ms", time.Since(start).Milliseconds())
		return out, nil
	}

	local := p.Local.Classify(frags)
	out.LocalClassified = len(local.Classified)
	log.Info("classify.local.done",
		"fragments", len(frags),
		"classified", len(local.Classified),
		"unclassified", len(local.Unclassified),
	)

	remote := p.classifyRemote(ctx, log, local.Unclassified, &out)

	merged, overlap := classify.Merge(local.Classified, remote)
	out.DroppedItems += overlap
	out.Classifications = merged

	out.Planned = p.Planner.Plan(frags, merged)
	if len(out.Planned) == 0 {
		out.Status = constants.RunStatusNothingToRewrite
		log.Info("pipeline.run.nothing_to_rewrite", "elapsed_ms", time.Since(start).Milliseconds())
		return out, nil
	}
	if !apply {
		log.Info("pipeline.run.planned", "rewrites", len(out.Planned), "elapsed_ms", time.Since(start).Milliseconds())
		return out, nil
	}

	applied, err := port.ApplyRewrites(ctx, out.Planned)
	out.Applied = applied
	if err != nil {
		out.Status = constants.RunStatusFailed
		log.Error("pipeline.apply.failed", "error", err, "applied", applied)
		return out, fmt.Errorf("apply rewrites: %w", err)
	}
	out.Status = constants.RunStatusApplied
	if applied < len(out.Planned) {
		log.Warn("pipeline.apply.partial", "planned", len(out.Planned), "applied", applied)
	}
	log.Info("pipeline.run.ok",
		"fragments", out.Fragments,
		"planned", len(out.Planned),
		"applied", applied,
		"fallback", out.Fallback,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// classifyRemote resolves the unclassified set. Any failure, including a
// panic inside the classifier, degrades to the body fallback.
func (p *Processor) classifyRemote(ctx context.Context, log *slog.Logger, items []fragment.Unclassified, out *Outcome) []fragment.Classification {
	if len(items) == 0 {
		return nil
	}
	if p.Remote == nil {
		out.Fallback = true
		log.Info("classify.remote.disabled", "items", len(items))
		return classify.Fallback(items)
	}

	start := time.Now()
	cls, err := p.callRemote(ctx, items)
	if err != nil {
		out.Fallback = true
		log.Warn("classify.remote.fallback",
			"items", len(items), "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return classify.Fallback(items)
	}
	out.RemoteClassified = len(cls)
	out.DroppedItems += len(items) - len(cls)
	log.Info("classify.remote.done",
		"items", len(items), "classified", len(cls),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cls
}

func (p *Processor) callRemote(ctx context.Context, items []fragment.Unclassified) (cls []fragment.Classification, err error) {
	defer func() {
		if r := recover(); r != nil {
			cls, err = nil, fmt.Errorf("%w: classifier panic: %v", llm.ErrClassificationUnavailable, r)
		}
	}()
	rctx, cancel := context.WithTimeout(ctx, p.Cfg.RemoteTimeout)
	defer cancel()
	return p.Remote.Classify(rctx, items)
}

func (p *Processor) recordStart(ctx context.Context, id uuid.UUID, source string, start time.Time) {
	if p.Runs == nil {
		return
	}
	err := p.Runs.StartRun(ctx, entity.Run{
		ID:        id,
		Source:    source,
		Status:    constants.RunStatusRunning,
		StartedAt: start,
	})
	if err != nil {
		p.Logger.Warn("pipeline.history.start_failed", "run_id", id, "error", err)
	}
}

func (p *Processor) recordFinish(ctx context.Context, out Outcome, source string, start time.Time, runErr error) {
	if p.Runs == nil {
		return
	}
	finished := time.Now()
	run := entity.Run{
		ID:               out.RunID,
		Source:           source,
		Status:           out.Status,
		Fragments:        out.Fragments,
		LocalClassified:  out.LocalClassified,
		RemoteClassified: out.RemoteClassified,
		Fallback:         out.Fallback,
		DroppedItems:     out.DroppedItems,
		Planned:          len(out.Planned),
		Applied:          out.Applied,
		StartedAt:        start,
		FinishedAt:       &finished,
	}
	if runErr != nil {
		msg := runErr.Error()
		run.ErrorMessage = &msg
	}
	// history is written even when the caller's context is already done
	ctx = context.WithoutCancel(ctx)
	if err := p.Runs.FinishRun(ctx, run, out.Planned); err != nil {
		p.Logger.Warn("pipeline.history.finish_failed", "run_id", out.RunID, "error", err)
	}
}
