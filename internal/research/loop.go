package research

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Aiden-Hyun/deepanswer/internal/metrics"
)

// LoopState is the loop's state machine phase.
type LoopState string

const (
	StateRunning       LoopState = "RUNNING"
	StateConsolidating LoopState = "CONSOLIDATING"
	StateDone          LoopState = "DONE"
)

// MaxIterations is the hard iteration cap, applied regardless of any other
// termination signal.
const MaxIterations = 10

// Loop drives repeated plan-act-update cycles until a stop condition.
type Loop struct {
	planner  *Planner
	executor *Executor
	logger   *zap.Logger
}

// NewLoop wires the loop to its planner and executor.
func NewLoop(planner *Planner, executor *Executor, logger *zap.Logger) *Loop {
	return &Loop{planner: planner, executor: executor, logger: logger}
}

// Run executes the loop to completion, mutating state in place. The loop is
// strictly sequential: each cycle's plan depends on the previous cycle's
// evidence.
func (l *Loop) Run(ctx context.Context, state *AgentState) {
	tracker := &ProgressTracker{}
	phase := StateRunning
	cleanExit := false
	iterations := 0

	for phase == StateRunning {
		if iterations >= MaxIterations {
			l.logger.Info("Iteration cap reached", zap.Int("iterations", iterations))
			break
		}
		if ctx.Err() != nil {
			break
		}
		if state.Budget.IsDepleted() {
			l.logger.Info("Budget depleted before planning", zap.String("budget", state.Budget.Summary()))
			break
		}
		iterations++

		action := l.planner.DecideAction(ctx, state)
		l.logger.Info("Planned action",
			zap.Int("iteration", iterations),
			zap.String("type", string(action.Type)),
			zap.String("thought", action.Thought),
		)

		if action.Type == ActionStop {
			state.Facets = UpdateCoverage(state.Facets, state.Passages)
			if AllRequiredCovered(state.Facets) {
				cleanExit = true
				break
			}
			// The planner wants to stop early without full coverage;
			// treat it as a consolidation hint instead.
			action = Action{Type: ActionRerank, TopN: consolidateTarget}
		}

		l.executor.Execute(ctx, state, action)

		state.Facets = UpdateCoverage(state.Facets, state.Passages)
		covered := CoveredCount(state.Facets)

		update := tracker.Update(covered)
		if !update.Progressed {
			l.logger.Debug("No coverage progress",
				zap.Int("iterations_without_progress", update.IterationsWithoutProgress),
			)
		}

		// The boost is a one-shot per run; otherwise a stagnating
		// time-sensitive question would spend a search every cycle.
		if boost := MaybeFreshnessBoost(state, time.Now()); boost != nil && !tracker.boosted {
			tracker.boosted = true
			l.logger.Info("Applying freshness boost", zap.String("query", boost.Query))
			l.executor.Execute(ctx, state, *boost)
			state.Facets = UpdateCoverage(state.Facets, state.Passages)
		}

		requiredCovered := AllRequiredCovered(state.Facets)
		ratio := RequiredCoverageRatio(state.Facets)

		if update.Stop {
			l.logger.Info("Stagnation detected, stopping loop")
			break
		}
		if ShouldStopLoop(state, requiredCovered, ratio, tracker.EverCovered()) {
			cleanExit = requiredCovered && HasDomainDiversity(state.Passages, 2)
			break
		}
	}

	metrics.LoopIterations.Observe(float64(iterations))

	// Exhaustion exits consolidate the passage set down to the most useful
	// few before synthesis; clean coverage exits keep what they have.
	if !cleanExit && len(state.Passages) > consolidateTarget {
		phase = StateConsolidating
		l.logger.Info("Consolidating passages before synthesis",
			zap.String("phase", string(phase)),
			zap.Int("passages", len(state.Passages)),
		)
		l.executor.Execute(ctx, state, Action{Type: ActionRerank, TopN: consolidateTarget})
	}
	phase = StateDone

	metrics.PassagesCollected.Observe(float64(len(state.Passages)))
	l.logger.Info("Loop finished",
		zap.String("phase", string(phase)),
		zap.Int("iterations", iterations),
		zap.Int("passages", len(state.Passages)),
		zap.Int("covered_facets", CoveredCount(state.Facets)),
		zap.Bool("clean_exit", cleanExit),
	)
}
