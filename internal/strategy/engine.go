// Package strategy turns enriched bar series into trade-entry signals.
//
// A Strategy evaluates one bar in one direction and returns the ordered trail
// of gate checks it ran, plus a Signal when every gate passed. Scanning a
// series evaluates every bar from index 1 in both directions.
package strategy

import (
	"time"

	"github.com/josephadah/trading-ai/internal/model"
)

// Gate names, in evaluation order.
const (
	StepReadiness  = "readiness"
	StepTrend      = "trend"
	StepPullback   = "pullback"
	StepMomentum   = "momentum"
	StepTrigger    = "trigger"
	StepStopLoss   = "stop_loss"
	StepTakeProfit = "take_profit"
)

// Strategy is the interface implemented by signal rule sets.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Evaluate runs the gate pipeline for bar i in direction dir.
	// It must depend only on bars at indices <= i.
	Evaluate(es model.EnrichedSeries, i int, dir model.Direction) Evaluation
}

// Evaluation is the outcome of one bar/direction evaluation.
// Steps are recorded even when no signal is emitted.
type Evaluation struct {
	Index     int             `json:"index"`
	TS        time.Time       `json:"ts"`
	Direction model.Direction `json:"direction"`
	Signal    *model.Signal   `json:"signal,omitempty"`
	Steps     []model.Step    `json:"steps"`
}

// Rejection returns the step that aborted the evaluation, if any.
func (ev Evaluation) Rejection() (model.Step, bool) {
	if ev.Signal != nil || len(ev.Steps) == 0 {
		return model.Step{}, false
	}
	last := ev.Steps[len(ev.Steps)-1]
	return last, !last.Passed
}

func (ev *Evaluation) pass(name, detail string) {
	ev.Steps = append(ev.Steps, model.Step{Name: name, Passed: true, Detail: detail})
}

func (ev *Evaluation) note(name string, passed bool, detail string) {
	ev.Steps = append(ev.Steps, model.Step{Name: name, Passed: passed, Detail: detail})
}

func (ev *Evaluation) fail(name, detail string) Evaluation {
	ev.Steps = append(ev.Steps, model.Step{Name: name, Passed: false, Detail: detail})
	return *ev
}

// Scan evaluates s over every bar from index 1 to the end, LONG then SHORT,
// and returns the emitted signals in timestamp order.
func Scan(s Strategy, es model.EnrichedSeries) []model.Signal {
	signals, _ := scan(s, es, false)
	return signals
}

// ScanWithTrace is Scan that also returns every evaluation, in order.
func ScanWithTrace(s Strategy, es model.EnrichedSeries) ([]model.Signal, []Evaluation) {
	return scan(s, es, true)
}

func scan(s Strategy, es model.EnrichedSeries, trace bool) ([]model.Signal, []Evaluation) {
	var signals []model.Signal
	var evals []Evaluation
	if trace {
		evals = make([]Evaluation, 0, 2*es.Len())
	}
	for i := 1; i < es.Len(); i++ {
		for _, dir := range model.Directions {
			ev := s.Evaluate(es, i, dir)
			if ev.Signal != nil {
				signals = append(signals, *ev.Signal)
			}
			if trace {
				evals = append(evals, ev)
			}
		}
	}
	return signals, evals
}
