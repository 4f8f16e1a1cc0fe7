package results

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/logrusorgru/aurora"

	"github.com/elektrokombinacija/taxi-htn/internal/acting"
)

// Summary aggregates the episodes of one strategy.
type Summary struct {
	Strategy  string
	Episodes  int
	Successes int
	Outcomes  map[acting.Outcome]int

	AvgSteps          float64
	AvgDecompositions float64
	AvgReward         float64
	AvgPlanningTime   time.Duration
	AvgFidelity       float64
	NoEffectActions   int
	FailureReplans    int
}

// SuccessRate is Successes / Episodes, 0 for no episodes.
func (s Summary) SuccessRate() float64 {
	if s.Episodes == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Episodes)
}

// Summarize groups records by strategy, in order of first appearance.
func Summarize(records []acting.Metrics) []Summary {
	index := map[string]int{}
	var out []Summary
	var planning []float64

	for _, m := range records {
		i, ok := index[m.Strategy]
		if !ok {
			i = len(out)
			index[m.Strategy] = i
			out = append(out, Summary{Strategy: m.Strategy, Outcomes: map[acting.Outcome]int{}})
			planning = append(planning, 0)
		}
		s := &out[i]
		s.Episodes++
		if m.Success {
			s.Successes++
		}
		s.Outcomes[m.Outcome]++
		s.AvgSteps += float64(m.Steps)
		s.AvgDecompositions += float64(m.DecompositionCalls)
		s.AvgReward += m.TotalReward
		s.AvgFidelity += m.Fidelity
		s.NoEffectActions += m.NoEffectActions
		s.FailureReplans += m.FailureReplans
		planning[i] += m.TotalPlanningTime
	}

	for i := range out {
		s := &out[i]
		n := float64(s.Episodes)
		s.AvgSteps /= n
		s.AvgDecompositions /= n
		s.AvgReward /= n
		s.AvgFidelity /= n
		s.AvgPlanningTime = time.Duration(planning[i] / n * float64(time.Second))
	}
	return out
}

// EpisodeLine formats one record for the console.
func EpisodeLine(m acting.Metrics, color bool) string {
	au := aurora.NewAurora(color)
	status := au.Red("FAIL")
	if m.Success {
		status = au.Green(" OK ")
	}
	return fmt.Sprintf("[%s] %-26s seed=%-6d %-11s steps=%-4d decomp=%-4d reward=%-6.0f fidelity=%.2f",
		status, m.Strategy, m.Seed, m.Outcome, m.Steps, m.DecompositionCalls, m.TotalReward, m.Fidelity)
}

// WriteTable prints the comparison table.
func WriteTable(w io.Writer, summaries []Summary, color bool) error {
	au := aurora.NewAurora(color)

	fmt.Fprintln(w, au.Bold("=== STRATEGY COMPARISON ==="))
	fmt.Fprintf(w, "%-26s %8s %8s %10s %10s %10s %14s %9s %8s\n",
		"Strategy", "Episodes", "Success", "Avg Steps", "Avg Decomp", "Avg Reward", "Avg Plan(ms)", "Fidelity", "Replans")
	fmt.Fprintln(w, strings.Repeat("-", 111))

	for _, s := range summaries {
		rate := fmt.Sprintf("%7.1f%%", 100*s.SuccessRate())
		var shown aurora.Value
		switch {
		case s.SuccessRate() >= 0.95:
			shown = au.Green(rate)
		case s.SuccessRate() >= 0.5:
			shown = au.Yellow(rate)
		default:
			shown = au.Red(rate)
		}
		_, err := fmt.Fprintf(w, "%-26s %8d %s %10.2f %10.2f %10.2f %14.3f %9.3f %8d\n",
			s.Strategy, s.Episodes, shown, s.AvgSteps, s.AvgDecompositions, s.AvgReward,
			float64(s.AvgPlanningTime.Microseconds())/1000, s.AvgFidelity, s.FailureReplans)
		if err != nil {
			return err
		}
	}
	return nil
}

var csvHeader = []string{
	"id", "strategy", "seed", "success", "outcome", "steps", "decomposition_calls",
	"total_reward", "total_planning_time", "fidelity", "generated_actions",
	"committed_actions", "no_effect_actions", "failure_replans",
}

// WriteCSV writes one row per record.
func WriteCSV(w io.Writer, records []acting.Metrics) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(csvHeader); err != nil {
		return err
	}
	for _, m := range records {
		row := []string{
			m.ID, m.Strategy, strconv.FormatInt(m.Seed, 10), strconv.FormatBool(m.Success),
			string(m.Outcome), strconv.Itoa(m.Steps), strconv.Itoa(m.DecompositionCalls),
			fmt.Sprintf("%.0f", m.TotalReward), fmt.Sprintf("%.6f", m.TotalPlanningTime),
			fmt.Sprintf("%.4f", m.Fidelity), strconv.Itoa(m.GeneratedActions),
			strconv.Itoa(m.CommittedActions), strconv.Itoa(m.NoEffectActions),
			strconv.Itoa(m.FailureReplans),
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}
