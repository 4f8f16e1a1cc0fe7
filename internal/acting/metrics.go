package acting

import "time"

// Outcome says how an episode ended.
type Outcome string

const (
	OutcomeDelivered  Outcome = "delivered"   // terminated with a positive reward
	OutcomeTerminated Outcome = "terminated"  // terminated without one
	OutcomeTruncated  Outcome = "truncated"   // simulator time limit
	OutcomeNoPlan     Outcome = "no-plan"     // planner rejected or returned nothing
	OutcomeStepBudget Outcome = "step-budget" // strategy step budget exhausted
	OutcomeEnvError   Outcome = "env-error"   // simulator refused a step or sent a bad observation
)

// Metrics is the per-episode record.
type Metrics struct {
	ID       string  `json:"id"`
	Strategy string  `json:"strategy"`
	Seed     int64   `json:"seed"`
	Success  bool    `json:"success"`
	Outcome  Outcome `json:"outcome"`
	Error    string  `json:"error,omitempty"`

	Steps              int     `json:"steps"`
	DecompositionCalls int     `json:"decomposition_calls"`
	TotalReward        float64 `json:"total_reward"`
	TotalPlanningTime  float64 `json:"total_planning_time"` // seconds
	Fidelity           float64 `json:"fidelity"`

	// GeneratedActions is the summed length of every returned plan;
	// CommittedActions counts those the strategy meant to execute.
	GeneratedActions int `json:"generated_actions"`
	CommittedActions int `json:"committed_actions"`
	NoEffectActions  int `json:"no_effect_actions"`
	FailureReplans   int `json:"failure_replans"`

	StartedAt time.Time `json:"started_at"`
}

// PlanningDuration returns TotalPlanningTime as a duration.
func (m Metrics) PlanningDuration() time.Duration {
	return time.Duration(m.TotalPlanningTime * float64(time.Second))
}

// fidelity is executed over committed actions, 0 when nothing was committed.
func fidelity(executed, committed int) float64 {
	if committed == 0 {
		return 0
	}
	return float64(executed) / float64(committed)
}
