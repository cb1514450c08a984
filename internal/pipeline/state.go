package pipeline

// State is a step of one analysis execution.
type State string

const (
	StateIdle               State = "idle"
	StateAcquiring          State = "acquiring"
	StateEvidenceExtraction State = "evidence_extraction"
	StateOracleSynthesis    State = "oracle_synthesis"
	StateFused              State = "fused"
	StateCleanup            State = "cleanup"
	StateCached             State = "cached"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// Terminal reports whether no further transition follows s.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}
