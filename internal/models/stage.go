package models

// Stage is the phase of the conversation protocol a user is in.
type Stage int

const (
	// StageTeamFormation is the initial stage: the user may create or join a team.
	StageTeamFormation Stage = iota
	// StageProductSelection lets the user record products and claim shares.
	StageProductSelection
	// StagePayment waits for the user's contact info before settlement.
	StagePayment

	// StageCount is the number of stages.
	StageCount
)

// String returns the stage name used in logs and metrics labels.
func (s Stage) String() string {
	switch s {
	case StageTeamFormation:
		return "team_formation"
	case StageProductSelection:
		return "product_selection"
	case StagePayment:
		return "payment"
	default:
		return "unknown"
	}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	return s >= StageTeamFormation && s < StageCount
}
