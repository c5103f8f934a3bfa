package models

// Statement is the outcome of a settlement cycle: what every member
// owes every buyer. Amounts are unrounded; rounding happens on render.
type Statement struct {
	// TeamID is the dissolved team.
	TeamID string

	// Members is the team roster as it was at settlement time,
	// including contact info needed to pay creditors.
	Members []User

	// Debts maps debtor ID to creditor ID to amount.
	// A member absent from the map owes nobody.
	Debts map[int64]map[int64]float64
}

// Member returns the roster entry with the given ID, or nil.
func (s *Statement) Member(id int64) *User {
	for i := range s.Members {
		if s.Members[i].ID == id {
			return &s.Members[i]
		}
	}
	return nil
}
