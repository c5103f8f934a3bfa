package calculator

import (
	"math"
	"sort"
)

// ProductForDebt represents a product with the minimal information needed for debt calculations.
type ProductForDebt struct {
	ID         string
	BuyerID    int64
	TotalPrice float64
}

// ClaimForDebt represents a claim with the minimal information needed for debt calculations.
type ClaimForDebt struct {
	ClaimantID int64
	ProductID  string
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   int64 // Person who owes
	To     int64 // Person who is owed (the buyer)
	Amount float64
}

// Debts maps debtor to creditor to the unrounded amount owed.
// A debtor missing from the map owes nobody.
type Debts map[int64]map[int64]float64

// ComputeDebts turns claims into pairwise debts.
//
// Algorithm:
// - Each product's total is split equally among its distinct claimants
// - Every claimant other than the buyer owes the buyer one share
// - Shares owed to the same buyer accumulate across products
//
// Products nobody claimed produce no debt. No rounding is applied; callers
// round only when rendering. Every member gets an entry, possibly empty.
// Claims by non-members still count towards the divisor but produce no
// entry of their own.
func ComputeDebts(members []int64, products []ProductForDebt, claims []ClaimForDebt) Debts {
	debts := make(Debts, len(members))
	isMember := make(map[int64]bool, len(members))
	for _, m := range members {
		debts[m] = make(map[int64]float64)
		isMember[m] = true
	}

	byID := make(map[string]ProductForDebt, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Distinct claimants per product; duplicate claim rows count once.
	claimants := make(map[string]map[int64]bool)
	for _, c := range claims {
		if _, ok := byID[c.ProductID]; !ok {
			continue
		}
		if claimants[c.ProductID] == nil {
			claimants[c.ProductID] = make(map[int64]bool)
		}
		claimants[c.ProductID][c.ClaimantID] = true
	}

	// Products are walked in slice order so float accumulation is reproducible.
	for _, p := range products {
		users := claimants[p.ID]
		if len(users) == 0 {
			continue
		}
		share := Share(p.TotalPrice, len(users))
		for u := range users {
			if u == p.BuyerID || !isMember[u] {
				continue
			}
			debts[u][p.BuyerID] += share
		}
	}

	return debts
}

// Share returns one claimant's part of a product total.
func Share(total float64, claimants int) float64 {
	if claimants <= 0 {
		return 0
	}
	return total / float64(claimants)
}

// Owes returns the debtor's outgoing edges ordered by creditor.
func (d Debts) Owes(debtor int64) []DebtEdge {
	creditors := d[debtor]
	edges := make([]DebtEdge, 0, len(creditors))
	for to, amount := range creditors {
		edges = append(edges, DebtEdge{From: debtor, To: to, Amount: amount})
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].To < edges[j].To })
	return edges
}

// Edges returns every debt edge ordered by debtor, then creditor.
func (d Debts) Edges() []DebtEdge {
	debtors := make([]int64, 0, len(d))
	for from := range d {
		debtors = append(debtors, from)
	}
	sort.Slice(debtors, func(i, j int) bool { return debtors[i] < debtors[j] })

	var edges []DebtEdge
	for _, from := range debtors {
		edges = append(edges, d.Owes(from)...)
	}
	return edges
}

// MemberBalance represents the totals for one member across all edges.
type MemberBalance struct {
	TotalOwes float64 // What the member pays others
	TotalOwed float64 // What others pay the member
}

// NetBalance is positive when the member receives money overall.
func (b MemberBalance) NetBalance() float64 {
	return b.TotalOwed - b.TotalOwes
}

// Balances aggregates the debts per member.
func (d Debts) Balances() map[int64]MemberBalance {
	balances := make(map[int64]MemberBalance)
	for from, creditors := range d {
		if _, ok := balances[from]; !ok {
			balances[from] = MemberBalance{}
		}
		for to, amount := range creditors {
			b := balances[from]
			b.TotalOwes += amount
			balances[from] = b

			c := balances[to]
			c.TotalOwed += amount
			balances[to] = c
		}
	}
	return balances
}

// RoundForDisplay rounds an amount to one decimal place.
// Use it only on rendering, never while accumulating.
func RoundForDisplay(amount float64) float64 {
	return math.Round(amount*10) / 10
}
