package conversation

import (
	"strings"

	"github.com/mmynk/settlebot/internal/calculator"
	"github.com/mmynk/settlebot/internal/models"
	"github.com/mmynk/settlebot/internal/phrases"
)

// renderStatement lists what memberID owes each creditor, with the
// creditor's phone and payment link, and what the member will receive.
// Amounts are rounded for display only; totals are rounded from the
// unrounded sums.
func (m *Machine) renderStatement(st *models.Statement, memberID int64) string {
	var name string
	if u := st.Member(memberID); u != nil {
		name = u.Name
	}

	var b strings.Builder
	b.WriteString(m.phrases.Phrase(phrases.StatementHeader, name))

	debts := calculator.Debts(st.Debts)

	var total float64
	lines := 0
	for _, e := range debts.Owes(memberID) {
		amount := calculator.RoundForDisplay(e.Amount)
		if amount == 0 {
			continue
		}
		total += e.Amount

		creditor := st.Member(e.To)
		if creditor == nil {
			continue
		}
		var phone string
		if creditor.Phone != nil {
			phone = *creditor.Phone
		}
		b.WriteString("\n")
		b.WriteString(m.phrases.Phrase(phrases.StatementDebt, creditor.Name, amount, phone))
		if creditor.PaymentLink != nil {
			b.WriteString("\n")
			b.WriteString(m.phrases.Phrase(phrases.StatementLink, *creditor.PaymentLink))
		}
		lines++
	}

	b.WriteString("\n")
	if lines == 0 {
		b.WriteString(m.phrases.Phrase(phrases.StatementNoDebts))
	} else {
		b.WriteString(m.phrases.Phrase(phrases.StatementTotal, calculator.RoundForDisplay(total)))
	}

	if incoming := calculator.RoundForDisplay(debts.Balances()[memberID].TotalOwed); incoming > 0 {
		b.WriteString("\n")
		b.WriteString(m.phrases.Phrase(phrases.StatementIncoming, incoming))
	}
	return b.String()
}
