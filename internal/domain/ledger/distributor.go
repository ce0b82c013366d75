package ledger

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ChargeLine is the amount taken from one installment by an apply action
type ChargeLine struct {
	InstallmentID uuid.UUID       `json:"installment_id"`
	Sequence      int             `json:"sequence"`
	Amount        decimal.Decimal `json:"amount"`
}

// Distribute spreads amount over the previous-pending installments oldest first and
// gives whatever remains to the target, each charge capped at its own balance.
// Lines are emitted oldest to newest with the target last; zero charges are skipped.
func Distribute(amount decimal.Decimal, previous []PendingInstallment, target PendingInstallment) []ChargeLine {
	ordered := make([]PendingInstallment, len(previous))
	copy(ordered, previous)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Sequence < ordered[j].Sequence
	})

	lines := make([]ChargeLine, 0, len(ordered)+1)
	remaining := amount

	for _, p := range ordered {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		charge := decimal.Min(remaining, p.Balance)
		if charge.LessThanOrEqual(decimal.Zero) {
			continue
		}
		lines = append(lines, ChargeLine{
			InstallmentID: p.InstallmentID,
			Sequence:      p.Sequence,
			Amount:        charge,
		})
		remaining = remaining.Sub(charge)
	}

	if remaining.IsPositive() {
		charge := decimal.Min(remaining, target.Balance)
		if charge.IsPositive() {
			lines = append(lines, ChargeLine{
				InstallmentID: target.InstallmentID,
				Sequence:      target.Sequence,
				Amount:        charge,
			})
		}
	}

	return lines
}

// TotalCharged sums the amounts of the given lines
func TotalCharged(lines []ChargeLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Amount)
	}
	return total
}
