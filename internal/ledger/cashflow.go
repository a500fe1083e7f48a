package ledger

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// CashFlowSummary aggregates broker cash movements, either across all
// currencies or restricted to one. All totals are positive magnitudes
// except ConversionImpact, which is the signed net effect of currency
// conversions on the filter currency.
type CashFlowSummary struct {
	Currency         string
	Deposited        decimal.Decimal
	Withdrawn        decimal.Decimal
	Fees             decimal.Decimal
	Commissions      decimal.Decimal
	OtherIncome      decimal.Decimal
	InterestPaid     decimal.Decimal
	ConversionImpact decimal.Decimal
	MovementCount    int
	Currencies       []string
}

// AggregateCashFlows classifies and sums broker movements. When currency
// is non-empty only movements touching that currency are counted; a
// conversion contributes +Amount when the filter matches its destination
// currency and −AmountChanged when it matches its source currency.
//
// A conversion with an absent AmountChanged contributes nothing on the
// source side: absent is distinct from zero and must not be defaulted.
func AggregateCashFlows(movements []models.BrokerMovement, currency string) CashFlowSummary {
	s := CashFlowSummary{Currency: currency}
	seen := make(map[string]struct{})

	touch := func(cur string) {
		if cur == "" {
			return
		}
		if _, ok := seen[cur]; !ok {
			seen[cur] = struct{}{}
			s.Currencies = append(s.Currencies, cur)
		}
	}

	for _, mv := range movements {
		if mv.Type == models.MovementConversion {
			matchesDst := currency == "" || mv.Currency == currency
			matchesSrc := currency != "" && mv.SourceCurrency == currency
			if !matchesDst && !matchesSrc {
				continue
			}
			s.MovementCount++
			touch(mv.Currency)
			touch(mv.SourceCurrency)
			if matchesDst && currency != "" {
				s.ConversionImpact = s.ConversionImpact.Add(mv.Amount)
			}
			if matchesSrc && mv.AmountChanged != nil {
				s.ConversionImpact = s.ConversionImpact.Sub(*mv.AmountChanged)
			}
			continue
		}

		if currency != "" && mv.Currency != currency {
			continue
		}
		s.MovementCount++
		touch(mv.Currency)

		switch mv.Type {
		case models.MovementDeposit:
			s.Deposited = s.Deposited.Add(mv.Amount.Abs())
		case models.MovementWithdrawal:
			s.Withdrawn = s.Withdrawn.Add(mv.Amount.Abs())
		case models.MovementFee:
			s.Fees = s.Fees.Add(mv.Amount.Abs())
		case models.MovementCommission:
			s.Commissions = s.Commissions.Add(mv.Amount.Abs())
		case models.MovementInterest, models.MovementLending:
			s.OtherIncome = s.OtherIncome.Add(mv.Amount.Abs())
		case models.MovementInterestPaid:
			s.InterestPaid = s.InterestPaid.Add(mv.Amount.Abs())
		}
	}

	sort.Strings(s.Currencies)
	return s
}
