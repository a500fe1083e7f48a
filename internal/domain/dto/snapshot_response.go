package dto

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// SnapshotResponse is the API shape of one snapshot row. Amounts are
// decimal strings; Display fields are currency-formatted when the
// entity key carries a known ISO currency code.
//
// swagger:model SnapshotResponse
type SnapshotResponse struct {
	Scope             string `json:"scope" example:"TICKER_CURRENCY"`
	EntityKey         string `json:"entity_key" example:"AAPL:USD"`
	Date              string `json:"date" example:"2024-03-15"`
	Invested          string `json:"invested" example:"1050.00"`
	RealizedGains     string `json:"realized_gains" example:"48.00"`
	RealizedPct       string `json:"realized_pct" example:"4.57"`
	UnrealizedGains   string `json:"unrealized_gains" example:"-12.50"`
	UnrealizedPct     string `json:"unrealized_pct" example:"-1.19"`
	Commissions       string `json:"commissions" example:"2.00"`
	Fees              string `json:"fees" example:"0.45"`
	Dividends         string `json:"dividends" example:"31.20"`
	OptionsIncome     string `json:"options_income" example:"150.00"`
	OtherIncome       string `json:"other_income" example:"3.11"`
	Deposited         string `json:"deposited" example:"10000.00"`
	Withdrawn         string `json:"withdrawn" example:"0"`
	OpenTrade         bool   `json:"open_trade"`
	RealizedDisplay   string `json:"realized_display,omitempty" example:"$48.00"`
	UnrealizedDisplay string `json:"unrealized_display,omitempty" example:"-$12.50"`
}

// NewSnapshotResponse maps a domain snapshot into the API shape.
func NewSnapshotResponse(s models.Snapshot) SnapshotResponse {
	resp := SnapshotResponse{
		Scope:           string(s.Scope),
		EntityKey:       s.EntityKey,
		Date:            s.Date.Format("2006-01-02"),
		Invested:        s.Invested.String(),
		RealizedGains:   s.RealizedGains.String(),
		RealizedPct:     s.RealizedPct.Round(2).String(),
		UnrealizedGains: s.UnrealizedGains.String(),
		UnrealizedPct:   s.UnrealizedPct.Round(2).String(),
		Commissions:     s.Commissions.String(),
		Fees:            s.Fees.String(),
		Dividends:       s.Dividends.String(),
		OptionsIncome:   s.OptionsIncome.String(),
		OtherIncome:     s.OtherIncome.String(),
		Deposited:       s.Deposited.String(),
		Withdrawn:       s.Withdrawn.String(),
		OpenTrade:       s.OpenTrade,
	}

	// Ticker-currency keys are "TICKER:CUR"; format display amounts when
	// the currency code is a real ISO code.
	if s.Scope == models.ScopeTickerCurrency {
		if idx := strings.LastIndex(s.EntityKey, ":"); idx >= 0 {
			code := s.EntityKey[idx+1:]
			if cur := money.GetCurrency(code); cur != nil {
				resp.RealizedDisplay = formatAmount(s.RealizedGains, cur)
				resp.UnrealizedDisplay = formatAmount(s.UnrealizedGains, cur)
			}
		}
	}
	return resp
}

func formatAmount(d decimal.Decimal, cur *money.Currency) string {
	minor := d.Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}
