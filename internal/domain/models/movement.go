package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind discriminates ledger rows by movement type.
type MovementKind string

const (
	KindTrade          MovementKind = "TRADE"
	KindOptionTrade    MovementKind = "OPTION_TRADE"
	KindBrokerMovement MovementKind = "BROKER_MOVEMENT"
	KindDividend       MovementKind = "DIVIDEND"
	KindDividendTax    MovementKind = "DIVIDEND_TAX"
)

// Movement records are immutable once parsed: the import pipeline never
// mutates the slices it receives, it only reads them and writes rows.
//
// Sign convention for Amount: signed cash effect on the account, so a
// purchase is negative and a sale (or received premium) is positive.
// Commission and Fees are positive charges, kept separate so the matching
// engine can allocate them proportionally across partial lot matches.

// Trade is a single equity trade movement.
type Trade struct {
	ID         string
	AccountID  string
	Ticker     string
	Action     TradeAction
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Fees       decimal.Decimal
	Currency   string
	Timestamp  time.Time
	CreatedAt  *time.Time
	UpdatedAt  *time.Time
}

// NetAmount is the total signed cash effect including charges.
func (t Trade) NetAmount() decimal.Decimal {
	return t.Amount.Sub(t.Commission).Sub(t.Fees)
}

// OptionTrade is a single option-contract movement. One row represents
// one contract event; Quantity counts contracts.
type OptionTrade struct {
	ID         string
	AccountID  string
	Ticker     string
	OptionType OptionType
	Strike     decimal.Decimal
	Expiration time.Time
	Action     TradeAction
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	Commission decimal.Decimal
	Fees       decimal.Decimal
	Currency   string
	Timestamp  time.Time
	CreatedAt  *time.Time
	UpdatedAt  *time.Time
}

// NetAmount is the total signed cash effect including charges.
func (t OptionTrade) NetAmount() decimal.Decimal {
	return t.Amount.Sub(t.Commission).Sub(t.Fees)
}

// BrokerMovement is a non-trade cash movement (deposit, withdrawal, fee,
// interest, currency conversion, ...).
//
// For MovementConversion the Currency/Amount pair is the destination side
// and SourceCurrency/AmountChanged is the paired source side: the
// destination currency gains Amount, the source currency loses
// AmountChanged. AmountChanged is nil for every other movement type;
// readers must treat "absent" distinctly from zero.
type BrokerMovement struct {
	ID             string
	AccountID      string
	Type           BrokerMovementType
	Amount         decimal.Decimal
	Currency       string
	SourceCurrency string
	AmountChanged  *decimal.Decimal
	Description    string
	Timestamp      time.Time
	CreatedAt      *time.Time
	UpdatedAt      *time.Time
}

// Dividend is a dividend payment movement.
type Dividend struct {
	ID        string
	AccountID string
	Ticker    string
	Amount    decimal.Decimal
	Currency  string
	Timestamp time.Time
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// DividendTax is a withholding-tax movement paired with a dividend.
type DividendTax struct {
	ID        string
	AccountID string
	Ticker    string
	Amount    decimal.Decimal
	Currency  string
	Timestamp time.Time
	CreatedAt *time.Time
	UpdatedAt *time.Time
}

// MovementSet is the pre-parsed input of one import invocation: everything
// a broker export contained for one account, already decoded by the
// (out-of-scope) format parsers.
type MovementSet struct {
	Trades          []Trade
	OptionTrades    []OptionTrade
	BrokerMovements []BrokerMovement
	Dividends       []Dividend
	DividendTaxes   []DividendTax
}

// Len returns the total number of movements across all kinds.
func (m MovementSet) Len() int {
	return len(m.Trades) + len(m.OptionTrades) + len(m.BrokerMovements) +
		len(m.Dividends) + len(m.DividendTaxes)
}

// FilterWindow returns the subset of movements whose timestamp falls in
// [start, end] (inclusive, date granularity). The receiver is not modified.
func (m MovementSet) FilterWindow(start, end time.Time) MovementSet {
	in := func(ts time.Time) bool {
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		return !d.Before(start) && !d.After(end)
	}

	var out MovementSet
	for _, t := range m.Trades {
		if in(t.Timestamp) {
			out.Trades = append(out.Trades, t)
		}
	}
	for _, t := range m.OptionTrades {
		if in(t.Timestamp) {
			out.OptionTrades = append(out.OptionTrades, t)
		}
	}
	for _, b := range m.BrokerMovements {
		if in(b.Timestamp) {
			out.BrokerMovements = append(out.BrokerMovements, b)
		}
	}
	for _, d := range m.Dividends {
		if in(d.Timestamp) {
			out.Dividends = append(out.Dividends, d)
		}
	}
	for _, d := range m.DividendTaxes {
		if in(d.Timestamp) {
			out.DividendTaxes = append(out.DividendTaxes, d)
		}
	}
	return out
}

// Histogram returns the per-day movement count keyed by UTC date, used by
// the chunk planner to size windows.
func (m MovementSet) Histogram() map[time.Time]int {
	h := make(map[time.Time]int)
	add := func(ts time.Time) {
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		h[d]++
	}
	for _, t := range m.Trades {
		add(t.Timestamp)
	}
	for _, t := range m.OptionTrades {
		add(t.Timestamp)
	}
	for _, b := range m.BrokerMovements {
		add(b.Timestamp)
	}
	for _, d := range m.Dividends {
		add(d.Timestamp)
	}
	for _, d := range m.DividendTaxes {
		add(d.Timestamp)
	}
	return h
}

// DateBounds returns the UTC date of the earliest and latest movement and
// false when the set is empty.
func (m MovementSet) DateBounds() (min, max time.Time, ok bool) {
	visit := func(ts time.Time) {
		d := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		if !ok {
			min, max, ok = d, d, true
			return
		}
		if d.Before(min) {
			min = d
		}
		if d.After(max) {
			max = d
		}
	}
	for _, t := range m.Trades {
		visit(t.Timestamp)
	}
	for _, t := range m.OptionTrades {
		visit(t.Timestamp)
	}
	for _, b := range m.BrokerMovements {
		visit(b.Timestamp)
	}
	for _, d := range m.Dividends {
		visit(d.Timestamp)
	}
	for _, d := range m.DividendTaxes {
		visit(d.Timestamp)
	}
	return min, max, ok
}
