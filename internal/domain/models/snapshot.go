package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SnapshotScope is the entity level a snapshot aggregates over.
type SnapshotScope string

const (
	ScopeTickerCurrency SnapshotScope = "TICKER_CURRENCY"
	ScopeBrokerAccount  SnapshotScope = "BROKER_ACCOUNT"
	ScopeBroker         SnapshotScope = "BROKER"
)

// Snapshot is a date-stamped aggregate of monetary metrics for one entity.
// Rows are keyed (Scope, EntityKey, Date) and overwritten when a chunk's
// window is recomputed; downstream consumers read the latest row per
// entity.
type Snapshot struct {
	Scope           SnapshotScope
	EntityKey       string
	Date            time.Time
	Invested        decimal.Decimal
	RealizedGains   decimal.Decimal
	RealizedPct     decimal.Decimal
	UnrealizedGains decimal.Decimal
	UnrealizedPct   decimal.Decimal
	Commissions     decimal.Decimal
	Fees            decimal.Decimal
	Dividends       decimal.Decimal
	OptionsIncome   decimal.Decimal
	OtherIncome     decimal.Decimal
	Deposited       decimal.Decimal
	Withdrawn       decimal.Decimal
	OpenTrade       bool
}

// TickerEntityKey builds the EntityKey for a ticker-currency snapshot.
func TickerEntityKey(ticker, currency string) string {
	return ticker + ":" + currency
}
