// Package snapshot drives the lot-matching engine and cash-flow
// aggregator over each import chunk and turns the running state into
// per-entity daily snapshot rows.
package snapshot

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/guttosm/foliopulse/internal/domain/models"
	"github.com/guttosm/foliopulse/internal/ledger"
)

// maxTickerWorkers bounds the per-ticker matching goroutines inside one
// chunk. Position groups are independent, so this partition is safe;
// chunks themselves are still processed strictly one at a time.
const maxTickerWorkers = 4

// BatchCalculator accumulates position and cash state chunk by chunk for
// one import run. State carried forward from chunk N feeds chunk N+1:
// snapshot calculation is not independent per chunk.
//
// Not safe for concurrent use across chunks.
type BatchCalculator struct {
	accountID string
	broker    string

	matchers map[string]*ledger.Matcher // keyed by ticker

	cash          map[string]ledger.CashFlowSummary // cumulative, keyed by currency
	currencies    map[string]struct{}
	dividends     map[string]decimal.Decimal // keyed by ticker:currency, net of withholding
	dividendTotal map[string]decimal.Decimal // keyed by currency
}

// NewBatchCalculator returns an empty calculator for one account import.
func NewBatchCalculator(accountID, broker string) *BatchCalculator {
	return &BatchCalculator{
		accountID:     accountID,
		broker:        broker,
		matchers:      make(map[string]*ledger.Matcher),
		cash:          make(map[string]ledger.CashFlowSummary),
		currencies:    make(map[string]struct{}),
		dividends:     make(map[string]decimal.Decimal),
		dividendTotal: make(map[string]decimal.Decimal),
	}
}

// Warm replays already-persisted movements into the running state without
// emitting snapshots. Used on resume to rebuild the state of all chunks
// completed before the crash or cancellation.
func (c *BatchCalculator) Warm(ctx context.Context, ms models.MovementSet) error {
	return c.feed(ctx, ms)
}

// Process feeds one chunk's movements into the running state and returns
// the snapshot rows for the chunk's window, dated at snapshotDate (the
// window end). Rows are keyed (scope, entity, date) and meant to
// overwrite any previous row for the same key.
func (c *BatchCalculator) Process(ctx context.Context, ms models.MovementSet, snapshotDate time.Time) ([]models.Snapshot, error) {
	if err := c.feed(ctx, ms); err != nil {
		return nil, err
	}
	return c.snapshots(snapshotDate), nil
}

// Warnings collects matcher anomalies (unmatched closes and terminals)
// across all tickers.
func (c *BatchCalculator) Warnings() []string {
	var out []string
	for _, ticker := range c.sortedTickers() {
		out = append(out, c.matchers[ticker].Warnings()...)
	}
	return out
}

func (c *BatchCalculator) feed(ctx context.Context, ms models.MovementSet) error {
	// Partition trades by ticker; each ticker's matcher is touched by
	// exactly one goroutine.
	tradesByTicker := make(map[string][]models.Trade)
	for _, t := range ms.Trades {
		tradesByTicker[t.Ticker] = append(tradesByTicker[t.Ticker], t)
	}
	optionsByTicker := make(map[string][]models.OptionTrade)
	for _, t := range ms.OptionTrades {
		optionsByTicker[t.Ticker] = append(optionsByTicker[t.Ticker], t)
	}

	tickers := make(map[string]struct{})
	for k := range tradesByTicker {
		tickers[k] = struct{}{}
	}
	for k := range optionsByTicker {
		tickers[k] = struct{}{}
	}
	for ticker := range tickers {
		if _, ok := c.matchers[ticker]; !ok {
			c.matchers[ticker] = ledger.NewMatcher()
		}
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(maxTickerWorkers)
	for ticker := range tickers {
		m := c.matchers[ticker]
		trades := tradesByTicker[ticker]
		options := optionsByTicker[ticker]
		g.Go(func() error {
			if err := m.FeedTrades(trades); err != nil {
				return err
			}
			return m.FeedOptionTrades(options)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Cash flows: merge this chunk's per-currency summaries into the
	// cumulative totals.
	for _, mv := range ms.BrokerMovements {
		if mv.Currency != "" {
			c.currencies[mv.Currency] = struct{}{}
		}
		if mv.Type == models.MovementConversion && mv.SourceCurrency != "" {
			c.currencies[mv.SourceCurrency] = struct{}{}
		}
	}
	for cur := range c.currencies {
		chunkSum := ledger.AggregateCashFlows(ms.BrokerMovements, cur)
		c.cash[cur] = mergeCash(c.cash[cur], chunkSum, cur)
	}

	// Dividends, net of withholding tax.
	for _, d := range ms.Dividends {
		key := models.TickerEntityKey(d.Ticker, d.Currency)
		c.dividends[key] = c.dividends[key].Add(d.Amount)
		c.dividendTotal[d.Currency] = c.dividendTotal[d.Currency].Add(d.Amount)
		c.currencies[d.Currency] = struct{}{}
	}
	for _, d := range ms.DividendTaxes {
		key := models.TickerEntityKey(d.Ticker, d.Currency)
		c.dividends[key] = c.dividends[key].Sub(d.Amount.Abs())
		c.dividendTotal[d.Currency] = c.dividendTotal[d.Currency].Sub(d.Amount.Abs())
	}

	return nil
}

func mergeCash(acc, chunk ledger.CashFlowSummary, cur string) ledger.CashFlowSummary {
	acc.Currency = cur
	acc.Deposited = acc.Deposited.Add(chunk.Deposited)
	acc.Withdrawn = acc.Withdrawn.Add(chunk.Withdrawn)
	acc.Fees = acc.Fees.Add(chunk.Fees)
	acc.Commissions = acc.Commissions.Add(chunk.Commissions)
	acc.OtherIncome = acc.OtherIncome.Add(chunk.OtherIncome)
	acc.InterestPaid = acc.InterestPaid.Add(chunk.InterestPaid)
	acc.ConversionImpact = acc.ConversionImpact.Add(chunk.ConversionImpact)
	acc.MovementCount += chunk.MovementCount
	return acc
}

// snapshots renders the current running state as rows for snapshotDate.
func (c *BatchCalculator) snapshots(snapshotDate time.Time) []models.Snapshot {
	date := time.Date(snapshotDate.Year(), snapshotDate.Month(), snapshotDate.Day(), 0, 0, 0, 0, time.UTC)
	hundred := decimal.NewFromInt(100)

	var rows []models.Snapshot

	// Account-level running totals, accumulated while walking tickers.
	var acct models.Snapshot
	acct.Scope = models.ScopeBrokerAccount
	acct.EntityKey = c.accountID
	acct.Date = date

	for _, ticker := range c.sortedTickers() {
		results := c.matchers[ticker].Results(date)

		// One row per (ticker, currency); option groups fold into the
		// same row as the underlying, feeding OptionsIncome.
		byCurrency := make(map[string]*models.Snapshot)
		var curOrder []string
		for _, r := range results {
			row, ok := byCurrency[r.Currency]
			if !ok {
				row = &models.Snapshot{
					Scope:     models.ScopeTickerCurrency,
					EntityKey: models.TickerEntityKey(ticker, r.Currency),
					Date:      date,
				}
				row.Dividends = c.dividends[models.TickerEntityKey(ticker, r.Currency)]
				byCurrency[r.Currency] = row
				curOrder = append(curOrder, r.Currency)
			}
			row.Invested = row.Invested.Add(r.Invested)
			row.RealizedGains = row.RealizedGains.Add(r.Realized)
			row.UnrealizedGains = row.UnrealizedGains.Add(r.Unrealized)
			row.Commissions = row.Commissions.Add(r.Commissions)
			row.Fees = row.Fees.Add(r.Fees)
			if r.Key.IsOption() {
				row.OptionsIncome = row.OptionsIncome.Add(r.Realized)
			}
			row.OpenTrade = row.OpenTrade || r.Open
		}

		sort.Strings(curOrder)
		for _, cur := range curOrder {
			row := byCurrency[cur]
			if row.Invested.IsPositive() {
				row.UnrealizedPct = row.UnrealizedGains.Div(row.Invested).Mul(hundred)
			}
			if basis := row.Invested.Add(row.RealizedGains.Abs()); basis.IsPositive() {
				row.RealizedPct = row.RealizedGains.Div(basis).Mul(hundred)
			}
			rows = append(rows, *row)

			acct.Invested = acct.Invested.Add(row.Invested)
			acct.RealizedGains = acct.RealizedGains.Add(row.RealizedGains)
			acct.UnrealizedGains = acct.UnrealizedGains.Add(row.UnrealizedGains)
			acct.Commissions = acct.Commissions.Add(row.Commissions)
			acct.Fees = acct.Fees.Add(row.Fees)
			acct.OptionsIncome = acct.OptionsIncome.Add(row.OptionsIncome)
			acct.Dividends = acct.Dividends.Add(row.Dividends)
			acct.OpenTrade = acct.OpenTrade || row.OpenTrade
		}
	}

	// Cash movements fold into the account row across currencies.
	for _, cur := range c.sortedCurrencies() {
		sum := c.cash[cur]
		acct.Deposited = acct.Deposited.Add(sum.Deposited)
		acct.Withdrawn = acct.Withdrawn.Add(sum.Withdrawn)
		acct.Fees = acct.Fees.Add(sum.Fees)
		acct.Commissions = acct.Commissions.Add(sum.Commissions)
		acct.OtherIncome = acct.OtherIncome.Add(sum.OtherIncome).Sub(sum.InterestPaid)
	}
	if acct.Invested.IsPositive() {
		acct.UnrealizedPct = acct.UnrealizedGains.Div(acct.Invested).Mul(hundred)
	}
	if basis := acct.Invested.Add(acct.RealizedGains.Abs()); basis.IsPositive() {
		acct.RealizedPct = acct.RealizedGains.Div(basis).Mul(hundred)
	}
	rows = append(rows, acct)

	// Broker-level row mirrors the account row for a single-account
	// import; kept as its own scope so multi-account brokers aggregate
	// naturally downstream.
	broker := acct
	broker.Scope = models.ScopeBroker
	broker.EntityKey = c.broker
	rows = append(rows, broker)

	return rows
}

func (c *BatchCalculator) sortedTickers() []string {
	out := make([]string, 0, len(c.matchers))
	for t := range c.matchers {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (c *BatchCalculator) sortedCurrencies() []string {
	out := make([]string, 0, len(c.currencies))
	for cur := range c.currencies {
		out = append(out, cur)
	}
	sort.Strings(out)
	return out
}
