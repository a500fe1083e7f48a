// Package ledger implements the financial reconciliation core: FIFO lot
// matching for trades and option trades, and cash-flow aggregation for
// broker movements.
//
// All monetary arithmetic uses shopspring/decimal. Proportional allocation
// across partial lot matches is done by multiply-then-divide with the
// remainder assigned by subtraction, so the allocated parts always sum
// exactly to the original amount and repeated recomputation cannot drift.
package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// Direction tells whether a lot was opened by a buy (long) or a sell
// (short premium).
type Direction int

const (
	Long Direction = iota
	Short
)

// PositionKey groups movements into one FIFO queue. For equities only
// Ticker is set; option positions additionally carry type, strike and
// expiration so distinct contracts never match against each other.
type PositionKey struct {
	Ticker     string
	OptionType models.OptionType
	Strike     string
	Expiration string
}

// IsOption reports whether the key identifies an option position.
func (k PositionKey) IsOption() bool { return k.OptionType != "" }

// Lot is an open position fragment: the unmatched remainder of an opening
// movement, awaiting closing matches in arrival order.
type Lot struct {
	MovementID string
	Direction  Direction
	Quantity   decimal.Decimal
	// Net is the signed cash effect of the open, charges included:
	// negative for a long open (cost), positive for a short open (credit).
	Net      decimal.Decimal
	OpenedAt time.Time
}

type group struct {
	key        PositionKey
	currency   string
	expiration *time.Time
	lots       []Lot
	realized   decimal.Decimal
	// closedBasis is the absolute opening-side cash consumed by matches,
	// the denominator for the realized percentage.
	closedBasis decimal.Decimal
	commissions decimal.Decimal
	fees        decimal.Decimal
}

// Matcher is the stateful FIFO position tracker. State survives Feed
// calls so chunk N+1 continues exactly where chunk N stopped; the batch
// manager owns one Matcher per import run.
//
// Not safe for concurrent use.
type Matcher struct {
	groups   map[PositionKey]*group
	order    []PositionKey
	warnings []string
}

// NewMatcher returns an empty matcher.
func NewMatcher() *Matcher {
	return &Matcher{groups: make(map[PositionKey]*group)}
}

// event is the common shape of a trade or option trade inside the engine.
type event struct {
	movementID string
	key        PositionKey
	action     models.TradeAction
	quantity   decimal.Decimal
	net        decimal.Decimal
	commission decimal.Decimal
	fees       decimal.Decimal
	currency   string
	timestamp  time.Time
	expiration *time.Time
}

// FeedTrades applies equity trade movements to the matcher. The input
// slice is not modified; events are sorted by timestamp before matching.
func (m *Matcher) FeedTrades(trades []models.Trade) error {
	events := make([]event, 0, len(trades))
	for _, t := range trades {
		events = append(events, event{
			movementID: t.ID,
			key:        PositionKey{Ticker: t.Ticker},
			action:     t.Action,
			quantity:   t.Quantity,
			net:        t.NetAmount(),
			commission: t.Commission,
			fees:       t.Fees,
			currency:   t.Currency,
			timestamp:  t.Timestamp,
		})
	}
	return m.feed(events)
}

// FeedOptionTrades applies option movements to the matcher. The input
// slice is not modified; events are sorted by timestamp before matching.
func (m *Matcher) FeedOptionTrades(trades []models.OptionTrade) error {
	events := make([]event, 0, len(trades))
	for _, t := range trades {
		exp := t.Expiration
		events = append(events, event{
			movementID: t.ID,
			key: PositionKey{
				Ticker:     t.Ticker,
				OptionType: t.OptionType,
				Strike:     t.Strike.String(),
				Expiration: t.Expiration.Format("2006-01-02"),
			},
			action:     t.Action,
			quantity:   t.Quantity,
			net:        t.NetAmount(),
			commission: t.Commission,
			fees:       t.Fees,
			currency:   t.Currency,
			timestamp:  t.Timestamp,
			expiration: &exp,
		})
	}
	return m.feed(events)
}

func (m *Matcher) feed(events []event) error {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].timestamp.Before(events[j].timestamp)
	})
	for _, ev := range events {
		if err := m.apply(ev); err != nil {
			return err
		}
	}
	return nil
}

func (m *Matcher) apply(ev event) error {
	g := m.group(ev)
	g.commissions = g.commissions.Add(ev.commission)
	g.fees = g.fees.Add(ev.fees)

	// The switch over the action set is exhaustive on purpose: a new
	// action code must fail here rather than be silently skipped.
	switch ev.action {
	case models.ActionBuyToOpen:
		m.open(g, ev, Long)
	case models.ActionSellToOpen:
		m.open(g, ev, Short)
	case models.ActionSellToClose, models.ActionBuyToClose:
		m.close(g, ev)
	case models.ActionExpired, models.ActionAssigned, models.ActionCashSettledAssigned,
		models.ActionCashSettledExercised, models.ActionExercised:
		m.terminal(g, ev)
	default:
		return fmt.Errorf("lot matcher: unhandled action %q (movement %s)", ev.action, ev.movementID)
	}
	return nil
}

func (m *Matcher) group(ev event) *group {
	g, ok := m.groups[ev.key]
	if !ok {
		g = &group{key: ev.key, currency: ev.currency, expiration: ev.expiration}
		m.groups[ev.key] = g
		m.order = append(m.order, ev.key)
	}
	return g
}

func (m *Matcher) open(g *group, ev event, dir Direction) {
	g.lots = append(g.lots, Lot{
		MovementID: ev.movementID,
		Direction:  dir,
		Quantity:   ev.quantity,
		Net:        ev.net,
		OpenedAt:   ev.timestamp,
	})
}

// close consumes the oldest lots first, matching min(remaining, lot
// quantity) and realizing (closing proceeds − opening cost) for the
// matched quantity with charges allocated proportionally on both sides.
func (m *Matcher) close(g *group, ev event) {
	remaining := ev.quantity
	remainingNet := ev.net

	for remaining.IsPositive() && len(g.lots) > 0 {
		lot := &g.lots[0]
		matched := decimal.Min(remaining, lot.Quantity)

		// Opening-side allocation: the last match against a lot takes the
		// lot's whole remaining net so the parts sum exactly.
		var openAlloc decimal.Decimal
		if matched.Equal(lot.Quantity) {
			openAlloc = lot.Net
		} else {
			openAlloc = lot.Net.Mul(matched).Div(lot.Quantity)
		}

		// Closing-side allocation, same remainder rule.
		var closeAlloc decimal.Decimal
		if matched.Equal(remaining) {
			closeAlloc = remainingNet
		} else {
			closeAlloc = remainingNet.Mul(matched).Div(remaining)
		}

		g.realized = g.realized.Add(openAlloc).Add(closeAlloc)
		g.closedBasis = g.closedBasis.Add(openAlloc.Abs())

		lot.Quantity = lot.Quantity.Sub(matched)
		lot.Net = lot.Net.Sub(openAlloc)
		remaining = remaining.Sub(matched)
		remainingNet = remainingNet.Sub(closeAlloc)

		if lot.Quantity.IsZero() {
			g.lots = g.lots[1:]
		}
	}

	if remaining.IsPositive() {
		m.warnings = append(m.warnings, fmt.Sprintf(
			"movement %s: closing %s %s with no matching open lot",
			ev.movementID, remaining, g.key.Ticker))
	}
}

// terminal retires exactly one lot in full: a short open keeps its premium
// as gain, a long open loses its cost.
func (m *Matcher) terminal(g *group, ev event) {
	if len(g.lots) == 0 {
		m.warnings = append(m.warnings, fmt.Sprintf(
			"movement %s: %s on %s with no open lot", ev.movementID, ev.action, g.key.Ticker))
		return
	}
	lot := g.lots[0]
	g.lots = g.lots[1:]

	// Any cash settled alongside the terminal event (e.g. cash-settled
	// exercise) is part of the realized result too.
	g.realized = g.realized.Add(lot.Net).Add(ev.net)
	g.closedBasis = g.closedBasis.Add(lot.Net.Abs())
}

// Warnings returns accumulated non-fatal anomalies (unmatched closes and
// terminals) in arrival order.
func (m *Matcher) Warnings() []string { return m.warnings }

// GroupResult is the per-position outcome of matching.
type GroupResult struct {
	Key           PositionKey
	Currency      string
	Realized      decimal.Decimal
	RealizedPct   decimal.Decimal
	Unrealized    decimal.Decimal
	UnrealizedPct decimal.Decimal
	Invested      decimal.Decimal
	Commissions   decimal.Decimal
	Fees          decimal.Decimal
	OpenQuantity  decimal.Decimal
	Open          bool
	OpenLots      []Lot
}

// Results returns one result per position group, ordered by first
// appearance.
//
// Unrealized totals cover only groups whose expiration is on or after
// refDate: an expired-but-unprocessed lot is excluded from unrealized and
// is NOT converted into realized gains here; realization of an expired
// lot happens only through an explicit terminal movement.
func (m *Matcher) Results(refDate time.Time) []GroupResult {
	hundred := decimal.NewFromInt(100)
	results := make([]GroupResult, 0, len(m.order))

	for _, key := range m.order {
		g := m.groups[key]
		r := GroupResult{
			Key:         key,
			Currency:    g.currency,
			Realized:    g.realized,
			Commissions: g.commissions,
			Fees:        g.fees,
		}

		expired := g.expiration != nil && g.expiration.Before(truncateToDate(refDate))
		for _, lot := range g.lots {
			r.OpenQuantity = r.OpenQuantity.Add(lot.Quantity)
			if !expired {
				r.Unrealized = r.Unrealized.Add(lot.Net)
			}
			if lot.Direction == Long {
				r.Invested = r.Invested.Add(lot.Net.Neg())
			}
		}
		r.Open = len(g.lots) > 0
		r.OpenLots = append([]Lot(nil), g.lots...)

		if g.closedBasis.IsPositive() {
			r.RealizedPct = g.realized.Div(g.closedBasis).Mul(hundred)
		}
		if r.Invested.IsPositive() {
			r.UnrealizedPct = r.Unrealized.Div(r.Invested).Mul(hundred)
		}

		results = append(results, r)
	}
	return results
}

func truncateToDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
