package models

import "fmt"

// TradeAction is the closed set of action codes carried by trade and
// option-trade movements. The lot-matching engine switches exhaustively
// over these values; an unknown code must be rejected at validation time,
// never silently ignored, since a skipped action corrupts gain totals.
type TradeAction string

const (
	ActionBuyToOpen            TradeAction = "BUY_TO_OPEN"
	ActionSellToOpen           TradeAction = "SELL_TO_OPEN"
	ActionBuyToClose           TradeAction = "BUY_TO_CLOSE"
	ActionSellToClose          TradeAction = "SELL_TO_CLOSE"
	ActionExpired              TradeAction = "EXPIRED"
	ActionAssigned             TradeAction = "ASSIGNED"
	ActionCashSettledAssigned  TradeAction = "CASH_SETTLED_ASSIGNED"
	ActionCashSettledExercised TradeAction = "CASH_SETTLED_EXERCISED"
	ActionExercised            TradeAction = "EXERCISED"
)

// ParseTradeAction maps a raw action code to a TradeAction.
func ParseTradeAction(s string) (TradeAction, error) {
	a := TradeAction(s)
	if !a.Valid() {
		return "", fmt.Errorf("unknown trade action %q", s)
	}
	return a, nil
}

// Valid reports whether the action is a member of the closed set.
func (a TradeAction) Valid() bool {
	switch a {
	case ActionBuyToOpen, ActionSellToOpen, ActionBuyToClose, ActionSellToClose,
		ActionExpired, ActionAssigned, ActionCashSettledAssigned,
		ActionCashSettledExercised, ActionExercised:
		return true
	}
	return false
}

// IsOpening reports whether the action creates a new lot.
func (a TradeAction) IsOpening() bool {
	return a == ActionBuyToOpen || a == ActionSellToOpen
}

// IsClosing reports whether the action consumes open lots by quantity.
func (a TradeAction) IsClosing() bool {
	return a == ActionBuyToClose || a == ActionSellToClose
}

// IsTerminal reports whether the action retires exactly one lot in full
// (expiration, assignment or exercise of an option contract).
func (a TradeAction) IsTerminal() bool {
	switch a {
	case ActionExpired, ActionAssigned, ActionCashSettledAssigned,
		ActionCashSettledExercised, ActionExercised:
		return true
	}
	return false
}

// BrokerMovementType classifies broker cash movements for the
// cash-flow aggregator.
type BrokerMovementType string

const (
	MovementDeposit      BrokerMovementType = "DEPOSIT"
	MovementWithdrawal   BrokerMovementType = "WITHDRAWAL"
	MovementFee          BrokerMovementType = "FEE"
	MovementCommission   BrokerMovementType = "COMMISSION"
	MovementInterest     BrokerMovementType = "INTEREST"
	MovementLending      BrokerMovementType = "LENDING"
	MovementInterestPaid BrokerMovementType = "INTEREST_PAID"
	MovementConversion   BrokerMovementType = "CURRENCY_CONVERSION"
)

// ParseBrokerMovementType maps a raw movement type code to a BrokerMovementType.
func ParseBrokerMovementType(s string) (BrokerMovementType, error) {
	t := BrokerMovementType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown broker movement type %q", s)
	}
	return t, nil
}

// Valid reports whether the type is a member of the closed set.
func (t BrokerMovementType) Valid() bool {
	switch t {
	case MovementDeposit, MovementWithdrawal, MovementFee, MovementCommission,
		MovementInterest, MovementLending, MovementInterestPaid, MovementConversion:
		return true
	}
	return false
}

// OptionType distinguishes calls from puts in an option position key.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)
