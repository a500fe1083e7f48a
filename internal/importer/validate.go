package importer

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/guttosm/foliopulse/internal/domain/dto"
	"github.com/guttosm/foliopulse/internal/domain/models"
)

// Validate screens a parsed movement set row by row. Invalid rows are
// dropped and reported as non-fatal RowErrors; valid rows get a movement
// id assigned when the parser left it empty. The input set is never
// modified.
//
// Row numbers are 1-based over the concatenation trades, option trades,
// broker movements, dividends, dividend taxes (the order parsers emit).
func Validate(accountID string, set models.MovementSet) (models.MovementSet, []dto.RowError) {
	var clean models.MovementSet
	var rowErrors []dto.RowError
	row := 0

	reject := func(msg, raw string) {
		rowErrors = append(rowErrors, dto.RowError{
			Row:     row,
			Message: msg,
			Kind:    dto.RowErrorValidation,
			Raw:     raw,
		})
	}

	for _, t := range set.Trades {
		row++
		raw := fmt.Sprintf("trade %s %s x%s", t.Ticker, t.Action, t.Quantity)
		switch {
		case t.Ticker == "":
			reject("trade missing ticker", raw)
		case !t.Action.Valid():
			reject(fmt.Sprintf("unknown trade action %q", string(t.Action)), raw)
		case t.Action.IsTerminal():
			reject(fmt.Sprintf("action %s not valid for equity trades", t.Action), raw)
		case !t.Quantity.IsPositive():
			reject("trade quantity must be positive", raw)
		case t.Currency == "":
			reject("trade missing currency", raw)
		case t.Timestamp.IsZero():
			reject("trade missing timestamp", raw)
		default:
			t.AccountID = accountID
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			clean.Trades = append(clean.Trades, t)
		}
	}

	for _, t := range set.OptionTrades {
		row++
		raw := fmt.Sprintf("option %s %s %s %s x%s", t.Ticker, t.OptionType, t.Strike, t.Action, t.Quantity)
		switch {
		case t.Ticker == "":
			reject("option trade missing ticker", raw)
		case !t.Action.Valid():
			reject(fmt.Sprintf("unknown trade action %q", string(t.Action)), raw)
		case t.OptionType != models.OptionCall && t.OptionType != models.OptionPut:
			reject(fmt.Sprintf("unknown option type %q", string(t.OptionType)), raw)
		case t.Expiration.IsZero():
			reject("option trade missing expiration", raw)
		case !t.Quantity.IsPositive():
			reject("option quantity must be positive", raw)
		case t.Currency == "":
			reject("option trade missing currency", raw)
		case t.Timestamp.IsZero():
			reject("option trade missing timestamp", raw)
		default:
			t.AccountID = accountID
			if t.ID == "" {
				t.ID = uuid.NewString()
			}
			clean.OptionTrades = append(clean.OptionTrades, t)
		}
	}

	for _, b := range set.BrokerMovements {
		row++
		raw := fmt.Sprintf("broker movement %s %s %s", b.Type, b.Amount, b.Currency)
		switch {
		case !b.Type.Valid():
			reject(fmt.Sprintf("unknown broker movement type %q", string(b.Type)), raw)
		case b.Currency == "":
			reject("broker movement missing currency", raw)
		case b.Timestamp.IsZero():
			reject("broker movement missing timestamp", raw)
		case b.Type == models.MovementConversion && b.SourceCurrency == "":
			reject("currency conversion missing source currency", raw)
		default:
			b.AccountID = accountID
			if b.ID == "" {
				b.ID = uuid.NewString()
			}
			clean.BrokerMovements = append(clean.BrokerMovements, b)
		}
	}

	for _, d := range set.Dividends {
		row++
		raw := fmt.Sprintf("dividend %s %s %s", d.Ticker, d.Amount, d.Currency)
		switch {
		case d.Ticker == "":
			reject("dividend missing ticker", raw)
		case d.Currency == "":
			reject("dividend missing currency", raw)
		case d.Timestamp.IsZero():
			reject("dividend missing timestamp", raw)
		default:
			d.AccountID = accountID
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			clean.Dividends = append(clean.Dividends, d)
		}
	}

	for _, d := range set.DividendTaxes {
		row++
		raw := fmt.Sprintf("dividend tax %s %s %s", d.Ticker, d.Amount, d.Currency)
		switch {
		case d.Ticker == "":
			reject("dividend tax missing ticker", raw)
		case d.Currency == "":
			reject("dividend tax missing currency", raw)
		case d.Timestamp.IsZero():
			reject("dividend tax missing timestamp", raw)
		default:
			d.AccountID = accountID
			if d.ID == "" {
				d.ID = uuid.NewString()
			}
			clean.DividendTaxes = append(clean.DividendTaxes, d)
		}
	}

	return clean, rowErrors
}
