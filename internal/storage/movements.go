package storage

import (
	"database/sql"
	"fmt"
	"time"

	pq "github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// MovementRepository writes and reads ledger rows (one row per input
// movement, all kinds in a single movements table).
//
// Chunk writes go through InsertMovementsTx on a caller-owned transaction:
// the importer holds one transaction per chunk so either every row of the
// chunk is visible or none is.
type MovementRepository interface {
	InsertMovementsTx(tx *sql.Tx, set models.MovementSet) (int, error)
	ListMovementsByAccount(accountID string, before time.Time) (models.MovementSet, error)
	CountMovementsByAccount(accountID string) (int, error)
}

type movementRepository struct {
	db *sql.DB
}

// NewMovementRepository returns a Postgres-backed MovementRepository.
func NewMovementRepository(db *sql.DB) MovementRepository {
	return &movementRepository{db: db}
}

var movementColumns = []string{
	"id",
	"account_id",
	"kind",
	"ticker",
	"action",
	"option_type",
	"strike",
	"expiration",
	"quantity",
	"amount",
	"commission",
	"fees",
	"currency",
	"source_currency",
	"amount_changed",
	"movement_type",
	"description",
	"ts",
	"created_at",
	"updated_at",
}

// InsertMovementsTx streams every movement of the set through COPY inside
// the given transaction. No ordering across movement kinds is guaranteed.
func (r *movementRepository) InsertMovementsTx(tx *sql.Tx, set models.MovementSet) (int, error) {
	if set.Len() == 0 {
		return 0, nil
	}

	stmt, err := tx.Prepare(pq.CopyIn("movements", movementColumns...))
	if err != nil {
		return 0, fmt.Errorf("prepare copy: %w", err)
	}

	total := 0
	exec := func(args ...interface{}) error {
		if _, err := stmt.Exec(args...); err != nil {
			return err
		}
		total++
		return nil
	}

	for _, t := range set.Trades {
		if err := exec(
			t.ID, t.AccountID, string(models.KindTrade),
			t.Ticker, string(t.Action), nil, nil, nil,
			t.Quantity.String(), t.Amount.String(), t.Commission.String(), t.Fees.String(),
			t.Currency, nil, nil, nil, nil,
			t.Timestamp, nullTime(t.CreatedAt), nullTime(t.UpdatedAt),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy trade %s: %w", t.ID, err)
		}
	}
	for _, t := range set.OptionTrades {
		if err := exec(
			t.ID, t.AccountID, string(models.KindOptionTrade),
			t.Ticker, string(t.Action), string(t.OptionType), t.Strike.String(), t.Expiration,
			t.Quantity.String(), t.Amount.String(), t.Commission.String(), t.Fees.String(),
			t.Currency, nil, nil, nil, nil,
			t.Timestamp, nullTime(t.CreatedAt), nullTime(t.UpdatedAt),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy option trade %s: %w", t.ID, err)
		}
	}
	for _, b := range set.BrokerMovements {
		var changed interface{}
		if b.AmountChanged != nil {
			changed = b.AmountChanged.String()
		}
		if err := exec(
			b.ID, b.AccountID, string(models.KindBrokerMovement),
			nil, nil, nil, nil, nil,
			nil, b.Amount.String(), nil, nil,
			b.Currency, nullString(b.SourceCurrency), changed, string(b.Type), nullString(b.Description),
			b.Timestamp, nullTime(b.CreatedAt), nullTime(b.UpdatedAt),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy broker movement %s: %w", b.ID, err)
		}
	}
	for _, d := range set.Dividends {
		if err := exec(
			d.ID, d.AccountID, string(models.KindDividend),
			d.Ticker, nil, nil, nil, nil,
			nil, d.Amount.String(), nil, nil,
			d.Currency, nil, nil, nil, nil,
			d.Timestamp, nullTime(d.CreatedAt), nullTime(d.UpdatedAt),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy dividend %s: %w", d.ID, err)
		}
	}
	for _, d := range set.DividendTaxes {
		if err := exec(
			d.ID, d.AccountID, string(models.KindDividendTax),
			d.Ticker, nil, nil, nil, nil,
			nil, d.Amount.String(), nil, nil,
			d.Currency, nil, nil, nil, nil,
			d.Timestamp, nullTime(d.CreatedAt), nullTime(d.UpdatedAt),
		); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("copy dividend tax %s: %w", d.ID, err)
		}
	}

	// Flush the COPY buffer.
	if _, err := stmt.Exec(); err != nil {
		_ = stmt.Close()
		return 0, fmt.Errorf("flush copy: %w", err)
	}
	if err := stmt.Close(); err != nil {
		return 0, fmt.Errorf("close copy: %w", err)
	}
	return total, nil
}

// ListMovementsByAccount returns every persisted movement for the account
// with timestamp strictly before the given date, ordered by timestamp.
// Used on resume to rebuild the matcher state of completed chunks.
func (r *movementRepository) ListMovementsByAccount(accountID string, before time.Time) (models.MovementSet, error) {
	rows, err := r.db.Query(`
		SELECT id, kind, ticker, action, option_type, strike, expiration,
		       quantity, amount, commission, fees,
		       currency, source_currency, amount_changed, movement_type, description, ts
		FROM movements
		WHERE account_id = $1 AND ts < $2
		ORDER BY ts ASC`,
		accountID, before)
	if err != nil {
		return models.MovementSet{}, fmt.Errorf("list movements: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var set models.MovementSet
	for rows.Next() {
		var (
			id, kind                                       string
			ticker, action, optionType, strike             sql.NullString
			expiration                                     sql.NullTime
			quantity, amount, commission, fees             sql.NullString
			currency                                       string
			sourceCurrency, amountChanged, mvType, descr   sql.NullString
			ts                                             time.Time
		)
		if err := rows.Scan(&id, &kind, &ticker, &action, &optionType, &strike, &expiration,
			&quantity, &amount, &commission, &fees,
			&currency, &sourceCurrency, &amountChanged, &mvType, &descr, &ts); err != nil {
			return models.MovementSet{}, fmt.Errorf("scan movement: %w", err)
		}

		switch models.MovementKind(kind) {
		case models.KindTrade:
			set.Trades = append(set.Trades, models.Trade{
				ID:         id,
				AccountID:  accountID,
				Ticker:     ticker.String,
				Action:     models.TradeAction(action.String),
				Quantity:   mustDecimal(quantity),
				Amount:     mustDecimal(amount),
				Commission: mustDecimal(commission),
				Fees:       mustDecimal(fees),
				Currency:   currency,
				Timestamp:  ts,
			})
		case models.KindOptionTrade:
			var exp time.Time
			if expiration.Valid {
				exp = expiration.Time
			}
			set.OptionTrades = append(set.OptionTrades, models.OptionTrade{
				ID:         id,
				AccountID:  accountID,
				Ticker:     ticker.String,
				OptionType: models.OptionType(optionType.String),
				Strike:     mustDecimal(strike),
				Expiration: exp,
				Action:     models.TradeAction(action.String),
				Quantity:   mustDecimal(quantity),
				Amount:     mustDecimal(amount),
				Commission: mustDecimal(commission),
				Fees:       mustDecimal(fees),
				Currency:   currency,
				Timestamp:  ts,
			})
		case models.KindBrokerMovement:
			var changed *decimal.Decimal
			if amountChanged.Valid {
				d := mustDecimal(amountChanged)
				changed = &d
			}
			set.BrokerMovements = append(set.BrokerMovements, models.BrokerMovement{
				ID:             id,
				AccountID:      accountID,
				Type:           models.BrokerMovementType(mvType.String),
				Amount:         mustDecimal(amount),
				Currency:       currency,
				SourceCurrency: sourceCurrency.String,
				AmountChanged:  changed,
				Description:    descr.String,
				Timestamp:      ts,
			})
		case models.KindDividend:
			set.Dividends = append(set.Dividends, models.Dividend{
				ID: id, AccountID: accountID, Ticker: ticker.String,
				Amount: mustDecimal(amount), Currency: currency, Timestamp: ts,
			})
		case models.KindDividendTax:
			set.DividendTaxes = append(set.DividendTaxes, models.DividendTax{
				ID: id, AccountID: accountID, Ticker: ticker.String,
				Amount: mustDecimal(amount), Currency: currency, Timestamp: ts,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return models.MovementSet{}, fmt.Errorf("iterate movements: %w", err)
	}
	return set, nil
}

// CountMovementsByAccount returns the total number of ledger rows for an
// account.
func (r *movementRepository) CountMovementsByAccount(accountID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM movements WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

func mustDecimal(s sql.NullString) decimal.Decimal {
	if !s.Valid || s.String == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func nullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return *t
}

func nullString(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
