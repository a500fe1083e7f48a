package importer

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// FileInfo identifies the imported file on the session record.
type FileInfo struct {
	Name string
	Path string
	Hash string
}

// movementFile is the on-disk JSON shape produced by the out-of-scope
// format parsers: already-decoded domain movements, not broker rows.
type movementFile struct {
	AccountID       string              `json:"account_id"`
	Trades          []tradeRow          `json:"trades"`
	OptionTrades    []optionTradeRow    `json:"option_trades"`
	BrokerMovements []brokerMovementRow `json:"broker_movements"`
	Dividends       []dividendRow       `json:"dividends"`
	DividendTaxes   []dividendRow       `json:"dividend_taxes"`
}

type tradeRow struct {
	ID         string          `json:"id"`
	Ticker     string          `json:"ticker"`
	Action     string          `json:"action"`
	Quantity   decimal.Decimal `json:"quantity"`
	Amount     decimal.Decimal `json:"amount"`
	Commission decimal.Decimal `json:"commission"`
	Fees       decimal.Decimal `json:"fees"`
	Currency   string          `json:"currency"`
	Timestamp  time.Time       `json:"timestamp"`
}

type optionTradeRow struct {
	tradeRow
	OptionType string          `json:"option_type"`
	Strike     decimal.Decimal `json:"strike"`
	Expiration string          `json:"expiration"` // YYYY-MM-DD
}

type brokerMovementRow struct {
	ID             string           `json:"id"`
	Type           string           `json:"type"`
	Amount         decimal.Decimal  `json:"amount"`
	Currency       string           `json:"currency"`
	SourceCurrency string           `json:"source_currency"`
	AmountChanged  *decimal.Decimal `json:"amount_changed"`
	Description    string           `json:"description"`
	Timestamp      time.Time        `json:"timestamp"`
}

type dividendRow struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency"`
	Timestamp time.Time       `json:"timestamp"`
}

// LoadMovementFile reads a movement JSON file, returning the decoded set,
// the declared account id and the file identity (name, path, sha256).
func LoadMovementFile(path string) (models.MovementSet, string, FileInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.MovementSet{}, "", FileInfo{}, fmt.Errorf("read movement file: %w", err)
	}

	var file movementFile
	if err := json.Unmarshal(data, &file); err != nil {
		return models.MovementSet{}, "", FileInfo{}, fmt.Errorf("decode movement file: %w", err)
	}

	sum := sha256.Sum256(data)
	info := FileInfo{
		Name: filepath.Base(path),
		Path: path,
		Hash: hex.EncodeToString(sum[:]),
	}

	var set models.MovementSet
	for _, r := range file.Trades {
		set.Trades = append(set.Trades, models.Trade{
			ID:         r.ID,
			Ticker:     r.Ticker,
			Action:     models.TradeAction(r.Action),
			Quantity:   r.Quantity,
			Amount:     r.Amount,
			Commission: r.Commission,
			Fees:       r.Fees,
			Currency:   r.Currency,
			Timestamp:  r.Timestamp,
		})
	}
	for _, r := range file.OptionTrades {
		var exp time.Time
		if r.Expiration != "" {
			exp, err = time.Parse("2006-01-02", r.Expiration)
			if err != nil {
				return models.MovementSet{}, "", FileInfo{}, fmt.Errorf("option trade %s: invalid expiration %q", r.Ticker, r.Expiration)
			}
		}
		set.OptionTrades = append(set.OptionTrades, models.OptionTrade{
			ID:         r.ID,
			Ticker:     r.Ticker,
			OptionType: models.OptionType(r.OptionType),
			Strike:     r.Strike,
			Expiration: exp,
			Action:     models.TradeAction(r.Action),
			Quantity:   r.Quantity,
			Amount:     r.Amount,
			Commission: r.Commission,
			Fees:       r.Fees,
			Currency:   r.Currency,
			Timestamp:  r.Timestamp,
		})
	}
	for _, r := range file.BrokerMovements {
		set.BrokerMovements = append(set.BrokerMovements, models.BrokerMovement{
			ID:             r.ID,
			Type:           models.BrokerMovementType(r.Type),
			Amount:         r.Amount,
			Currency:       r.Currency,
			SourceCurrency: r.SourceCurrency,
			AmountChanged:  r.AmountChanged,
			Description:    r.Description,
			Timestamp:      r.Timestamp,
		})
	}
	for _, r := range file.Dividends {
		set.Dividends = append(set.Dividends, models.Dividend{
			ID: r.ID, Ticker: r.Ticker, Amount: r.Amount, Currency: r.Currency, Timestamp: r.Timestamp,
		})
	}
	for _, r := range file.DividendTaxes {
		set.DividendTaxes = append(set.DividendTaxes, models.DividendTax{
			ID: r.ID, Ticker: r.Ticker, Amount: r.Amount, Currency: r.Currency, Timestamp: r.Timestamp,
		})
	}

	return set, file.AccountID, info, nil
}
