package storage

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

func newMockMovementRepo(t *testing.T) (*movementRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo := &movementRepository{db: db}
	cleanup := func() { _ = db.Close() }
	return repo, mock, cleanup
}

func beginTx(t *testing.T, db *sql.DB) *sql.Tx {
	t.Helper()
	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func sampleSet() models.MovementSet {
	ts := time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	changed := decimal.RequireFromString("91.50")
	return models.MovementSet{
		Trades: []models.Trade{{
			ID: "t-1", AccountID: "acct-1", Ticker: "AAPL",
			Action:   models.ActionBuyToOpen,
			Quantity: decimal.NewFromInt(10), Amount: decimal.RequireFromString("-1500.00"),
			Commission: decimal.RequireFromString("1.00"), Fees: decimal.RequireFromString("0.50"),
			Currency: "USD", Timestamp: ts,
		}},
		OptionTrades: []models.OptionTrade{{
			ID: "o-1", AccountID: "acct-1", Ticker: "AAPL",
			OptionType: models.OptionCall, Strike: decimal.RequireFromString("150"),
			Expiration: ts.AddDate(0, 1, 0), Action: models.ActionSellToOpen,
			Quantity: decimal.NewFromInt(1), Amount: decimal.RequireFromString("200.00"),
			Commission: decimal.Zero, Fees: decimal.Zero,
			Currency: "USD", Timestamp: ts,
		}},
		BrokerMovements: []models.BrokerMovement{{
			ID: "b-1", AccountID: "acct-1", Type: models.MovementConversion,
			Amount: decimal.RequireFromString("100.00"), Currency: "USD",
			SourceCurrency: "EUR", AmountChanged: &changed, Timestamp: ts,
		}},
		Dividends: []models.Dividend{{
			ID: "d-1", AccountID: "acct-1", Ticker: "AAPL",
			Amount: decimal.RequireFromString("12.00"), Currency: "USD", Timestamp: ts,
		}},
		DividendTaxes: []models.DividendTax{{
			ID: "dt-1", AccountID: "acct-1", Ticker: "AAPL",
			Amount: decimal.RequireFromString("1.80"), Currency: "USD", Timestamp: ts,
		}},
	}
}

func TestInsertMovementsTx_SQLMock(t *testing.T) {
	repo, mock, done := newMockMovementRepo(t)
	defer done()

	set := sampleSet()

	mock.ExpectBegin()
	// pq.CopyIn cannot be intercepted precisely; allow any prepared
	// statement, one exec per movement plus the final flush exec.
	prep := mock.ExpectPrepare(".*")
	for i := 0; i < set.Len(); i++ {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectExec(".*").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	tx := beginTx(t, repo.db)
	n, err := repo.InsertMovementsTx(tx, set)
	if err != nil {
		t.Fatalf("InsertMovementsTx: %v", err)
	}
	if n != set.Len() {
		t.Fatalf("want %d inserted, got %d", set.Len(), n)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestInsertMovementsTx_EmptySetNoCopy(t *testing.T) {
	repo, mock, done := newMockMovementRepo(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectRollback()

	tx := beginTx(t, repo.db)
	n, err := repo.InsertMovementsTx(tx, models.MovementSet{})
	if err != nil || n != 0 {
		t.Fatalf("want 0,nil got n=%d err=%v", n, err)
	}
	_ = tx.Rollback()
}

func TestInsertMovementsTx_ErrorOnRowExec(t *testing.T) {
	repo, mock, done := newMockMovementRepo(t)
	defer done()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(".*")
	prep.ExpectExec().WillReturnError(dummyErr{})
	mock.ExpectRollback()

	tx := beginTx(t, repo.db)
	if _, err := repo.InsertMovementsTx(tx, sampleSet()); err == nil {
		t.Fatalf("expected error on row exec")
	}
	_ = tx.Rollback()
}

func TestListMovementsByAccount_SQLMock(t *testing.T) {
	repo, mock, done := newMockMovementRepo(t)
	defer done()

	ts := time.Date(2024, 1, 5, 14, 30, 0, 0, time.UTC)
	exp := time.Date(2024, 2, 16, 0, 0, 0, 0, time.UTC)
	cols := []string{
		"id", "kind", "ticker", "action", "option_type", "strike", "expiration",
		"quantity", "amount", "commission", "fees",
		"currency", "source_currency", "amount_changed", "movement_type", "description", "ts",
	}
	rows := sqlmock.NewRows(cols).
		AddRow("t-1", string(models.KindTrade), "AAPL", string(models.ActionBuyToOpen), nil, nil, nil,
			"10", "-1500.00", "1.00", "0.50", "USD", nil, nil, nil, nil, ts).
		AddRow("o-1", string(models.KindOptionTrade), "AAPL", string(models.ActionSellToOpen), string(models.OptionCall), "150", exp,
			"1", "200.00", "0", "0", "USD", nil, nil, nil, nil, ts).
		AddRow("b-1", string(models.KindBrokerMovement), nil, nil, nil, nil, nil,
			nil, "100.00", nil, nil, "USD", "EUR", "91.50", string(models.MovementConversion), "fx", ts)

	before := time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM movements").
		WithArgs("acct-1", before).
		WillReturnRows(rows)

	set, err := repo.ListMovementsByAccount("acct-1", before)
	if err != nil {
		t.Fatalf("ListMovementsByAccount: %v", err)
	}
	if len(set.Trades) != 1 || len(set.OptionTrades) != 1 || len(set.BrokerMovements) != 1 {
		t.Fatalf("unexpected set shape: %+v", set)
	}
	if !set.Trades[0].Quantity.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("trade quantity: %s", set.Trades[0].Quantity)
	}
	if set.OptionTrades[0].OptionType != models.OptionCall || !set.OptionTrades[0].Expiration.Equal(exp) {
		t.Fatalf("option trade: %+v", set.OptionTrades[0])
	}
	bm := set.BrokerMovements[0]
	if bm.SourceCurrency != "EUR" || bm.AmountChanged == nil || !bm.AmountChanged.Equal(decimal.RequireFromString("91.50")) {
		t.Fatalf("broker movement: %+v", bm)
	}
}

func TestListMovementsByAccount_NullAmountChanged(t *testing.T) {
	repo, mock, done := newMockMovementRepo(t)
	defer done()

	ts := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "kind", "ticker", "action", "option_type", "strike", "expiration",
		"quantity", "amount", "commission", "fees",
		"currency", "source_currency", "amount_changed", "movement_type", "description", "ts",
	}).AddRow("b-2", string(models.KindBrokerMovement), nil, nil, nil, nil, nil,
		nil, "50.00", nil, nil, "USD", "EUR", nil, string(models.MovementConversion), nil, ts)

	before := ts.AddDate(0, 0, 1)
	mock.ExpectQuery("SELECT (.+) FROM movements").
		WithArgs("acct-1", before).
		WillReturnRows(rows)

	set, err := repo.ListMovementsByAccount("acct-1", before)
	if err != nil {
		t.Fatalf("ListMovementsByAccount: %v", err)
	}
	// Absent amount_changed must stay absent, not become zero.
	if set.BrokerMovements[0].AmountChanged != nil {
		t.Fatalf("want nil AmountChanged, got %v", set.BrokerMovements[0].AmountChanged)
	}
}

func TestCountMovementsByAccount_SQLMock(t *testing.T) {
	repo, mock, done := newMockMovementRepo(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM movements WHERE account_id = $1")).
		WithArgs("acct-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	n, err := repo.CountMovementsByAccount("acct-1")
	if err != nil || n != 7 {
		t.Fatalf("CountMovementsByAccount: n=%d err=%v", n, err)
	}
}

func TestNewMovementRepository_Construct(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer func() { _ = db.Close() }()
	if NewMovementRepository(db) == nil {
		t.Fatalf("expected non-nil repository")
	}
}
