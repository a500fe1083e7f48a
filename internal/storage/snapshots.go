package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/guttosm/foliopulse/internal/domain/models"
)

// ErrSnapshotNotFound is returned when no snapshot matches the query.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotRepository persists per-entity daily snapshots. Rows are keyed
// (scope, entity_key, snapshot_date) and upserted: recomputing a window
// overwrites, never duplicates.
type SnapshotRepository interface {
	UpsertSnapshotsTx(tx *sql.Tx, snapshots []models.Snapshot) error
	GetLatestSnapshot(scope models.SnapshotScope, entityKey string) (*models.Snapshot, error)
	ListSnapshots(scope models.SnapshotScope, entityKey string, from, to *time.Time) ([]models.Snapshot, error)
}

type snapshotRepository struct {
	db *sql.DB
}

// NewSnapshotRepository returns a Postgres-backed SnapshotRepository.
func NewSnapshotRepository(db *sql.DB) SnapshotRepository {
	return &snapshotRepository{db: db}
}

const upsertSnapshotQuery = `
	INSERT INTO snapshots (
		scope, entity_key, snapshot_date,
		invested, realized_gains, realized_pct,
		unrealized_gains, unrealized_pct,
		commissions, fees, dividends, options_income, other_income,
		deposited, withdrawn, open_trade
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (scope, entity_key, snapshot_date)
	DO UPDATE SET
		invested = EXCLUDED.invested,
		realized_gains = EXCLUDED.realized_gains,
		realized_pct = EXCLUDED.realized_pct,
		unrealized_gains = EXCLUDED.unrealized_gains,
		unrealized_pct = EXCLUDED.unrealized_pct,
		commissions = EXCLUDED.commissions,
		fees = EXCLUDED.fees,
		dividends = EXCLUDED.dividends,
		options_income = EXCLUDED.options_income,
		other_income = EXCLUDED.other_income,
		deposited = EXCLUDED.deposited,
		withdrawn = EXCLUDED.withdrawn,
		open_trade = EXCLUDED.open_trade`

// UpsertSnapshotsTx writes the chunk's snapshot rows inside the caller's
// transaction (the same one holding the chunk's movement rows).
func (r *snapshotRepository) UpsertSnapshotsTx(tx *sql.Tx, snapshots []models.Snapshot) error {
	for _, s := range snapshots {
		_, err := tx.Exec(upsertSnapshotQuery,
			string(s.Scope), s.EntityKey, s.Date,
			s.Invested.String(), s.RealizedGains.String(), s.RealizedPct.String(),
			s.UnrealizedGains.String(), s.UnrealizedPct.String(),
			s.Commissions.String(), s.Fees.String(), s.Dividends.String(),
			s.OptionsIncome.String(), s.OtherIncome.String(),
			s.Deposited.String(), s.Withdrawn.String(), s.OpenTrade,
		)
		if err != nil {
			return fmt.Errorf("upsert snapshot %s/%s@%s: %w",
				s.Scope, s.EntityKey, s.Date.Format("2006-01-02"), err)
		}
	}
	return nil
}

const snapshotColumns = `
	scope, entity_key, snapshot_date,
	invested, realized_gains, realized_pct,
	unrealized_gains, unrealized_pct,
	commissions, fees, dividends, options_income, other_income,
	deposited, withdrawn, open_trade`

// GetLatestSnapshot returns the most recent snapshot for the entity, or
// ErrSnapshotNotFound.
func (r *snapshotRepository) GetLatestSnapshot(scope models.SnapshotScope, entityKey string) (*models.Snapshot, error) {
	row := r.db.QueryRow(`
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE scope = $1 AND entity_key = $2
		ORDER BY snapshot_date DESC
		LIMIT 1`,
		string(scope), entityKey)
	s, err := scanSnapshot(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListSnapshots returns snapshots for an entity ordered by date, bounded
// by the optional from/to dates (inclusive).
func (r *snapshotRepository) ListSnapshots(scope models.SnapshotScope, entityKey string, from, to *time.Time) ([]models.Snapshot, error) {
	conditions := "scope = $1 AND entity_key = $2"
	args := []interface{}{string(scope), entityKey}
	if from != nil {
		args = append(args, *from)
		conditions += fmt.Sprintf(" AND snapshot_date >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		conditions += fmt.Sprintf(" AND snapshot_date <= $%d", len(args))
	}

	rows, err := r.db.Query(`
		SELECT `+snapshotColumns+`
		FROM snapshots
		WHERE `+conditions+`
		ORDER BY snapshot_date ASC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Snapshot
	for rows.Next() {
		s, err := scanSnapshot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func scanSnapshot(scan func(...interface{}) error) (*models.Snapshot, error) {
	var s models.Snapshot
	var scope string
	var invested, realized, realizedPct, unrealized, unrealizedPct sql.NullString
	var commissions, fees, dividends, optionsIncome, otherIncome sql.NullString
	var deposited, withdrawn sql.NullString

	err := scan(&scope, &s.EntityKey, &s.Date,
		&invested, &realized, &realizedPct,
		&unrealized, &unrealizedPct,
		&commissions, &fees, &dividends, &optionsIncome, &otherIncome,
		&deposited, &withdrawn, &s.OpenTrade)
	if err != nil {
		return nil, err
	}

	s.Scope = models.SnapshotScope(scope)
	s.Invested = mustDecimal(invested)
	s.RealizedGains = mustDecimal(realized)
	s.RealizedPct = mustDecimal(realizedPct)
	s.UnrealizedGains = mustDecimal(unrealized)
	s.UnrealizedPct = mustDecimal(unrealizedPct)
	s.Commissions = mustDecimal(commissions)
	s.Fees = mustDecimal(fees)
	s.Dividends = mustDecimal(dividends)
	s.OptionsIncome = mustDecimal(optionsIncome)
	s.OtherIncome = mustDecimal(otherIncome)
	s.Deposited = mustDecimal(deposited)
	s.Withdrawn = mustDecimal(withdrawn)
	return &s, nil
}
