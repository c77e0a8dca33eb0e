// Package postgres provides the SQL adapter backed by PostgreSQL via
// pgx. Gate state is stored row-per-value in flipper_gates: scalar gates
// hold one row per feature, set gates one row per element. Feature
// registration lives in flipper_features.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/larouxn/flipper"
)

var _ flipper.Adapter = (*Adapter)(nil)
var _ flipper.Pinger = (*Adapter)(nil)

// Adapter implements the storage contract on a pgx connection pool.
type Adapter struct {
	db *pgxpool.Pool
}

// New wraps an existing pool. The adapter does not own the pool; the
// caller manages its lifecycle.
func New(db *pgxpool.Pool) *Adapter {
	if db == nil {
		panic("postgres adapter: pool cannot be nil")
	}
	return &Adapter{db: db}
}

// Name implements flipper.Adapter.
func (a *Adapter) Name() string { return "postgres" }

// Ping implements flipper.Pinger.
func (a *Adapter) Ping(ctx context.Context) error {
	return a.db.Ping(ctx)
}

// Features implements flipper.Adapter.
func (a *Adapter) Features(ctx context.Context) ([]string, error) {
	rows, err := a.db.Query(ctx, `SELECT key FROM flipper_features`)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: features: %w", err)
	}
	defer rows.Close()

	var features []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgres adapter: scan feature: %w", err)
		}
		features = append(features, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres adapter: features rows: %w", err)
	}
	return features, nil
}

// Add implements flipper.Adapter.
func (a *Adapter) Add(ctx context.Context, feature string) error {
	_, err := a.db.Exec(ctx,
		`INSERT INTO flipper_features (key) VALUES ($1) ON CONFLICT (key) DO NOTHING`,
		feature,
	)
	if err != nil {
		return fmt.Errorf("postgres adapter: add %q: %w", feature, err)
	}
	return nil
}

// Remove implements flipper.Adapter.
func (a *Adapter) Remove(ctx context.Context, feature string) error {
	return a.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM flipper_gates WHERE feature_key = $1`, feature); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM flipper_features WHERE key = $1`, feature)
		return err
	})
}

// Clear implements flipper.Adapter.
func (a *Adapter) Clear(ctx context.Context, feature string) error {
	if _, err := a.db.Exec(ctx, `DELETE FROM flipper_gates WHERE feature_key = $1`, feature); err != nil {
		return fmt.Errorf("postgres adapter: clear %q: %w", feature, err)
	}
	return nil
}

// Get implements flipper.Adapter.
func (a *Adapter) Get(ctx context.Context, feature string) (*flipper.GateValues, error) {
	rows, err := a.db.Query(ctx,
		`SELECT key, value FROM flipper_gates WHERE feature_key = $1`,
		feature,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: get %q: %w", feature, err)
	}
	defer rows.Close()

	entries, err := scanEntries(rows, nil)
	if err != nil {
		return nil, err
	}
	return flipper.GateValuesFromStored(entries), nil
}

// GetMulti implements flipper.Adapter.
func (a *Adapter) GetMulti(ctx context.Context, features []string) (map[string]*flipper.GateValues, error) {
	out := make(map[string]*flipper.GateValues, len(features))
	for _, feature := range features {
		out[feature] = flipper.NewGateValues()
	}

	rows, err := a.db.Query(ctx,
		`SELECT feature_key, key, value FROM flipper_gates WHERE feature_key = ANY($1)`,
		features,
	)
	if err != nil {
		return nil, fmt.Errorf("postgres adapter: get multi: %w", err)
	}
	defer rows.Close()

	perFeature := map[string][]flipper.StoredValue{}
	for rows.Next() {
		var featureKey, key, value string
		if err := rows.Scan(&featureKey, &key, &value); err != nil {
			return nil, fmt.Errorf("postgres adapter: scan gate: %w", err)
		}
		perFeature[featureKey] = append(perFeature[featureKey], flipper.StoredValue{
			Gate:  flipper.GateName(key),
			Value: value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres adapter: get multi rows: %w", err)
	}

	for feature, entries := range perFeature {
		out[feature] = flipper.GateValuesFromStored(entries)
	}
	return out, nil
}

// GetAll implements flipper.Adapter.
func (a *Adapter) GetAll(ctx context.Context) (map[string]*flipper.GateValues, error) {
	features, err := a.Features(ctx)
	if err != nil {
		return nil, err
	}
	return a.GetMulti(ctx, features)
}

// Enable implements flipper.Adapter.
func (a *Adapter) Enable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	var err error
	switch gate.DataType() {
	case flipper.DataTypeSet:
		_, err = a.db.Exec(ctx,
			`INSERT INTO flipper_gates (feature_key, key, value) VALUES ($1, $2, $3)
			 ON CONFLICT (feature_key, key, value) DO NOTHING`,
			feature, string(gate.Name()), value,
		)
	default:
		// Scalar gates keep the most recent write: drop competing rows,
		// then insert idempotently so concurrent same-value writes
		// cannot collide on the primary key.
		err = a.inTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx,
				`DELETE FROM flipper_gates WHERE feature_key = $1 AND key = $2 AND value <> $3`,
				feature, string(gate.Name()), value,
			); err != nil {
				return err
			}
			_, err := tx.Exec(ctx,
				`INSERT INTO flipper_gates (feature_key, key, value) VALUES ($1, $2, $3)
				 ON CONFLICT (feature_key, key, value) DO NOTHING`,
				feature, string(gate.Name()), value,
			)
			return err
		})
	}
	if err != nil {
		return fmt.Errorf("postgres adapter: enable %q/%s: %w", feature, gate.Name(), err)
	}
	return nil
}

// Disable implements flipper.Adapter.
func (a *Adapter) Disable(ctx context.Context, feature string, gate flipper.Gate, value string) error {
	var err error
	switch gate.DataType() {
	case flipper.DataTypeBoolean:
		err = a.Clear(ctx, feature)
	case flipper.DataTypeSet:
		_, err = a.db.Exec(ctx,
			`DELETE FROM flipper_gates WHERE feature_key = $1 AND key = $2 AND value = $3`,
			feature, string(gate.Name()), value,
		)
	case flipper.DataTypeInteger:
		return a.Enable(ctx, feature, gate, value)
	case flipper.DataTypeJSON:
		_, err = a.db.Exec(ctx,
			`DELETE FROM flipper_gates WHERE feature_key = $1 AND key = $2`,
			feature, string(gate.Name()),
		)
	}
	if err != nil {
		return fmt.Errorf("postgres adapter: disable %q/%s: %w", feature, gate.Name(), err)
	}
	return nil
}

// inTx runs fn inside a transaction with commit/rollback handling.
func (a *Adapter) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := a.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres adapter: begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return fmt.Errorf("postgres adapter: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres adapter: commit: %w", err)
	}
	return nil
}

func scanEntries(rows pgx.Rows, entries []flipper.StoredValue) ([]flipper.StoredValue, error) {
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("postgres adapter: scan gate: %w", err)
		}
		entries = append(entries, flipper.StoredValue{
			Gate:  flipper.GateName(key),
			Value: value,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres adapter: gate rows: %w", err)
	}
	return entries, nil
}
