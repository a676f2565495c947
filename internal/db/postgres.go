package db

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rawblock/ordinal-engine/pkg/rangemanifest"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

// Connect initializes the connection pool to PostgreSQL using pgx
func Connect(connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping failed: %v", err)
	}

	log.Println("Successfully connected to PostgreSQL for ordinal index")
	return &PostgresStore{pool: pool}, nil
}

// Close gracefully closes the connection pool
func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// InitSchema loads and executes the schema.sql file
func (s *PostgresStore) InitSchema() error {
	schemaBytes, err := os.ReadFile("internal/db/schema.sql")
	if err != nil {
		return fmt.Errorf("failed to read schema file: %v", err)
	}

	_, err = s.pool.Exec(context.Background(), string(schemaBytes))
	if err != nil {
		return fmt.Errorf("failed to execute schema migrations: %v", err)
	}

	log.Println("Ordinal index schema initialized")
	return nil
}

// IndexedHeight returns the highest height for which output_ranges has been
// populated, or 0 if the index is empty. Mirrors the index's read surface
// over a height→block-hash table, scanned from the top down.
func (s *PostgresStore) IndexedHeight(ctx context.Context) (int64, error) {
	var height int64
	err := s.pool.QueryRow(ctx, `SELECT height FROM indexed_heights ORDER BY height DESC LIMIT 1`).Scan(&height)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}
	return height, nil
}

// SaveIndexedHeight records that height has been fully scanned and its
// output ranges committed.
func (s *PostgresStore) SaveIndexedHeight(ctx context.Context, height int64, blockHash string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO indexed_heights (height, block_hash) VALUES ($1, $2)
		ON CONFLICT (height) DO UPDATE SET block_hash = EXCLUDED.block_hash
	`, height, blockHash)
	return err
}

// SaveOutputRanges replaces the recorded ranges for a single output. Called
// once per output as each block is scanned.
func (s *PostgresStore) SaveOutputRanges(ctx context.Context, op wire.OutPoint, ranges []rangemanifest.Range) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	txid := op.Hash.String()
	if _, err := tx.Exec(ctx, `DELETE FROM output_ranges WHERE txid = $1 AND vout = $2`, txid, op.Index); err != nil {
		return fmt.Errorf("clearing existing ranges: %w", err)
	}
	for i, r := range ranges {
		_, err := tx.Exec(ctx, `
			INSERT INTO output_ranges (txid, vout, range_index, range_start, range_end)
			VALUES ($1, $2, $3, $4, $5)
		`, txid, op.Index, i, int64(r.Start), int64(r.End))
		if err != nil {
			return fmt.Errorf("inserting range %d: %w", i, err)
		}
	}
	return tx.Commit(ctx)
}

// DeleteOutputRanges drops the stored ranges for an outpoint, called once it
// has been spent and its ranges have flowed into some later output.
func (s *PostgresStore) DeleteOutputRanges(ctx context.Context, op wire.OutPoint) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM output_ranges WHERE txid = $1 AND vout = $2`, op.Hash.String(), op.Index)
	return err
}

// GetOutputRanges loads the ranges for every given outpoint that the index
// currently has on record; unindexed or spent outpoints are simply absent
// from the returned manifest.
func (s *PostgresStore) GetOutputRanges(ctx context.Context, outpoints []wire.OutPoint) (rangemanifest.Manifest, error) {
	manifest := make(rangemanifest.Manifest, 0, len(outpoints))
	for _, op := range outpoints {
		rows, err := s.pool.Query(ctx, `
			SELECT range_start, range_end FROM output_ranges
			WHERE txid = $1 AND vout = $2
			ORDER BY range_index
		`, op.Hash.String(), op.Index)
		if err != nil {
			return nil, fmt.Errorf("querying ranges for %s:%d: %w", op.Hash, op.Index, err)
		}

		var ranges []rangemanifest.Range
		for rows.Next() {
			var start, end int64
			if err := rows.Scan(&start, &end); err != nil {
				rows.Close()
				return nil, err
			}
			ranges = append(ranges, rangemanifest.Range{Start: uint64(start), End: uint64(end)})
		}
		rows.Close()

		if len(ranges) > 0 {
			manifest = append(manifest, rangemanifest.Entry{OutPoint: op, Ranges: ranges})
		}
	}
	return manifest, nil
}

// SaveBuiltTransaction logs a transaction produced by the builder, keyed by
// its hash, for audit purposes. buildID correlates this row back to the
// build request that produced it, independent of the deterministic txid.
// Only the first build of a given txid is stored: when a later request
// constructs the identical transaction, the existing row is kept and the
// later request's buildID is not recorded.
func (s *PostgresStore) SaveBuiltTransaction(ctx context.Context, tx *wire.MsgTx, buildID uuid.UUID, ordinal uint64, recipient string, rawHex string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO built_transactions (txid, build_id, ordinal, recipient, raw_hex)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (txid) DO NOTHING
	`, tx.TxHash().String(), buildID, int64(ordinal), recipient, rawHex)
	return err
}

// BuiltTransactionByBuildID looks up a previously built transaction by its
// correlation ID, for clients re-polling the result of an earlier request.
func (s *PostgresStore) BuiltTransactionByBuildID(ctx context.Context, buildID uuid.UUID) (txid, rawHex string, err error) {
	err = s.pool.QueryRow(ctx, `
		SELECT txid, raw_hex FROM built_transactions WHERE build_id = $1
	`, buildID).Scan(&txid, &rawHex)
	return txid, rawHex, err
}

// BlockHashAtHeight returns the indexed block hash recorded for height, if any.
func (s *PostgresStore) BlockHashAtHeight(ctx context.Context, height int64) (*chainhash.Hash, error) {
	var hashStr string
	err := s.pool.QueryRow(ctx, `SELECT block_hash FROM indexed_heights WHERE height = $1`, height).Scan(&hashStr)
	if err != nil {
		return nil, err
	}
	return chainhash.NewHashFromStr(hashStr)
}

// GetPool exposes the connection pool for subsystems that need raw access.
func (s *PostgresStore) GetPool() *pgxpool.Pool {
	return s.pool
}
