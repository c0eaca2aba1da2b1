package persist

import (
	"context"
	"fmt"

	"github.com/gridfire/server/internal/wave"
)

// SpawnWALRepo is the spawn audit log: every unit the director materializes
// is appended here so a crash between autosaves can be reconciled.
type SpawnWALRepo struct {
	db       *DB
	serverID int
}

func NewSpawnWALRepo(db *DB, serverID int) *SpawnWALRepo {
	return &SpawnWALRepo{db: db, serverID: serverID}
}

// WriteSpawns atomically writes a batch of spawn records in a single
// transaction. Returns nil on success. If it fails, the caller should retry
// the batch on the next flush.
func (r *SpawnWALRepo) WriteSpawns(ctx context.Context, records []wave.SpawnRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("spawn wal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, rec := range records {
		if _, err := tx.Exec(ctx,
			`INSERT INTO spawn_wal (server_id, wave_id, wave_number, entity_id, archetype, x, y, multiplier)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			r.serverID, rec.WaveID, rec.WaveNumber, int64(rec.EntityID), rec.Archetype, rec.X, rec.Y, rec.Multiplier,
		); err != nil {
			return fmt.Errorf("spawn wal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// MarkProcessed marks all spawn entries as processed (called after a
// successful snapshot save supersedes them).
func (r *SpawnWALRepo) MarkProcessed(ctx context.Context) error {
	_, err := r.db.Pool.Exec(ctx,
		`UPDATE spawn_wal SET processed = TRUE WHERE server_id = $1 AND processed = FALSE`,
		r.serverID,
	)
	return err
}
