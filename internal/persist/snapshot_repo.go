package persist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/blake2b"

	"github.com/gridfire/server/internal/ai"
	"github.com/gridfire/server/internal/wave"
)

const (
	kindAgents = "agents"
	kindWaves  = "waves"
)

// ErrNoSnapshot is returned when the server has never saved the given kind.
var ErrNoSnapshot = errors.New("no snapshot")

// SnapshotRepo stores agent and wave state as JSONB rows, one row per save.
// Payloads carry a blake2b digest so a torn or tampered row is rejected at
// load instead of poisoning the simulation.
type SnapshotRepo struct {
	db       *DB
	serverID int
}

func NewSnapshotRepo(db *DB, serverID int) *SnapshotRepo {
	return &SnapshotRepo{db: db, serverID: serverID}
}

// SaveAgents persists the controller snapshot.
func (r *SnapshotRepo) SaveAgents(ctx context.Context, snaps []ai.AgentSnapshot) error {
	return r.save(ctx, kindAgents, snaps)
}

// LoadAgents returns the most recent controller snapshot.
func (r *SnapshotRepo) LoadAgents(ctx context.Context) ([]ai.AgentSnapshot, error) {
	var snaps []ai.AgentSnapshot
	if err := r.load(ctx, kindAgents, &snaps); err != nil {
		return nil, err
	}
	return snaps, nil
}

// SaveWaves persists the director snapshot.
func (r *SnapshotRepo) SaveWaves(ctx context.Context, snap wave.Snapshot) error {
	return r.save(ctx, kindWaves, snap)
}

// LoadWaves returns the most recent director snapshot.
func (r *SnapshotRepo) LoadWaves(ctx context.Context) (wave.Snapshot, error) {
	var snap wave.Snapshot
	if err := r.load(ctx, kindWaves, &snap); err != nil {
		return wave.Snapshot{}, err
	}
	return snap, nil
}

// Prune deletes all but the newest keep rows per kind. Called after autosave
// so the table does not grow without bound.
func (r *SnapshotRepo) Prune(ctx context.Context, keep int) error {
	_, err := r.db.Pool.Exec(ctx,
		`DELETE FROM snapshots
		 WHERE server_id = $1
		   AND id NOT IN (
		     SELECT id FROM snapshots s2
		     WHERE s2.server_id = $1 AND s2.kind = snapshots.kind
		     ORDER BY s2.id DESC LIMIT $2
		   )`, r.serverID, keep)
	return err
}

func (r *SnapshotRepo) save(ctx context.Context, kind string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s snapshot: %w", kind, err)
	}
	sum := blake2b.Sum256(payload)
	if _, err := r.db.Pool.Exec(ctx,
		`INSERT INTO snapshots (server_id, kind, payload, checksum) VALUES ($1, $2, $3, $4)`,
		r.serverID, kind, payload, sum[:],
	); err != nil {
		return fmt.Errorf("insert %s snapshot: %w", kind, err)
	}
	return nil
}

func (r *SnapshotRepo) load(ctx context.Context, kind string, out any) error {
	var payload, checksum []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT payload, checksum FROM snapshots
		 WHERE server_id = $1 AND kind = $2
		 ORDER BY id DESC LIMIT 1`, r.serverID, kind,
	).Scan(&payload, &checksum)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNoSnapshot
	}
	if err != nil {
		return fmt.Errorf("query %s snapshot: %w", kind, err)
	}
	sum := blake2b.Sum256(payload)
	if !bytes.Equal(sum[:], checksum) {
		return fmt.Errorf("%s snapshot checksum mismatch", kind)
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("unmarshal %s snapshot: %w", kind, err)
	}
	return nil
}
