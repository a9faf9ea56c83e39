package access

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	id "hubgate/pkg/domain"
)

// LedgerSQLite persists grant records in SQLite. The table is insert-only;
// no UPDATE or DELETE statement exists in this file on purpose.
type LedgerSQLite struct {
	db *sql.DB
}

var _ Ledger = (*LedgerSQLite)(nil)

// NewLedgerSQLite opens (or creates) the ledger database at path.
func NewLedgerSQLite(path string) (*LedgerSQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open access ledger: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	l := &LedgerSQLite{db: db}
	if err := l.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize ledger schema: %w", err)
	}
	return l, nil
}

func (l *LedgerSQLite) initSchema() error {
	_, err := l.db.Exec(`CREATE TABLE IF NOT EXISTS grant_records (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		principal_id TEXT NOT NULL,
		principal_type TEXT NOT NULL,
		resource_scope TEXT NOT NULL,
		capability TEXT NOT NULL,
		actor TEXT NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_grant_records_principal ON grant_records(principal_id);`)
	return err
}

// Close releases the underlying database handle.
func (l *LedgerSQLite) Close() error {
	return l.db.Close()
}

// Ping exposes connectivity for readiness checks.
func (l *LedgerSQLite) Ping() error {
	return l.db.Ping()
}

func (l *LedgerSQLite) Append(ctx context.Context, record GrantRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO grant_records
		 (id, kind, principal_id, principal_type, resource_scope, capability, actor, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID.String(),
		string(record.Kind),
		record.PrincipalID.String(),
		string(record.PrincipalType),
		record.ResourceScope,
		string(record.Capability),
		record.Actor.String(),
		record.RecordedAt.UTC().Format(time.RFC3339Nano),
	)
	return err
}

func (l *LedgerSQLite) ListByPrincipal(ctx context.Context, principalID id.PrincipalID) ([]GrantRecord, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, kind, principal_id, principal_type, resource_scope, capability, actor, recorded_at
		 FROM grant_records WHERE principal_id = ? ORDER BY rowid`,
		principalID.String(),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []GrantRecord
	for rows.Next() {
		var (
			rawID, kind, rawPrincipal, principalType string
			scope, capability, rawActor, recordedAt  string
		)
		if err := rows.Scan(&rawID, &kind, &rawPrincipal, &principalType, &scope, &capability, &rawActor, &recordedAt); err != nil {
			return nil, err
		}
		record, err := scanRecord(rawID, kind, rawPrincipal, principalType, scope, capability, rawActor, recordedAt)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func scanRecord(rawID, kind, rawPrincipal, principalType, scope, capability, rawActor, recordedAt string) (GrantRecord, error) {
	grantID, err := id.ParseGrantID(rawID)
	if err != nil {
		return GrantRecord{}, err
	}
	principalID, err := id.ParsePrincipalID(rawPrincipal)
	if err != nil {
		return GrantRecord{}, err
	}
	actor, err := id.ParsePrincipalID(rawActor)
	if err != nil {
		return GrantRecord{}, err
	}
	at, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return GrantRecord{}, err
	}
	return GrantRecord{
		ID:            grantID,
		Kind:          RecordKind(kind),
		PrincipalID:   principalID,
		PrincipalType: PrincipalType(principalType),
		ResourceScope: scope,
		Capability:    Capability(capability),
		Actor:         actor,
		RecordedAt:    at,
	}, nil
}
