package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/riteshkumar/greengrid/internal/models"
)

type AuditRepository interface {
	Create(ctx context.Context, log *models.AuditLog) error
	GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error)
}

type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// SQLAuditRepository persists audit logs through database/sql. The same
// queries serve Postgres (lib/pq) and SQLite (modernc.org/sqlite).
type SQLAuditRepository struct {
	db      *sql.DB
	dialect Dialect
}

func NewSQLAuditRepository(db *sql.DB, dialect Dialect) *SQLAuditRepository {
	return &SQLAuditRepository{db: db, dialect: dialect}
}

// OpenAuditRepository opens the database for driver, verifies the connection
// and creates the audit table if needed.
func OpenAuditRepository(ctx context.Context, driver, dsn string) (*SQLAuditRepository, *sql.DB, error) {
	dialect := Dialect(driver)
	if dialect != DialectPostgres && dialect != DialectSQLite {
		return nil, nil, fmt.Errorf("unsupported audit driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open audit database: %w", err)
	}
	if dialect == DialectSQLite {
		// every new connection to ":memory:" is a separate database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(10 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	repo := NewSQLAuditRepository(db, dialect)
	if err := repo.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repo, db, nil
}

func (r *SQLAuditRepository) EnsureSchema(ctx context.Context) error {
	jsonType := "TEXT"
	if r.dialect == DialectPostgres {
		jsonType = "JSONB"
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_logs (
			id TEXT PRIMARY KEY,
			entity_type TEXT NOT NULL,
			entity_id TEXT NOT NULL,
			action TEXT NOT NULL,
			old_value ` + jsonType + `,
			new_value ` + jsonType + ` NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS audit_logs_entity_idx ON audit_logs (entity_type, entity_id)`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create audit schema: %w", err)
		}
	}
	return nil
}

// Create inserts a new audit log entry. ID and CreatedAt are filled when unset.
func (r *SQLAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	query := r.rebind(`INSERT INTO audit_logs (id, entity_type, entity_id, action, old_value, new_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)

	var oldValue interface{}
	if log.OldValue != nil {
		oldValue = string(log.OldValue)
	}
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.EntityType,
		log.EntityID,
		log.Action,
		oldValue,
		string(log.NewValue),
		log.CreatedAt.UnixMicro(),
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			return fmt.Errorf("failed to create audit log (%s): %w", pqErr.Code.Name(), err)
		}
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	return nil
}

// GetByEntityID retrieves audit logs for a specific entity, newest first.
func (r *SQLAuditRepository) GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	query := r.rebind(`SELECT id, entity_type, entity_id, action, old_value, new_value, created_at
		FROM audit_logs
		WHERE entity_type = ? AND entity_id = ?
		ORDER BY created_at DESC`)

	rows, err := r.db.QueryContext(ctx, query, entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logs by entity ID: %w", err)
	}
	defer rows.Close()

	var logs []*models.AuditLog
	for rows.Next() {
		log := &models.AuditLog{}
		var oldValue sql.NullString
		var newValue string
		var createdAt int64

		err := rows.Scan(&log.ID, &log.EntityType, &log.EntityID, &log.Action, &oldValue, &newValue, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}

		if oldValue.Valid {
			log.OldValue = json.RawMessage(oldValue.String)
		}
		log.NewValue = json.RawMessage(newValue)
		log.CreatedAt = time.UnixMicro(createdAt).UTC()

		logs = append(logs, log)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over audit logs: %w", err)
	}
	return logs, nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (r *SQLAuditRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// MemoryAuditRepository keeps audit logs in process. Used when no database
// is configured.
type MemoryAuditRepository struct {
	mu   sync.RWMutex
	logs []*models.AuditLog
}

func NewMemoryAuditRepository() *MemoryAuditRepository {
	return &MemoryAuditRepository{}
}

func (r *MemoryAuditRepository) Create(ctx context.Context, log *models.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	copy := *log
	r.logs = append(r.logs, &copy)
	return nil
}

func (r *MemoryAuditRepository) GetByEntityID(ctx context.Context, entityType, entityID string) ([]*models.AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*models.AuditLog
	for i := len(r.logs) - 1; i >= 0; i-- {
		l := r.logs[i]
		if l.EntityType == entityType && l.EntityID == entityID {
			copy := *l
			out = append(out, &copy)
		}
	}
	return out, nil
}
