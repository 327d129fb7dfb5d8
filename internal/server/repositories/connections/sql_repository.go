package connections

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/qborelay/internal/common"
	"github.com/dmitrijs2005/qborelay/internal/dbx"
	"github.com/dmitrijs2005/qborelay/internal/server/models"
)

const (
	upsertQuery = `
		INSERT INTO connections (user_id, realm_id, company_name, access_token_enc, refresh_token_enc,
			access_token_expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, realm_id) DO UPDATE SET
			company_name = COALESCE(excluded.company_name, connections.company_name),
			access_token_enc = excluded.access_token_enc,
			refresh_token_enc = excluded.refresh_token_enc,
			access_token_expires_at = excluded.access_token_expires_at,
			updated_at = excluded.updated_at
	`

	getQuery = `
		SELECT user_id, realm_id, company_name, access_token_enc, refresh_token_enc,
			access_token_expires_at, created_at, updated_at
		FROM connections
		WHERE user_id = ? AND realm_id = ?
	`

	listQuery = `
		SELECT user_id, realm_id, company_name, access_token_enc, refresh_token_enc,
			access_token_expires_at, created_at, updated_at
		FROM connections
		WHERE user_id = ?
		ORDER BY created_at, realm_id
	`
)

// SQLRepository implements Repository over dbx.DBTX (satisfied by *sql.DB
// or *sql.Tx). Queries are written once with "?" placeholders and rebound
// for the dialect at construction time.
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
	now     func() time.Time

	upsert string
	get    string
	list   string
}

// NewSQLRepository constructs a repository bound to db.
func NewSQLRepository(db dbx.DBTX, dialect dbx.Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		now:     func() time.Time { return time.Now().UTC() },
		upsert:  rebind(dialect, upsertQuery),
		get:     rebind(dialect, getQuery),
		list:    rebind(dialect, listQuery),
	}
}

// rebind turns "?" placeholders into "$1", "$2"... for PostgreSQL.
func rebind(dialect dbx.Dialect, query string) string {
	if dialect != dbx.DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (r *SQLRepository) Upsert(ctx context.Context, conn *models.Connection) error {
	now := r.now()

	var expires any
	if conn.AccessTokenExpiresAt != nil {
		expires = conn.AccessTokenExpiresAt.UTC()
	}

	_, err := r.db.ExecContext(ctx, r.upsert,
		conn.UserID,
		conn.RealmID,
		nullString(conn.CompanyName),
		nullString(conn.AccessTokenEnc),
		conn.RefreshTokenEnc,
		expires,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *SQLRepository) Get(ctx context.Context, userID, realmID string) (*models.Connection, error) {
	conn, err := scanConnection(r.db.QueryRowContext(ctx, r.get, userID, realmID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("connection %s/%s: %w", userID, realmID, common.ErrorNotFound)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return conn, nil
}

func (r *SQLRepository) List(ctx context.Context, userID string) ([]*models.Connection, error) {
	rows, err := r.db.QueryContext(ctx, r.list, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	result := make([]*models.Connection, 0)
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConnection(row rowScanner) (*models.Connection, error) {
	var (
		conn                 models.Connection
		companyName, access  sql.NullString
		expires, created, up dbTime
	)

	if err := row.Scan(&conn.UserID, &conn.RealmID, &companyName, &access, &conn.RefreshTokenEnc,
		&expires, &created, &up); err != nil {
		return nil, err
	}

	if companyName.Valid {
		conn.CompanyName = &companyName.String
	}
	if access.Valid && access.String != "" {
		conn.AccessTokenEnc = &access.String
	}
	if expires.Valid {
		t := expires.Time
		conn.AccessTokenExpiresAt = &t
	}
	conn.CreatedAt = created.Time
	conn.UpdatedAt = up.Time

	return &conn, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
