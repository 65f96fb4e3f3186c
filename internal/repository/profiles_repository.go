// Package repository provides data access for applicant profiles.
package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/talenthub/hub/internal/models"
	"github.com/talenthub/hub/internal/schema"
)

// ProfilesRepository handles relational access to the profile table. The
// table's column set comes from the configured schema, so every statement is
// built once at construction time from sanitized identifiers.
type ProfilesRepository struct {
	db     *pgxpool.Pool
	table  string
	schema *schema.Schema

	quotedTable   string
	quotedColumns []string
}

// NewProfilesRepository creates a repository over the given table and schema.
func NewProfilesRepository(db *pgxpool.Pool, table string, s *schema.Schema) *ProfilesRepository {
	quoted := make([]string, 0, len(s.Columns))
	for _, col := range s.Columns {
		quoted = append(quoted, pgx.Identifier{col.Name}.Sanitize())
	}

	return &ProfilesRepository{
		db:            db,
		table:         table,
		schema:        s,
		quotedTable:   pgx.Identifier{table}.Sanitize(),
		quotedColumns: quoted,
	}
}

// createTableSQL builds the bootstrap DDL: a BIGINT primary key plus one
// column per schema entry.
func (r *ProfilesRepository) createTableSQL() (string, error) {
	defs := make([]string, 0, len(r.schema.Columns)+1)
	defs = append(defs, "id BIGINT PRIMARY KEY")

	for i, col := range r.schema.Columns {
		switch col.Type {
		case schema.TypeString:
			defs = append(defs, fmt.Sprintf("%s VARCHAR(%d)", r.quotedColumns[i], col.Length))
		case schema.TypeText:
			defs = append(defs, r.quotedColumns[i]+" TEXT")
		default:
			return "", fmt.Errorf("unsupported column type %q for %q", col.Type, col.Name)
		}
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", r.quotedTable, strings.Join(defs, ", ")), nil
}

// EnsureSchema creates the profile table when it does not exist yet.
func (r *ProfilesRepository) EnsureSchema(ctx context.Context) error {
	query, err := r.createTableSQL()
	if err != nil {
		return err
	}

	if _, err := r.db.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", r.table, err)
	}

	return nil
}

// insertSQL builds a multi-row INSERT with numbered placeholders for rowCount rows.
func (r *ProfilesRepository) insertSQL(rowCount int) string {
	colCount := len(r.schema.Columns) + 1

	var sb strings.Builder
	sb.WriteString("INSERT INTO ")
	sb.WriteString(r.quotedTable)
	sb.WriteString(" (id, ")
	sb.WriteString(strings.Join(r.quotedColumns, ", "))
	sb.WriteString(") VALUES ")

	for i := range rowCount {
		if i > 0 {
			sb.WriteString(", ")
		}

		sb.WriteString("(")

		for j := range colCount {
			if j > 0 {
				sb.WriteString(", ")
			}

			fmt.Fprintf(&sb, "$%d", i*colCount+j+1)
		}

		sb.WriteString(")")
	}

	return sb.String()
}

// InsertRows stores the given rows in a single multi-row INSERT. Rows carry a
// value for every configured column; missing fields insert as empty strings.
func (r *ProfilesRepository) InsertRows(ctx context.Context, rows []models.Row) error {
	if len(rows) == 0 {
		return nil
	}

	args := make([]any, 0, len(rows)*(len(r.schema.Columns)+1))

	for _, row := range rows {
		args = append(args, row.ID)
		for _, col := range r.schema.Columns {
			args = append(args, row.Field(col.Name))
		}
	}

	if _, err := r.db.Exec(ctx, r.insertSQL(len(rows)), args...); err != nil {
		return fmt.Errorf("failed to insert %d profile rows: %w", len(rows), err)
	}

	return nil
}

// GetByIDs retrieves the rows with the given ids as column->value maps, keyed
// by id. Ids with no stored row are simply absent from the result.
func (r *ProfilesRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]map[string]string, error) {
	if len(ids) == 0 {
		return map[int64]map[string]string{}, nil
	}

	query := fmt.Sprintf("SELECT id, %s FROM %s WHERE id = ANY($1)",
		strings.Join(r.quotedColumns, ", "), r.quotedTable)

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get profiles by ids: %w", err)
	}
	defer rows.Close()

	result := make(map[int64]map[string]string, len(ids))

	for rows.Next() {
		var id int64

		// Nullable scan targets so rows written by other tools do not break reads.
		values := make([]*string, len(r.schema.Columns))
		dest := make([]any, 0, len(values)+1)
		dest = append(dest, &id)

		for i := range values {
			dest = append(dest, &values[i])
		}

		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("failed to scan profile row: %w", err)
		}

		record := make(map[string]string, len(values))
		for i, col := range r.schema.Columns {
			if values[i] != nil {
				record[col.Name] = *values[i]
			} else {
				record[col.Name] = ""
			}
		}

		result[id] = record
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profile rows: %w", err)
	}

	return result, nil
}

// Count returns the number of stored profile rows.
func (r *ProfilesRepository) Count(ctx context.Context) (int64, error) {
	var count int64

	query := fmt.Sprintf("SELECT COUNT(*) FROM %s", r.quotedTable)

	if err := r.db.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count profile rows: %w", err)
	}

	return count, nil
}

// Ping verifies database connectivity.
func (r *ProfilesRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}
