package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pacsguard/dataloader/appcontext"
	"pacsguard/dataloader/datalake/datasource"
	"pacsguard/dataloader/datalake/model"
)

// ConnectTimeout bounds connection establishment. No other operation has a
// timeout of its own.
const ConnectTimeout = 5 * time.Second

// Gateway persists scored transactions to a relational store. It owns one
// lazily opened handle; each operation checks out a dedicated connection and
// returns it on every exit path.
type Gateway struct {
	dialect dialect
	dsn     string
	db      *sql.DB
	now     func() time.Time
}

// NewGateway creates a Gateway for driver ("postgres" or "sqlite"). Nothing
// is opened until the first operation.
func NewGateway(driver, dsn string) (*Gateway, error) {
	d, ok := dialects[strings.ToLower(driver)]
	if !ok {
		return nil, UnsupportedDriverError(driver)
	}

	return &Gateway{
		dialect: d,
		dsn:     dsn,
		now:     func() time.Time { return time.Now().UTC() },
	}, nil
}

// Driver returns the configured engine name.
func (g *Gateway) Driver() string {
	return g.dialect.name
}

// Open establishes the handle if it is not already open.
func (g *Gateway) Open(ctx context.Context) error {
	if g.db != nil {
		return nil
	}

	logger := appcontext.LoggerFromContext(ctx)
	logger.DebugContext(ctx, "Opening database handle", "driver", g.dialect.name)

	db, err := sql.Open(g.dialect.sqlDriver, g.dsn)
	if err != nil {
		return PersistenceError("open", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return PersistenceError("connect", err)
	}

	g.db = db
	logger.InfoContext(ctx, "Successfully connected to the database", "driver", g.dialect.name)
	return nil
}

// Close releases the handle. A later operation reopens it.
func (g *Gateway) Close() error {
	if g.db == nil {
		return nil
	}

	err := g.db.Close()
	g.db = nil
	if err != nil {
		return PersistenceError("close", err)
	}

	return nil
}

// withTx runs fn inside one transaction on a dedicated connection. Any error
// rolls the transaction back.
func (g *Gateway) withTx(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
	logger := appcontext.LoggerFromContext(ctx)

	if err := g.Open(ctx); err != nil {
		logger.ErrorContext(ctx, "Database unavailable", "op", op, "error", err)
		return err
	}

	conn, err := g.db.Conn(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to acquire a connection", "op", op, "error", err)
		return PersistenceError(op, err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			logger.WarnContext(ctx, "Error releasing connection", "op", op, "error", closeErr)
		}
	}()

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to begin transaction", "op", op, "error", err)
		return PersistenceError(op, err)
	}

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			logger.ErrorContext(ctx, "Rollback failed", "op", op, "error", rbErr)
		}
		logger.ErrorContext(ctx, "Database operation rolled back", "op", op, "error", err)
		return PersistenceError(op, err)
	}

	if err = tx.Commit(); err != nil {
		logger.ErrorContext(ctx, "Commit failed", "op", op, "error", err)
		return PersistenceError(op, err)
	}

	return nil
}

// Init creates the transactions table and its indexes.
func (g *Gateway) Init(ctx context.Context) error {
	err := g.withTx(ctx, "init", func(tx *sql.Tx) error {
		for _, stmt := range g.dialect.createTableStatements() {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	appcontext.LoggerFromContext(ctx).InfoContext(ctx, "Database tables initialized successfully")
	return nil
}

// Upgrade adds missing known columns and drops deprecated ones. It never
// changes the type of an existing column.
func (g *Gateway) Upgrade(ctx context.Context) error {
	logger := appcontext.LoggerFromContext(ctx)

	var added, dropped []string
	err := g.withTx(ctx, "upgrade", func(tx *sql.Tx) error {
		existing, err := g.columns(ctx, tx)
		if err != nil {
			return err
		}

		for _, c := range g.dialect.addableColumns() {
			if existing[c.name] {
				continue
			}
			if _, err = tx.ExecContext(ctx, g.dialect.addColumnStatement(c)); err != nil {
				return fmt.Errorf("add column %s: %w", c.name, err)
			}
			added = append(added, c.name)
		}

		for _, name := range deprecatedColumns {
			if !existing[name] {
				continue
			}
			if _, err = tx.ExecContext(ctx, g.dialect.dropColumnStatement(name)); err != nil {
				return fmt.Errorf("drop column %s: %w", name, err)
			}
			dropped = append(dropped, name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Database schema upgraded", "added", added, "dropped", dropped)
	return nil
}

// columns returns the lower-cased column names of the transactions table.
func (g *Gateway) columns(ctx context.Context, tx *sql.Tx) (map[string]bool, error) {
	rows, err := tx.QueryContext(ctx, g.dialect.columnsQuery, TransactionsTable)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var name string
		if err = rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan column name: %w", err)
		}
		existing[strings.ToLower(name)] = true
	}

	return existing, rows.Err()
}

// UpsertTransactions saves rows in order inside one transaction. A failure on
// any row rolls back the whole batch. A nil error is the success signal.
func (g *Gateway) UpsertTransactions(
	ctx context.Context,
	rows []model.ScoredTransaction,
	fileType datasource.DataSource,
) error {
	logger := appcontext.LoggerFromContext(ctx)

	if !fileType.Valid() {
		return PersistenceError("save", fmt.Errorf("%w: %q", errInvalidFileType, fileType))
	}

	processedAt := g.now()
	err := g.withTx(ctx, "save", func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, g.dialect.upsertStatement())
		if err != nil {
			return fmt.Errorf("prepare upsert: %w", err)
		}
		defer stmt.Close()

		for i, row := range rows {
			args, err := upsertArgs(row, fileType, processedAt)
			if err != nil {
				return fmt.Errorf("row %d: %w", i, err)
			}
			if _, err = stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("row %d (%s): %w", i, *row.TransactionID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "Saved transactions", "count", len(rows), "fileType", fileType)
	return nil
}

func upsertArgs(row model.ScoredTransaction, fileType datasource.DataSource, processedAt time.Time) ([]any, error) {
	if row.TransactionID == nil || strings.TrimSpace(*row.TransactionID) == "" {
		return nil, errMissingTransactionID
	}
	if row.Amount == nil {
		return nil, fmt.Errorf("transaction %s has no amount", *row.TransactionID)
	}

	return []any{
		*row.TransactionID,
		decimal.NewFromFloat(*row.Amount).Round(2),
		row.Currency,
		row.CreationDate.UTC(),
		row.AcceptanceDateTime.UTC(),
		row.DebtorName,
		row.CreditorName,
		row.DebtorAccount,
		row.CreditorAccount,
		row.IsAnomaly,
		decimal.NewFromFloat(row.AnomalyScore).Round(4),
		string(fileType),
		processedAt,
	}, nil
}

// FindTransaction returns the stored row for transactionID, or nil when there
// is none.
func (g *Gateway) FindTransaction(ctx context.Context, transactionID string) (*model.PersistedTransaction, error) {
	var found *model.PersistedTransaction
	err := g.withRead(ctx, "find", func(conn *sql.Conn) error {
		row := conn.QueryRowContext(ctx, g.dialect.findByIDStatement(), transactionID)
		tx, err := scanTransaction(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = tx
		return nil
	})

	return found, err
}

// ListAnomalies returns up to limit flagged rows, most anomalous first.
func (g *Gateway) ListAnomalies(ctx context.Context, limit int) ([]model.PersistedTransaction, error) {
	var out []model.PersistedTransaction
	err := g.withRead(ctx, "list anomalies", func(conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, g.dialect.listAnomaliesStatement(), true, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			tx, err := scanTransaction(rows)
			if err != nil {
				return err
			}
			out = append(out, *tx)
		}
		return rows.Err()
	})

	return out, err
}

func (g *Gateway) withRead(ctx context.Context, op string, fn func(conn *sql.Conn) error) error {
	if err := g.Open(ctx); err != nil {
		return err
	}

	conn, err := g.db.Conn(ctx)
	if err != nil {
		return PersistenceError(op, err)
	}
	defer conn.Close()

	if err = fn(conn); err != nil {
		return PersistenceError(op, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*model.PersistedTransaction, error) {
	var (
		tx                                   model.PersistedTransaction
		creation, acceptance, processing     timeValue
		debtorName, creditorName             sql.NullString
		debtorAccount, creditorAccount, ftyp sql.NullString
		score                                sql.NullFloat64
		isAnomaly                            sql.NullBool
	)

	err := row.Scan(
		&tx.ID, &tx.TransactionID, &tx.Amount, &tx.Currency, &creation, &acceptance,
		&debtorName, &creditorName, &debtorAccount, &creditorAccount,
		&isAnomaly, &score, &ftyp, &processing,
	)
	if err != nil {
		return nil, err
	}

	tx.CreationDate = creation.ptr()
	tx.AcceptanceDateTime = acceptance.ptr()
	tx.ProcessingDate = processing.ptr()
	tx.DebtorName = nullString(debtorName)
	tx.CreditorName = nullString(creditorName)
	tx.DebtorAccount = nullString(debtorAccount)
	tx.CreditorAccount = nullString(creditorAccount)
	tx.FileType = nullString(ftyp)
	tx.IsAnomaly = isAnomaly.Valid && isAnomaly.Bool
	if score.Valid {
		tx.AnomalyScore = &score.Float64
	}

	return &tx, nil
}

func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}

	return &s.String
}

// timeValue scans timestamps from drivers that return time.Time as well as
// from those that return their text form.
type timeValue struct {
	t     time.Time
	valid bool
}

var storedTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999 -0700 MST",
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func (v *timeValue) Scan(src any) error {
	switch s := src.(type) {
	case nil:
		v.valid = false
		return nil
	case time.Time:
		v.t, v.valid = s.UTC(), true
		return nil
	case []byte:
		return v.parse(string(s))
	case string:
		return v.parse(s)
	default:
		return fmt.Errorf("cannot scan %T into a timestamp", src)
	}
}

func (v *timeValue) parse(s string) error {
	for _, layout := range storedTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			v.t, v.valid = t.UTC(), true
			return nil
		}
	}

	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (v timeValue) ptr() *time.Time {
	if !v.valid {
		return nil
	}
	t := v.t

	return &t
}
