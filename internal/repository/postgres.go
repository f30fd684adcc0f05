package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/lib/pq"
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// querier is satisfied by both *sql.DB and *sql.Tx, so every repository
// method runs against whichever scope the PostgresStore is bound to.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PostgresStore implements Store on top of database/sql.
type PostgresStore struct {
	db *sql.DB
	q  querier
}

func NewPostgresStore(cred *Credentials) (*PostgresStore, error) {
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if e2 := db.Ping(); e2 != nil {
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(100)
	db.SetMaxIdleConns(10)
	return &PostgresStore{db: db, q: db}, nil
}

func (s *PostgresStore) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(s.db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if e2 := m.Up(); e2 != nil && !errors.Is(e2, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", e2)
	}

	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Carts() CartRepository      { return &pgCartRepo{q: s.q} }
func (s *PostgresStore) Orders() OrderRepository    { return &pgOrderRepo{q: s.q} }
func (s *PostgresStore) Stock() StockLedger         { return &pgStockLedger{q: s.q} }
func (s *PostgresStore) Catalog() CatalogRepository { return &pgCatalogRepo{q: s.q} }
func (s *PostgresStore) Outbox() OutboxRepository   { return &pgOutboxRepo{q: s.q} }

const maxTxAttempts = 5

// ExecTx runs fn against a store bound to a single serializable transaction.
// A nested call joins the transaction already in flight. Serializable
// isolation is load-bearing: every mutation re-derives an aggregate total
// from its lines, and at a weaker level two overlapping transactions could
// each miss the other's line and commit a total that omits it. Overlapping
// transactions abort with SQLSTATE 40001 instead and are re-run here.
func (s *PostgresStore) ExecTx(ctx context.Context, fn func(Store) error) error {
	if _, already := s.q.(*sql.Tx); already {
		return fn(s)
	}

	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.runTx(ctx, fn)
		if !isRetryable(err) {
			return err
		}
	}
	return err
}

func (s *PostgresStore) runTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	txStore := &PostgresStore{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// isRetryable reports whether the transaction failed only because it
// overlapped another one: serialization failure (40001) or deadlock (40P01).
// fn never touches anything outside the transaction, so re-running is safe.
func isRetryable(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && (pqErr.Code == "40001" || pqErr.Code == "40P01")
}
