package eventlog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
)

type Status string

const (
	StatusReceived  Status = "received"
	StatusProcessed Status = "processed"
	StatusIgnored   Status = "ignored"
	StatusFailed    Status = "failed"
)

// DefaultClaimLease is how long a received event stays claimed by the
// delivery processing it. A claim older than that belongs to a delivery that
// never completed and is handed to the next redelivery.
const DefaultClaimLease = 2 * time.Minute

var (
	ErrDuplicateEvent = errors.New("payment event already received")
	ErrEventNotFound  = errors.New("payment event not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

type Repository struct {
	db         *sql.DB
	claimLease time.Duration
}

func NewRepository(cred *Credentials) (*Repository, error) {
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
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", e2)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	return &Repository{db: db, claimLease: DefaultClaimLease}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "eventlog_schema_migrations",
	})
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

// Begin claims eventID for processing. A redelivery returns
// ErrDuplicateEvent while the event is processed, ignored or claimed within
// the lease; a failed event or an expired claim is claimed again so the
// delivery is retried.
func (r *Repository) Begin(ctx context.Context, eventID, eventType, cartID string) error {
	query := `INSERT INTO payment_events (event_id, event_type, cart_id, status, received_at)
	          VALUES ($1, $2, NULLIF($3, ''), $4, NOW())
	          ON CONFLICT (event_id) DO UPDATE
	              SET status = EXCLUDED.status, error = NULL, received_at = NOW(), processed_at = NULL
	              WHERE payment_events.status = $5
	                 OR (payment_events.status = $4
	                     AND payment_events.received_at < NOW() - make_interval(secs => $6::double precision))
	          RETURNING event_id`

	var claimed string
	err := r.db.QueryRowContext(ctx, query,
		eventID, eventType, cartID, StatusReceived, StatusFailed, r.claimLease.Seconds()).Scan(&claimed)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrDuplicateEvent
	}
	if err != nil {
		return fmt.Errorf("insert payment event: %w", err)
	}
	return nil
}

// Complete stores the processing outcome of a claimed event.
func (r *Repository) Complete(ctx context.Context, eventID string, status Status, procErr error) error {
	var errText sql.NullString
	if procErr != nil {
		errText = sql.NullString{String: procErr.Error(), Valid: true}
	}

	query := `UPDATE payment_events SET status = $2, error = $3, processed_at = NOW() WHERE event_id = $1`
	res, err := r.db.ExecContext(ctx, query, eventID, status, errText)
	if err != nil {
		return fmt.Errorf("update payment event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update payment event: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
