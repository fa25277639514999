package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"time"

	"github.com/lib/pq"

	"github.com/six-thirty/ntvnet/account"
	"github.com/six-thirty/ntvnet/ntv"
)

// PostgresStore implements Store with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnectionString returns the PostgreSQL connection string.
func (c *PostgresConfig) ConnectionString() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslMode)
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(config *PostgresConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return store, nil
}

func (s *PostgresStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS ntv_registry (
		id SMALLINT PRIMARY KEY CHECK (id = 1),
		started BOOLEAN NOT NULL,
		online_time TIMESTAMP WITH TIME ZONE,
		beneficiary VARCHAR(64) NOT NULL DEFAULT '',
		general_pool NUMERIC(40,0) NOT NULL DEFAULT 0,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS ntv_slots (
		ordinal INTEGER PRIMARY KEY,
		symbol VARCHAR(16) NOT NULL,
		is_private BOOLEAN NOT NULL,
		max_bid_value NUMERIC(40,0) NOT NULL DEFAULT 0,
		max_bid_account VARCHAR(64) NOT NULL DEFAULT '',
		bid_count INTEGER NOT NULL DEFAULT 0,
		bidders TEXT[] NOT NULL DEFAULT '{}',
		auction_ended BOOLEAN NOT NULL DEFAULT FALSE,
		swept BOOLEAN NOT NULL DEFAULT FALSE,
		display_text TEXT NOT NULL DEFAULT '',
		text_set BOOLEAN NOT NULL DEFAULT FALSE,
		audit_status SMALLINT NOT NULL DEFAULT 0,
		override_text TEXT NOT NULL DEFAULT '',
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS ntv_balances (
		account VARCHAR(64) PRIMARY KEY,
		amount NUMERIC(40,0) NOT NULL,
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveRegistry persists the registry-level snapshot and replaces the
// ledger balances in one transaction.
func (s *PostgresStore) SaveRegistry(ctx context.Context, snap ntv.RegistrySnapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var onlineTime sql.NullTime
	if snap.Started {
		onlineTime = sql.NullTime{Time: snap.OnlineTime, Valid: true}
	}

	_, err = tx.ExecContext(ctx, `
	INSERT INTO ntv_registry (id, started, online_time, beneficiary, general_pool, updated_at)
	VALUES (1, $1, $2, $3, $4, NOW())
	ON CONFLICT (id) DO UPDATE SET
		started = EXCLUDED.started,
		online_time = EXCLUDED.online_time,
		beneficiary = EXCLUDED.beneficiary,
		general_pool = EXCLUDED.general_pool,
		updated_at = NOW()
	`, snap.Started, onlineTime, snap.Beneficiary.String(), numeric(snap.GeneralPool))
	if err != nil {
		return fmt.Errorf("saving registry: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM ntv_balances`); err != nil {
		return fmt.Errorf("clearing balances: %w", err)
	}
	for _, b := range snap.Balances {
		_, err := tx.ExecContext(ctx, `
		INSERT INTO ntv_balances (account, amount, updated_at) VALUES ($1, $2, NOW())
		`, b.Account.String(), numeric(b.Amount))
		if err != nil {
			return fmt.Errorf("saving balance of %s: %w", b.Account, err)
		}
	}

	return tx.Commit()
}

// SaveSlot upserts one slot snapshot by ordinal.
func (s *PostgresStore) SaveSlot(ctx context.Context, snap ntv.SlotSnapshot) error {
	bidders := make([]string, len(snap.Bidders))
	for i, a := range snap.Bidders {
		bidders[i] = a.String()
	}

	_, err := s.db.ExecContext(ctx, `
	INSERT INTO ntv_slots
		(ordinal, symbol, is_private, max_bid_value, max_bid_account, bid_count,
		 bidders, auction_ended, swept, display_text, text_set, audit_status, override_text, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
	ON CONFLICT (ordinal) DO UPDATE SET
		max_bid_value = EXCLUDED.max_bid_value,
		max_bid_account = EXCLUDED.max_bid_account,
		bid_count = EXCLUDED.bid_count,
		bidders = EXCLUDED.bidders,
		auction_ended = EXCLUDED.auction_ended,
		swept = EXCLUDED.swept,
		display_text = EXCLUDED.display_text,
		text_set = EXCLUDED.text_set,
		audit_status = EXCLUDED.audit_status,
		override_text = EXCLUDED.override_text,
		updated_at = NOW()
	`,
		snap.Ordinal,
		snap.Symbol,
		snap.IsPrivate,
		numeric(snap.MaxBidValue),
		snap.MaxBidAccount.String(),
		snap.BidCount,
		pq.Array(bidders),
		snap.AuctionEnded,
		snap.Swept,
		snap.Text,
		snap.TextSet,
		int(snap.AuditStatus),
		snap.OverrideText,
	)
	if err != nil {
		return fmt.Errorf("saving slot %d: %w", snap.Ordinal, err)
	}
	return nil
}

// Load retrieves the persisted registry and slot snapshots.
func (s *PostgresStore) Load(ctx context.Context) (ntv.RegistrySnapshot, []ntv.SlotSnapshot, bool, error) {
	var reg ntv.RegistrySnapshot

	var (
		onlineTime  sql.NullTime
		beneficiary string
		pool        string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT started, online_time, beneficiary, general_pool FROM ntv_registry WHERE id = 1
	`).Scan(&reg.Started, &onlineTime, &beneficiary, &pool)
	if err == sql.ErrNoRows {
		return reg, nil, false, nil
	}
	if err != nil {
		return reg, nil, false, fmt.Errorf("loading registry: %w", err)
	}
	if onlineTime.Valid {
		reg.OnlineTime = onlineTime.Time
	}
	reg.Beneficiary = account.Address(beneficiary)
	if reg.GeneralPool, err = parseNumeric(pool); err != nil {
		return reg, nil, false, fmt.Errorf("loading general pool: %w", err)
	}

	if reg.Balances, err = s.loadBalances(ctx); err != nil {
		return reg, nil, false, err
	}

	slots, err := s.loadSlots(ctx)
	if err != nil {
		return reg, nil, false, err
	}
	return reg, slots, true, nil
}

func (s *PostgresStore) loadBalances(ctx context.Context) ([]ntv.Balance, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT account, amount FROM ntv_balances ORDER BY account`)
	if err != nil {
		return nil, fmt.Errorf("loading balances: %w", err)
	}
	defer rows.Close()

	var balances []ntv.Balance
	for rows.Next() {
		var (
			acct   string
			amount string
		)
		if err := rows.Scan(&acct, &amount); err != nil {
			return nil, fmt.Errorf("scanning balance: %w", err)
		}
		amt, err := parseNumeric(amount)
		if err != nil {
			return nil, fmt.Errorf("balance of %s: %w", acct, err)
		}
		balances = append(balances, ntv.Balance{Account: account.Address(acct), Amount: amt})
	}
	return balances, rows.Err()
}

func (s *PostgresStore) loadSlots(ctx context.Context) ([]ntv.SlotSnapshot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ordinal, symbol, is_private, max_bid_value, max_bid_account, bid_count,
		       bidders, auction_ended, swept, display_text, text_set, audit_status, override_text
		FROM ntv_slots ORDER BY ordinal
	`)
	if err != nil {
		return nil, fmt.Errorf("loading slots: %w", err)
	}
	defer rows.Close()

	var slots []ntv.SlotSnapshot
	for rows.Next() {
		var (
			snap        ntv.SlotSnapshot
			maxBid      string
			maxAccount  string
			bidders     pq.StringArray
			auditStatus int
		)
		err := rows.Scan(
			&snap.Ordinal,
			&snap.Symbol,
			&snap.IsPrivate,
			&maxBid,
			&maxAccount,
			&snap.BidCount,
			&bidders,
			&snap.AuctionEnded,
			&snap.Swept,
			&snap.Text,
			&snap.TextSet,
			&auditStatus,
			&snap.OverrideText,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning slot: %w", err)
		}
		if snap.MaxBidValue, err = parseNumeric(maxBid); err != nil {
			return nil, fmt.Errorf("slot %d max bid: %w", snap.Ordinal, err)
		}
		snap.MaxBidAccount = account.Address(maxAccount)
		for _, b := range bidders {
			snap.Bidders = append(snap.Bidders, account.Address(b))
		}
		snap.AuditStatus = ntv.AuditStatus(auditStatus)
		slots = append(slots, snap)
	}
	return slots, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// numeric renders a big.Int for a NUMERIC column; nil renders as zero.
func numeric(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseNumeric(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid numeric value %q", s)
	}
	return v, nil
}
