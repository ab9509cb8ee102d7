package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore implements AddressBook with PostgreSQL persistence.
type PostgresStore struct {
	db *sql.DB
}

// PostgresConfig contains PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslMode"`
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

// NewPostgresStore opens the database, verifies connectivity, and ensures the
// schema exists.
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
	CREATE TABLE IF NOT EXISTS link_addresses (
		link_id VARCHAR(128) PRIMARY KEY,
		address VARCHAR(1024) NOT NULL,
		loaded BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_link_addresses_created ON link_addresses(created_at);
	`

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// SaveLink persists a link record, replacing any previous record for the same
// link id.
func (s *PostgresStore) SaveLink(record LinkRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	query := `
	INSERT INTO link_addresses (link_id, address, loaded, updated_at)
	VALUES ($1, $2, $3, NOW())
	ON CONFLICT (link_id) DO UPDATE SET
		address = EXCLUDED.address,
		loaded = EXCLUDED.loaded,
		updated_at = NOW()
	`

	_, err := s.db.ExecContext(ctx, query, record.LinkID, record.Address, record.Loaded)
	return err
}

// DeleteLink removes a link record.
func (s *PostgresStore) DeleteLink(linkID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := s.db.ExecContext(ctx, "DELETE FROM link_addresses WHERE link_id = $1", linkID)
	return err
}

// LoadAll retrieves every persisted link record, oldest first.
func (s *PostgresStore) LoadAll() ([]LinkRecord, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT link_id, address, loaded FROM link_addresses ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []LinkRecord
	for rows.Next() {
		var rec LinkRecord
		if err := rows.Scan(&rec.LinkID, &rec.Address, &rec.Loaded); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// Close closes the database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InMemoryStore implements AddressBook for testing and for deployments that
// do not need persistence across restarts.
type InMemoryStore struct {
	mu      sync.Mutex
	records map[string]LinkRecord
}

// NewInMemoryStore creates an in-memory address book.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]LinkRecord)}
}

// SaveLink stores a record in memory.
func (s *InMemoryStore) SaveLink(record LinkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.LinkID] = record
	return nil
}

// DeleteLink removes a record from memory.
func (s *InMemoryStore) DeleteLink(linkID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, linkID)
	return nil
}

// LoadAll returns all stored records sorted by link id.
func (s *InMemoryStore) LoadAll() ([]LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]LinkRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].LinkID < records[j].LinkID })
	return records, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error { return nil }
