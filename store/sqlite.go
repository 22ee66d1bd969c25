package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/opnlabs/donorbot/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			whatsapp_id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			phone TEXT NOT NULL DEFAULT '',
			tax_id TEXT NOT NULL DEFAULT '',
			customer_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS donations (
			donation_id TEXT PRIMARY KEY,
			whatsapp_id TEXT NOT NULL,
			value TEXT NOT NULL,
			due_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_donations_user ON donations(whatsapp_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			subscription_id TEXT PRIMARY KEY,
			whatsapp_id TEXT NOT NULL,
			value TEXT NOT NULL,
			next_due_date TEXT NOT NULL,
			status TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user ON subscriptions(whatsapp_id, created_at)`,
		`CREATE TABLE IF NOT EXISTS conversation_turns (
			turn_id INTEGER PRIMARY KEY AUTOINCREMENT,
			whatsapp_id TEXT NOT NULL,
			role TEXT NOT NULL,
			tool_name TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_turns_user ON conversation_turns(whatsapp_id, turn_id)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, m)
		}
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// GetProfile retrieves a profile by WhatsApp id. Returns nil when absent.
func (s *SQLiteStore) GetProfile(ctx context.Context, whatsappID string) (*domain.UserProfile, error) {
	var p domain.UserProfile
	err := s.db.QueryRowContext(ctx,
		`SELECT whatsapp_id, name, email, phone, tax_id, customer_id, created_at, updated_at
		 FROM profiles WHERE whatsapp_id = ?`,
		whatsappID).Scan(&p.WhatsAppID, &p.Name, &p.Email, &p.Phone, &p.TaxID, &p.CustomerID, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// PutProfile inserts or replaces a profile.
func (s *SQLiteStore) PutProfile(ctx context.Context, profile *domain.UserProfile) error {
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO profiles (whatsapp_id, name, email, phone, tax_id, customer_id, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.WhatsAppID, profile.Name, profile.Email, profile.Phone, profile.TaxID, profile.CustomerID,
		profile.CreatedAt, profile.UpdatedAt)
	return err
}

// PutDonation inserts or replaces a donation record.
func (s *SQLiteStore) PutDonation(ctx context.Context, donation *domain.DonationRecord) error {
	now := time.Now().UTC()
	if donation.CreatedAt.IsZero() {
		donation.CreatedAt = now
	}
	donation.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO donations (donation_id, whatsapp_id, value, due_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		donation.ID, donation.WhatsAppID, donation.Value.String(), donation.DueDate, donation.Status,
		donation.CreatedAt, donation.UpdatedAt)
	return err
}

// ListDonations lists donations for a WhatsApp id, oldest first.
func (s *SQLiteStore) ListDonations(ctx context.Context, whatsappID string) ([]domain.DonationRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT donation_id, whatsapp_id, value, due_date, status, created_at, updated_at
		 FROM donations WHERE whatsapp_id = ? ORDER BY created_at ASC`,
		whatsappID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var donations []domain.DonationRecord
	for rows.Next() {
		var d domain.DonationRecord
		var value string
		if err := rows.Scan(&d.ID, &d.WhatsAppID, &value, &d.DueDate, &d.Status, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		if d.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("corrupt donation value %q: %w", value, err)
		}
		donations = append(donations, d)
	}
	return donations, rows.Err()
}

// PutSubscription inserts or replaces a subscription record.
func (s *SQLiteStore) PutSubscription(ctx context.Context, sub *domain.SubscriptionRecord) error {
	now := time.Now().UTC()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = now
	}
	sub.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO subscriptions (subscription_id, whatsapp_id, value, next_due_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.WhatsAppID, sub.Value.String(), sub.NextDueDate, sub.Status, sub.CreatedAt, sub.UpdatedAt)
	return err
}

// ListSubscriptions lists subscriptions for a WhatsApp id, oldest first.
func (s *SQLiteStore) ListSubscriptions(ctx context.Context, whatsappID string) ([]domain.SubscriptionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT subscription_id, whatsapp_id, value, next_due_date, status, created_at, updated_at
		 FROM subscriptions WHERE whatsapp_id = ? ORDER BY created_at ASC`,
		whatsappID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []domain.SubscriptionRecord
	for rows.Next() {
		var sub domain.SubscriptionRecord
		var value string
		if err := rows.Scan(&sub.ID, &sub.WhatsAppID, &value, &sub.NextDueDate, &sub.Status, &sub.CreatedAt, &sub.UpdatedAt); err != nil {
			return nil, err
		}
		if sub.Value, err = decimal.NewFromString(value); err != nil {
			return nil, fmt.Errorf("corrupt subscription value %q: %w", value, err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// AppendTurn archives a conversation turn.
func (s *SQLiteStore) AppendTurn(ctx context.Context, turn *domain.ArchivedTurn) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversation_turns (whatsapp_id, role, tool_name, content, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		turn.WhatsAppID, string(turn.Role), turn.ToolName, turn.Content, turn.CreatedAt)
	return err
}

// ListTurns returns the most recent archived turns, oldest first.
func (s *SQLiteStore) ListTurns(ctx context.Context, whatsappID string, limit int) ([]domain.ArchivedTurn, error) {
	query := `SELECT whatsapp_id, role, tool_name, content, created_at
		 FROM conversation_turns WHERE whatsapp_id = ? ORDER BY turn_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, whatsappID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var turns []domain.ArchivedTurn
	for rows.Next() {
		var turn domain.ArchivedTurn
		var role string
		if err := rows.Scan(&turn.WhatsAppID, &role, &turn.ToolName, &turn.Content, &turn.CreatedAt); err != nil {
			return nil, err
		}
		turn.Role = domain.Role(role)
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

var _ Store = (*SQLiteStore)(nil)
