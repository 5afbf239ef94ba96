package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"portfolio-api/internal/models"
)

// ErrAlreadySubscribed indicates the email already has an active subscription.
var ErrAlreadySubscribed = errors.New("email already subscribed")

// ErrNotSubscribed indicates the email has no subscription record.
var ErrNotSubscribed = errors.New("email not subscribed")

const queryTimeout = 5 * time.Second

// Store persists newsletter subscribers and contact messages in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates (or opens) the SQLite database at the given path and
// initialises the schema. Parent directories are created if needed.
func Open(ctx context.Context, dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}

	connStr := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL", dbPath)
	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(2)

	st := &Store{db: db}
	if err := st.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialise schema: %w", err)
	}
	return st, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Subscribe records a newsletter subscription for email. A brand new email
// creates an active record (created=true). A previously unsubscribed email
// is reactivated in place (created=false) rather than duplicated. An email
// that is already active returns ErrAlreadySubscribed.
func (s *Store) Subscribe(ctx context.Context, email, name, ipAddress string) (models.Subscriber, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	email = normaliseEmail(email)
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return models.Subscriber{}, false, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var existing models.Subscriber
	var subscribedAt, createdAt, updatedAt string
	err = tx.QueryRowContext(ctx, `
		SELECT id, email, name, status, ip_address, subscribed_at, created_at, updated_at
		FROM subscribers WHERE email = ?
	`, email).Scan(&existing.ID, &existing.Email, &existing.Name, &existing.Status,
		&existing.IPAddress, &subscribedAt, &createdAt, &updatedAt)

	switch {
	case err == nil:
		if existing.Status == models.StatusActive {
			return models.Subscriber{}, false, ErrAlreadySubscribed
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE subscribers
			SET status = ?, subscribed_at = ?, updated_at = ?
			WHERE id = ?
		`, models.StatusActive, formatTime(now), formatTime(now), existing.ID)
		if err != nil {
			return models.Subscriber{}, false, fmt.Errorf("reactivate subscriber: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return models.Subscriber{}, false, fmt.Errorf("commit transaction: %w", err)
		}

		existing.Status = models.StatusActive
		existing.SubscribedAt = now
		existing.CreatedAt = parseTime(createdAt)
		existing.UpdatedAt = now
		return existing, false, nil

	case errors.Is(err, sql.ErrNoRows):
		res, err := tx.ExecContext(ctx, `
			INSERT INTO subscribers (email, name, status, ip_address, subscribed_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, email, name, models.StatusActive, ipAddress, formatTime(now), formatTime(now), formatTime(now))
		if err != nil {
			return models.Subscriber{}, false, fmt.Errorf("insert subscriber: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return models.Subscriber{}, false, fmt.Errorf("read subscriber id: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return models.Subscriber{}, false, fmt.Errorf("commit transaction: %w", err)
		}

		return models.Subscriber{
			ID:           id,
			Email:        email,
			Name:         name,
			Status:       models.StatusActive,
			IPAddress:    ipAddress,
			SubscribedAt: now,
			CreatedAt:    now,
			UpdatedAt:    now,
		}, true, nil

	default:
		return models.Subscriber{}, false, fmt.Errorf("query subscriber: %w", err)
	}
}

// Unsubscribe marks the subscription for email as unsubscribed. Returns
// ErrNotSubscribed when no record exists.
func (s *Store) Unsubscribe(ctx context.Context, email string) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, `
		UPDATE subscribers SET status = ?, updated_at = ? WHERE email = ?
	`, models.StatusUnsubscribed, formatTime(time.Now().UTC()), normaliseEmail(email))
	if err != nil {
		return fmt.Errorf("unsubscribe: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("read affected rows: %w", err)
	}
	if affected == 0 {
		return ErrNotSubscribed
	}
	return nil
}

// ListSubscribers returns subscribers with the given status, newest first.
func (s *Store) ListSubscribers(ctx context.Context, status string, limit int) ([]models.Subscriber, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, name, status, ip_address, subscribed_at, created_at, updated_at
		FROM subscribers
		WHERE status = ?
		ORDER BY subscribed_at DESC
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	var subscribers []models.Subscriber
	for rows.Next() {
		var sub models.Subscriber
		var subscribedAt, createdAt, updatedAt string
		if err := rows.Scan(&sub.ID, &sub.Email, &sub.Name, &sub.Status,
			&sub.IPAddress, &subscribedAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		sub.SubscribedAt = parseTime(subscribedAt)
		sub.CreatedAt = parseTime(createdAt)
		sub.UpdatedAt = parseTime(updatedAt)
		subscribers = append(subscribers, sub)
	}
	return subscribers, rows.Err()
}

// SaveContact stores a contact form submission and returns it with its
// assigned ID and timestamp.
func (s *Store) SaveContact(ctx context.Context, msg models.ContactMessage) (models.ContactMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	now := time.Now().UTC()
	msg.Email = normaliseEmail(msg.Email)

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (email, subject, message, ip_address, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.Email, msg.Subject, msg.Message, msg.IPAddress, formatTime(now))
	if err != nil {
		return models.ContactMessage{}, fmt.Errorf("insert contact: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return models.ContactMessage{}, fmt.Errorf("read contact id: %w", err)
	}

	msg.ID = id
	msg.CreatedAt = now
	return msg, nil
}

// ListContacts returns all contact messages, newest first.
func (s *Store) ListContacts(ctx context.Context) ([]models.ContactMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, email, subject, message, ip_address, created_at
		FROM contacts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	defer rows.Close()

	var contacts []models.ContactMessage
	for rows.Next() {
		var msg models.ContactMessage
		var createdAt string
		if err := rows.Scan(&msg.ID, &msg.Email, &msg.Subject, &msg.Message,
			&msg.IPAddress, &createdAt); err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		msg.CreatedAt = parseTime(createdAt)
		contacts = append(contacts, msg)
	}
	return contacts, rows.Err()
}

func normaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// timeLayout keeps a fixed fractional width so lexicographic ordering in
// SQL matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
