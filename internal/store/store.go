// Package store persists the client directory, the subject catalog and submitted
// settlement notes in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/FloCheru/crm-ABC-cours-sub003/internal/prefill"
	"github.com/FloCheru/crm-ABC-cours-sub003/internal/wizard"
)

const dueDateLayout = "2006-01-02"

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// Store implements wizard.Directory, wizard.Catalog and wizard.Settlements.
type Store struct {
	db *sql.DB
}

var (
	_ wizard.Directory   = (*Store)(nil)
	_ wizard.Catalog     = (*Store)(nil)
	_ wizard.Settlements = (*Store)(nil)
)

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Client is a directory entry used to prefill the client step.
type Client struct {
	ID          string             `json:"id"`
	DisplayName string             `json:"display_name"`
	RegionCode  string             `json:"region_code"`
	Kind        prefill.ClientKind `json:"kind"`
	Email       string             `json:"email"`
	Phone       string             `json:"phone"`
	Address     wizard.Address     `json:"address"`
}

// Settlement is a stored settlement note.
type Settlement struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	Payload   wizard.Payload `json:"payload"`
}

// SettlementSummary is one line of the settlement list.
type SettlementSummary struct {
	ID               string  `json:"id"`
	CreatedAt        string  `json:"created_at"`
	ClientID         string  `json:"client_id"`
	DisplayName      string  `json:"display_name"`
	Revenue          float64 `json:"revenue"`
	MarginPercentage float64 `json:"margin_percentage"`
}

func (s *Store) GetClient(ctx context.Context, id string) (Client, error) {
	var c Client
	var kind string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, region_code, kind, email, phone, street, city, postal_code
		FROM clients
		WHERE id = ?
	`, id).Scan(&c.ID, &c.DisplayName, &c.RegionCode, &kind, &c.Email, &c.Phone,
		&c.Address.Street, &c.Address.City, &c.Address.PostalCode)
	if errors.Is(err, sql.ErrNoRows) {
		return Client{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Client{}, fmt.Errorf("query client: %w", err)
	}
	c.Kind = prefill.ClientKind(kind)
	return c, nil
}

// Beneficiaries lists the students of a client ordered by name. An unknown client has
// no students.
func (s *Store) Beneficiaries(ctx context.Context, clientID string) ([]wizard.Student, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, first_name, last_name, grade_level
		FROM students
		WHERE client_id = ?
		ORDER BY last_name, first_name, id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}
	defer rows.Close()

	students := make([]wizard.Student, 0)
	for rows.Next() {
		var st wizard.Student
		if err := rows.Scan(&st.ID, &st.FirstName, &st.LastName, &st.GradeLevel); err != nil {
			return nil, fmt.Errorf("scan student: %w", err)
		}
		students = append(students, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate students: %w", err)
	}

	return students, nil
}

// ListSubjects returns the active subjects ordered by name.
func (s *Store) ListSubjects(ctx context.Context) ([]wizard.Subject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, description
		FROM subjects
		WHERE active = 1
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	subjects := make([]wizard.Subject, 0)
	for rows.Next() {
		var sub wizard.Subject
		if err := rows.Scan(&sub.ID, &sub.Name, &sub.Description); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}

	return subjects, nil
}

// SubmitSettlement stores the payload and its installment schedule in one transaction
// and returns the new settlement id.
func (s *Store) SubmitSettlement(ctx context.Context, payload wizard.Payload) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode settlement payload: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("begin settlement transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO settlements (id, client_id, display_name, notes, revenue, margin_amount, margin_percentage, payload_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, payload.ClientID, payload.DisplayName, payload.Notes, payload.Revenue,
		payload.MarginAmount, payload.MarginPercentage, string(body)); err != nil {
		return "", fmt.Errorf("insert settlement: %w", err)
	}

	for _, item := range payload.Schedule {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO settlement_installments (settlement_id, number, amount, due_date)
			VALUES (?, ?, ?, ?)
		`, id, item.Number, item.Amount, item.DueDate.Format(dueDateLayout)); err != nil {
			return "", fmt.Errorf("insert installment %d: %w", item.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit settlement transaction: %w", err)
	}

	return id, nil
}

func (s *Store) GetSettlement(ctx context.Context, id string) (Settlement, error) {
	var (
		body      string
		createdAt time.Time
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT payload_json, created_at
		FROM settlements
		WHERE id = ?
	`, id).Scan(&body, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Settlement{}, fmt.Errorf("settlement %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Settlement{}, fmt.Errorf("query settlement: %w", err)
	}

	out := Settlement{ID: id, CreatedAt: createdAt}
	if err := json.Unmarshal([]byte(body), &out.Payload); err != nil {
		return Settlement{}, fmt.Errorf("decode settlement payload: %w", err)
	}
	return out, nil
}

// ListSettlements returns the stored notes, newest first. A non-empty query filters on
// the display name and the notes.
func (s *Store) ListSettlements(ctx context.Context, query string) ([]SettlementSummary, error) {
	query = strings.TrimSpace(query)
	search := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, client_id, display_name, revenue, margin_percentage
		FROM settlements
		WHERE (? = '' OR display_name LIKE ? OR notes LIKE ?)
		ORDER BY datetime(created_at) DESC, id DESC
	`, query, search, search)
	if err != nil {
		return nil, fmt.Errorf("query settlements: %w", err)
	}
	defer rows.Close()

	items := make([]SettlementSummary, 0)
	for rows.Next() {
		var item SettlementSummary
		if err := rows.Scan(&item.ID, &item.CreatedAt, &item.ClientID, &item.DisplayName,
			&item.Revenue, &item.MarginPercentage); err != nil {
			return nil, fmt.Errorf("scan settlement: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settlements: %w", err)
	}

	return items, nil
}
