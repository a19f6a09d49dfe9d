package seed

import (
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const demoClientID = "demo-client"

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
	// Demo adds a sample client with two students.
	Demo bool
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type subject struct {
	id          string
	name        string
	description string
}

var catalog = []subject{
	{"math", "Mathématiques", "Du collège à la prépa"},
	{"physics", "Physique", "Physique-chimie au lycée"},
	{"chemistry", "Chimie", ""},
	{"biology", "SVT", "Sciences de la vie et de la Terre"},
	{"french", "Français", "Méthodologie et préparation au bac"},
	{"english", "Anglais", ""},
	{"spanish", "Espagnol", ""},
	{"german", "Allemand", ""},
	{"history", "Histoire", ""},
	{"geography", "Géographie", ""},
	{"philosophy", "Philosophie", "Terminale"},
	{"homework", "Aide aux devoirs", "Accompagnement toutes matières"},
}

type student struct {
	id         string
	firstName  string
	lastName   string
	gradeLevel string
}

var demoStudents = []student{
	{"demo-student-1", "Léa", "Martin", "3e"},
	{"demo-student-2", "Tom", "Martin", "Terminale"},
}

// Run executes the startup seed in an idempotent way.
func Run(db *sql.DB, cfg Config, logger *zap.Logger) (Stats, error) {
	tx, err := db.Begin()
	if err != nil {
		return Stats{}, fmt.Errorf("begin seed transaction: %w", err)
	}

	stats := Stats{}

	if err := seedAdmin(tx, cfg.AdminEmail, cfg.AdminPassword, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if err := ensureSubjects(tx, &stats); err != nil {
		_ = tx.Rollback()
		return Stats{}, err
	}
	if cfg.Demo {
		if err := ensureDemoClient(tx, &stats); err != nil {
			_ = tx.Rollback()
			return Stats{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Stats{}, fmt.Errorf("commit seed transaction: %w", err)
	}

	logger.Info("seed complete", zap.Int("inserts", stats.Inserts), zap.Int("updates", stats.Updates))
	return stats, nil
}

func seedAdmin(tx *sql.Tx, email, password string, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO users (email, password_hash) VALUES (?, ?)`, email, string(hash)); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureSubjects(tx *sql.Tx, stats *Stats) error {
	for _, s := range catalog {
		var current string
		err := tx.QueryRow(`SELECT description FROM subjects WHERE id = ?`, s.id).Scan(&current)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if _, err := tx.Exec(`
				INSERT INTO subjects (id, name, description, active)
				VALUES (?, ?, ?, ?)
			`, s.id, s.name, s.description, true); err != nil {
				return fmt.Errorf("insert subject %s: %w", s.id, err)
			}
			stats.Inserts++
		case err != nil:
			return fmt.Errorf("check subject %s existence: %w", s.id, err)
		case current == "" && s.description != "":
			if _, err := tx.Exec(`UPDATE subjects SET description = ? WHERE id = ?`, s.description, s.id); err != nil {
				return fmt.Errorf("update subject %s description: %w", s.id, err)
			}
			stats.Updates++
		}
	}
	return nil
}

func ensureDemoClient(tx *sql.Tx, stats *Stats) error {
	var exists bool
	if err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM clients WHERE id = ? LIMIT 1)`, demoClientID).Scan(&exists); err != nil {
		return fmt.Errorf("check demo client existence: %w", err)
	}
	if !exists {
		if _, err := tx.Exec(`
			INSERT INTO clients (id, display_name, region_code, kind, email, phone, street, city, postal_code)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, demoClientID, "Famille Martin", "75", "existing", "claire.martin@example.com", "0601020304",
			"12 rue des Lilas", "Paris", "75011"); err != nil {
			return fmt.Errorf("insert demo client: %w", err)
		}
		stats.Inserts++
	}

	for _, st := range demoStudents {
		res, err := tx.Exec(`
			INSERT INTO students (id, client_id, first_name, last_name, grade_level)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (id) DO NOTHING
		`, st.id, demoClientID, st.firstName, st.lastName, st.gradeLevel)
		if err != nil {
			return fmt.Errorf("insert demo student %s: %w", st.id, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			stats.Inserts++
		}
	}
	return nil
}
