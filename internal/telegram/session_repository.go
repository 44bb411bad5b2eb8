package telegram

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"trip-planner/internal/database"
	"trip-planner/internal/geocode"

	"github.com/jmoiron/sqlx"
)

// Session types and states of the add-stop conversation.
const (
	SessionAddStop = "add_stop"

	StateAwaitingQuery  = "awaiting_query"
	StateAwaitingChoice = "awaiting_choice"
)

// Session represents an active user conversation (e.g. picking a
// place for a new stop). The form fields survive the round trip
// through the place search so nothing the user typed is lost.
type Session struct {
	ID          int64     `db:"id"`
	UserID      string    `db:"user_id"`
	SessionType string    `db:"session_type"`
	State       string    `db:"state"`
	ContextData string    `db:"context_data"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
}

// SessionContextData holds structured data stored in the context_data
// JSON field: the plan being edited, the in-progress form, and the
// candidate places offered to the user.
type SessionContextData struct {
	PlanID     string          `json:"plan_id"`
	Form       LocationForm    `json:"form"`
	Candidates []geocode.Place `json:"candidates,omitempty"`
}

// LocationForm carries user-entered stop fields across messages.
type LocationForm struct {
	Name      string  `json:"name,omitempty"`
	VisitDate string  `json:"visit_date,omitempty"`
	Notes     string  `json:"notes,omitempty"`
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`
}

// SessionRepository provides access to session persistence operations.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(d *database.DB) *SessionRepository {
	return &SessionRepository{db: d.SQL}
}

// Create creates a new session and returns its ID. Any previous
// session of the user is removed first: one conversation at a time.
func (sr *SessionRepository) Create(ctx context.Context, userID, sessionType, state string, contextData SessionContextData, ttl time.Duration) (int64, error) {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return 0, err
	}

	if _, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = ?`, userID); err != nil {
		return 0, fmt.Errorf("failed to clear previous sessions: %w", err)
	}

	now := time.Now().UTC()
	res, err := sr.db.ExecContext(ctx,
		`INSERT INTO sessions (user_id, session_type, state, context_data, expires_at, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, sessionType, state, string(jsonData), now.Add(ttl), now)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return res.LastInsertId()
}

// GetActive retrieves the most recent non-expired session for a user,
// or nil when the user has no conversation in progress.
func (sr *SessionRepository) GetActive(ctx context.Context, userID string, now time.Time) (*Session, error) {
	var s Session
	err := sr.db.GetContext(ctx, &s,
		`SELECT * FROM sessions WHERE user_id = ? AND expires_at > ?
		 ORDER BY created_at DESC LIMIT 1`, userID, now)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch session: %w", err)
	}
	return &s, nil
}

// GetContextData unmarshals the context_data JSON field.
func (s *Session) GetContextData() (SessionContextData, error) {
	var data SessionContextData
	err := json.Unmarshal([]byte(s.ContextData), &data)
	return data, err
}

// Update updates the state and context_data for a session.
func (sr *SessionRepository) Update(ctx context.Context, sessionID int64, state string, contextData SessionContextData) error {
	jsonData, err := json.Marshal(contextData)
	if err != nil {
		return err
	}

	_, err = sr.db.ExecContext(ctx,
		`UPDATE sessions SET state = ?, context_data = ? WHERE id = ?`,
		state, string(jsonData), sessionID)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	return nil
}

// Delete removes a session.
func (sr *SessionRepository) Delete(ctx context.Context, sessionID int64) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// CleanupExpired removes all expired sessions.
func (sr *SessionRepository) CleanupExpired(ctx context.Context) error {
	_, err := sr.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to clean up sessions: %w", err)
	}
	return nil
}
