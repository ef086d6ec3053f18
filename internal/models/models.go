package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

type UserProfile struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	WhopUserID          string    `db:"whop_user_id" json:"whop_user_id"`
	Email               *string   `db:"email" json:"email,omitempty"`
	DisplayName         *string   `db:"display_name" json:"display_name,omitempty"`
	CurrentPhase        int       `db:"current_phase" json:"current_phase"`
	SignalStrengthScore int       `db:"signal_strength_score" json:"signal_strength_score"`
	Level               string    `db:"level" json:"level"`
	JournalStreak       int       `db:"journal_streak" json:"journal_streak"`
	Badges              Badges    `db:"badges" json:"badges"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	LastActive          time.Time `db:"last_active" json:"last_active"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

type Badge struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	EarnedAt    time.Time `json:"earned_at"`
}

type ChatMessage struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

type Conversation struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Messages  Messages  `db:"messages" json:"messages"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type JournalEntry struct {
	ID          uuid.UUID   `db:"id" json:"id"`
	UserID      uuid.UUID   `db:"user_id" json:"user_id"`
	Type        string      `db:"type" json:"type"`
	Content     string      `db:"content" json:"content"` // Encrypted in DB
	AIAnalysis  *AIAnalysis `db:"ai_analysis" json:"ai_analysis"`
	LinkedPhase *int        `db:"linked_phase" json:"linked_phase,omitempty"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// AIAnalysis is the structured result of the journal analysis call.
type AIAnalysis struct {
	Insights    string    `json:"insights"` // Encrypted in DB
	Sentiment   string    `json:"sentiment,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

type WorkbookProgress struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Phase       int        `db:"phase" json:"phase"`
	ExerciseKey string     `db:"exercise_key" json:"exercise_key"`
	Data        JSONMap    `db:"data" json:"data"`
	Completed   bool       `db:"completed" json:"completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

type Subscription struct {
	ID        uuid.UUID  `db:"id" json:"id"`
	UserID    uuid.UUID  `db:"user_id" json:"user_id"`
	PlanName  *string    `db:"plan_name" json:"plan_name,omitempty"`
	Status    string     `db:"status" json:"status"` // active, cancelled, expired, trialing
	ExpiresAt *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}

// JSONB column wrappers. The pgx stdlib driver hands jsonb back as []byte;
// these keep the typed shapes round-tripping through sqlx.

type Messages []ChatMessage

func (m Messages) Value() (driver.Value, error) {
	if m == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(m)
}

func (m *Messages) Scan(src any) error {
	return scanJSON(src, m)
}

type Badges []Badge

func (b Badges) Value() (driver.Value, error) {
	if b == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(b)
}

func (b *Badges) Scan(src any) error {
	return scanJSON(src, b)
}

// JSONMap holds genuinely free-form exercise payloads.
type JSONMap map[string]any

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(src any) error {
	return scanJSON(src, j)
}

func (a *AIAnalysis) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

func (a *AIAnalysis) Scan(src any) error {
	if src == nil {
		return nil
	}
	return scanJSON(src, a)
}

func scanJSON(src, dst any) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return errors.New("unsupported jsonb source type")
	}
}
