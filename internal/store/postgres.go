package store

import (
	"context"
	"database/sql"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"manifestun/internal/models"
)

// Postgres implements Store over sqlx.
type Postgres struct {
	db *sqlx.DB
}

func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

const userColumns = `id, whop_user_id, email, display_name, current_phase, signal_strength_score, level, journal_streak, badges, created_at, last_active, updated_at`

func (p *Postgres) GetUserByWhopID(ctx context.Context, whopUserID string) (*models.UserProfile, error) {
	var u models.UserProfile
	err := p.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM user_profiles WHERE whop_user_id=$1`, whopUserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (p *Postgres) CreateUser(ctx context.Context, user *models.UserProfile) error {
	return p.db.QueryRowxContext(ctx, `
		INSERT INTO user_profiles (whop_user_id, email, display_name, current_phase, signal_strength_score, level, journal_streak, badges)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+userColumns,
		user.WhopUserID, user.Email, user.DisplayName, user.CurrentPhase,
		user.SignalStrengthScore, user.Level, user.JournalStreak, user.Badges,
	).StructScan(user)
}

func (p *Postgres) TouchLastActive(ctx context.Context, whopUserID string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE user_profiles SET last_active=NOW(), updated_at=NOW() WHERE whop_user_id=$1`, whopUserID)
	return err
}

func (p *Postgres) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error {
	res, err := p.db.ExecContext(ctx, `UPDATE user_profiles SET display_name=$2, updated_at=NOW() WHERE id=$1`, userID, displayName)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) GetConversation(ctx context.Context, userID uuid.UUID) (*models.Conversation, error) {
	var c models.Conversation
	err := p.db.GetContext(ctx, &c, `SELECT id, user_id, messages, created_at, updated_at FROM ai_conversations WHERE user_id=$1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// SaveConversation writes the whole turn history in one upsert keyed by the
// owning user; a user has at most one conversation.
func (p *Postgres) SaveConversation(ctx context.Context, userID uuid.UUID, messages models.Messages) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO ai_conversations (user_id, messages)
		VALUES ($1, $2)
		ON CONFLICT (user_id)
		DO UPDATE SET messages = EXCLUDED.messages, updated_at = NOW()`,
		userID, messages)
	return err
}

func (p *Postgres) UpsertProgress(ctx context.Context, rec *models.WorkbookProgress) (*models.WorkbookProgress, error) {
	var saved models.WorkbookProgress
	err := p.db.QueryRowxContext(ctx, `
		INSERT INTO workbook_progress (user_id, phase, exercise_key, data, completed, completed_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, CASE WHEN $5 THEN NOW() ELSE NULL END, NOW())
		ON CONFLICT (user_id, phase, exercise_key)
		DO UPDATE SET
			data = EXCLUDED.data,
			completed = EXCLUDED.completed,
			completed_at = EXCLUDED.completed_at,
			updated_at = NOW()
		RETURNING id, user_id, phase, exercise_key, data, completed, completed_at, updated_at`,
		rec.UserID, rec.Phase, rec.ExerciseKey, rec.Data, rec.Completed,
	).StructScan(&saved)
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func (p *Postgres) ListProgress(ctx context.Context, userID uuid.UUID, phase int) ([]models.WorkbookProgress, error) {
	query := `SELECT id, user_id, phase, exercise_key, data, completed, completed_at, updated_at
		FROM workbook_progress WHERE user_id=$1`
	args := []interface{}{userID}
	if phase >= 1 && phase <= 10 {
		query += ` AND phase=$2`
		args = append(args, phase)
	}
	query += ` ORDER BY phase, exercise_key`

	out := []models.WorkbookProgress{}
	if err := p.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// AdvancePhase bumps current_phase by one iff it still equals the triggering
// phase, is below the maximum, and every recorded exercise of that phase is
// completed. The check and the write are a single conditional update, so two
// racing saves cannot double-advance.
func (p *Postgres) AdvancePhase(ctx context.Context, userID uuid.UUID, phase int) (bool, error) {
	res, err := p.db.ExecContext(ctx, `
		UPDATE user_profiles
		SET current_phase = current_phase + 1, updated_at = NOW()
		WHERE id = $1
		  AND current_phase = $2
		  AND current_phase < 10
		  AND EXISTS (
			SELECT 1 FROM workbook_progress WHERE user_id = $1 AND phase = $2
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM workbook_progress WHERE user_id = $1 AND phase = $2 AND completed = false
		  )`,
		userID, phase)
	if err != nil {
		return false, err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}

func (p *Postgres) CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error {
	return p.db.QueryRowxContext(ctx, `
		INSERT INTO journal_entries (user_id, type, content, ai_analysis, linked_phase)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, type, content, ai_analysis, linked_phase, created_at`,
		entry.UserID, entry.Type, entry.Content, entry.AIAnalysis, entry.LinkedPhase,
	).StructScan(entry)
}

func (p *Postgres) ListJournalEntries(ctx context.Context, userID uuid.UUID, entryType string, limit int) ([]models.JournalEntry, error) {
	query := `SELECT id, user_id, type, content, ai_analysis, linked_phase, created_at
		FROM journal_entries WHERE user_id=$1`
	args := []interface{}{userID}
	if entryType != "" {
		query += ` AND type=$2`
		args = append(args, entryType)
	}
	if limit <= 0 {
		limit = 50
	}
	query += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	out := []models.JournalEntry{}
	if err := p.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// BumpJournalStreak extends the streak when entryID is the first entry of the
// day: +1 if an entry exists for yesterday, otherwise the streak restarts at 1.
func (p *Postgres) BumpJournalStreak(ctx context.Context, userID, entryID uuid.UUID) error {
	_, err := p.db.ExecContext(ctx, `
		UPDATE user_profiles p
		SET journal_streak = CASE
			WHEN EXISTS (
				SELECT 1 FROM journal_entries e
				WHERE e.user_id = p.id AND e.id <> $2 AND e.created_at::date = CURRENT_DATE - 1
			) THEN p.journal_streak + 1
			ELSE 1
		END,
		updated_at = NOW()
		WHERE p.id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM journal_entries e
			WHERE e.user_id = p.id AND e.id <> $2 AND e.created_at::date = CURRENT_DATE
		  )`,
		userID, entryID)
	return err
}

func (p *Postgres) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO subscription_status (user_id, plan_name, status, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id)
		DO UPDATE SET
			plan_name = EXCLUDED.plan_name,
			status = EXCLUDED.status,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()`,
		sub.UserID, sub.PlanName, sub.Status, sub.ExpiresAt)
	return err
}

func (p *Postgres) GetDashboardStats(ctx context.Context, userID uuid.UUID, currentPhase int) (*DashboardStats, error) {
	var stats DashboardStats
	err := p.db.QueryRowxContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM journal_entries WHERE user_id=$1) AS total_entries,
			(SELECT COUNT(*) FROM journal_entries WHERE user_id=$1
				AND created_at >= date_trunc('week', CURRENT_DATE)) AS entries_this_week,
			(SELECT COUNT(*) FROM workbook_progress WHERE user_id=$1
				AND phase=$2 AND completed=true) AS completed_in_current_phase`,
		userID, currentPhase,
	).StructScan(&stats)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
