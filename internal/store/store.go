package store

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"manifestun/internal/models"
)

// ErrNotFound is returned when a point lookup matches no row.
var ErrNotFound = errors.New("not found")

// DashboardStats powers the dashboard endpoint.
type DashboardStats struct {
	TotalEntries            int `db:"total_entries" json:"total_entries"`
	EntriesThisWeek         int `db:"entries_this_week" json:"entries_this_week"`
	CompletedInCurrentPhase int `db:"completed_in_current_phase" json:"completed_in_current_phase"`
}

// Store is the persistence surface the handlers operate against. The
// Postgres implementation lives in this package; tests substitute fakes.
type Store interface {
	GetUserByWhopID(ctx context.Context, whopUserID string) (*models.UserProfile, error)
	CreateUser(ctx context.Context, user *models.UserProfile) error
	TouchLastActive(ctx context.Context, whopUserID string) error
	UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error

	GetConversation(ctx context.Context, userID uuid.UUID) (*models.Conversation, error)
	SaveConversation(ctx context.Context, userID uuid.UUID, messages models.Messages) error

	UpsertProgress(ctx context.Context, rec *models.WorkbookProgress) (*models.WorkbookProgress, error)
	ListProgress(ctx context.Context, userID uuid.UUID, phase int) ([]models.WorkbookProgress, error)
	AdvancePhase(ctx context.Context, userID uuid.UUID, phase int) (bool, error)

	CreateJournalEntry(ctx context.Context, entry *models.JournalEntry) error
	ListJournalEntries(ctx context.Context, userID uuid.UUID, entryType string, limit int) ([]models.JournalEntry, error)
	BumpJournalStreak(ctx context.Context, userID, entryID uuid.UUID) error

	UpsertSubscription(ctx context.Context, sub *models.Subscription) error
	GetDashboardStats(ctx context.Context, userID uuid.UUID, currentPhase int) (*DashboardStats, error)
}
