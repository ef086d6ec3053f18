package handlers

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"manifestun/internal/models"
	"manifestun/internal/store"
)

type advanceCall struct {
	userID uuid.UUID
	phase  int
}

// fakeStore is an in-memory store.Store used by the handler tests.
type fakeStore struct {
	users map[string]*models.UserProfile // keyed by whop user id

	created []*models.UserProfile
	touched []string

	conversations map[uuid.UUID]models.Messages
	saveConvErr   error
	saveConvCalls int

	progress          map[string]*models.WorkbookProgress
	upsertProgressErr error
	advanceCalls      []advanceCall
	advanceResult     bool
	advanceErr        error

	entries        []*models.JournalEntry
	createEntryErr error
	streakCalls    int

	subscriptions map[uuid.UUID]*models.Subscription

	getUserErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:         map[string]*models.UserProfile{},
		conversations: map[uuid.UUID]models.Messages{},
		progress:      map[string]*models.WorkbookProgress{},
		subscriptions: map[uuid.UUID]*models.Subscription{},
	}
}

func (f *fakeStore) addUser(whopID string, phase int) *models.UserProfile {
	name := "Seeker"
	u := &models.UserProfile{
		ID:           uuid.New(),
		WhopUserID:   whopID,
		DisplayName:  &name,
		CurrentPhase: phase,
		Level:        "Seeker",
		Badges:       models.Badges{},
		CreatedAt:    time.Now(),
		LastActive:   time.Now(),
	}
	f.users[whopID] = u
	return u
}

func (f *fakeStore) GetUserByWhopID(_ context.Context, whopUserID string) (*models.UserProfile, error) {
	if f.getUserErr != nil {
		return nil, f.getUserErr
	}
	u, ok := f.users[whopUserID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) CreateUser(_ context.Context, user *models.UserProfile) error {
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.LastActive = user.CreatedAt
	f.users[user.WhopUserID] = user
	f.created = append(f.created, user)
	return nil
}

func (f *fakeStore) TouchLastActive(_ context.Context, whopUserID string) error {
	f.touched = append(f.touched, whopUserID)
	if u, ok := f.users[whopUserID]; ok {
		u.LastActive = time.Now()
	}
	return nil
}

func (f *fakeStore) UpdateDisplayName(_ context.Context, userID uuid.UUID, displayName string) error {
	for _, u := range f.users {
		if u.ID == userID {
			u.DisplayName = &displayName
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeStore) GetConversation(_ context.Context, userID uuid.UUID) (*models.Conversation, error) {
	msgs, ok := f.conversations[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.Conversation{ID: uuid.New(), UserID: userID, Messages: msgs}, nil
}

func (f *fakeStore) SaveConversation(_ context.Context, userID uuid.UUID, messages models.Messages) error {
	f.saveConvCalls++
	if f.saveConvErr != nil {
		return f.saveConvErr
	}
	f.conversations[userID] = messages
	return nil
}

func progressKey(userID uuid.UUID, phase int, exerciseKey string) string {
	return fmt.Sprintf("%s/%d/%s", userID, phase, exerciseKey)
}

func (f *fakeStore) UpsertProgress(_ context.Context, rec *models.WorkbookProgress) (*models.WorkbookProgress, error) {
	if f.upsertProgressErr != nil {
		return nil, f.upsertProgressErr
	}
	key := progressKey(rec.UserID, rec.Phase, rec.ExerciseKey)
	saved, ok := f.progress[key]
	if !ok {
		saved = &models.WorkbookProgress{ID: uuid.New(), UserID: rec.UserID, Phase: rec.Phase, ExerciseKey: rec.ExerciseKey}
		f.progress[key] = saved
	}
	saved.Data = rec.Data
	saved.Completed = rec.Completed
	if rec.Completed {
		now := time.Now()
		saved.CompletedAt = &now
	} else {
		saved.CompletedAt = nil
	}
	saved.UpdatedAt = time.Now()
	return saved, nil
}

func (f *fakeStore) ListProgress(_ context.Context, userID uuid.UUID, phase int) ([]models.WorkbookProgress, error) {
	out := []models.WorkbookProgress{}
	for _, rec := range f.progress {
		if rec.UserID != userID {
			continue
		}
		if phase != 0 && rec.Phase != phase {
			continue
		}
		out = append(out, *rec)
	}
	return out, nil
}

func (f *fakeStore) AdvancePhase(_ context.Context, userID uuid.UUID, phase int) (bool, error) {
	f.advanceCalls = append(f.advanceCalls, advanceCall{userID: userID, phase: phase})
	if f.advanceErr != nil {
		return false, f.advanceErr
	}
	if f.advanceResult {
		for _, u := range f.users {
			if u.ID == userID && u.CurrentPhase == phase && phase < 10 {
				u.CurrentPhase++
				return true, nil
			}
		}
	}
	return false, nil
}

func (f *fakeStore) CreateJournalEntry(_ context.Context, entry *models.JournalEntry) error {
	if f.createEntryErr != nil {
		return f.createEntryErr
	}
	entry.ID = uuid.New()
	entry.CreatedAt = time.Now()
	stored := *entry
	f.entries = append(f.entries, &stored)
	return nil
}

func (f *fakeStore) ListJournalEntries(_ context.Context, userID uuid.UUID, entryType string, limit int) ([]models.JournalEntry, error) {
	out := []models.JournalEntry{}
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		e := f.entries[i]
		if e.UserID != userID {
			continue
		}
		if entryType != "" && e.Type != entryType {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f *fakeStore) BumpJournalStreak(_ context.Context, _, _ uuid.UUID) error {
	f.streakCalls++
	return nil
}

func (f *fakeStore) UpsertSubscription(_ context.Context, sub *models.Subscription) error {
	f.subscriptions[sub.UserID] = sub
	return nil
}

func (f *fakeStore) GetDashboardStats(_ context.Context, userID uuid.UUID, currentPhase int) (*store.DashboardStats, error) {
	stats := &store.DashboardStats{}
	for _, e := range f.entries {
		if e.UserID == userID {
			stats.TotalEntries++
		}
	}
	for _, rec := range f.progress {
		if rec.UserID == userID && rec.Phase == currentPhase && rec.Completed {
			stats.CompletedInCurrentPhase++
		}
	}
	return stats, nil
}

var _ store.Store = (*fakeStore)(nil)
