package profile

import (
	"context"
	"sync"
	"time"

	"github.com/dharsanguruparan/ResumeDrop/internal/model"
)

// MemoryStore keeps upload history in process. It backs the API when no
// Mongo URI is configured and is used by tests.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]*model.UploadHistory
	// strict rejects uploads for users that were never registered.
	strict bool
}

// NewMemoryStore returns a store that creates profiles on first upload.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]*model.UploadHistory)}
}

// NewStrictMemoryStore returns a store that only accepts registered users.
func NewStrictMemoryStore(userIDs ...string) *MemoryStore {
	m := &MemoryStore{users: make(map[string]*model.UploadHistory), strict: true}
	for _, id := range userIDs {
		m.users[id] = &model.UploadHistory{}
	}
	return m
}

// AddUpload appends record to the user's history.
func (m *MemoryStore) AddUpload(_ context.Context, userID string, record model.UploadRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.users[userID]
	if !ok {
		if m.strict {
			return ErrNotFound
		}
		h = &model.UploadHistory{}
		m.users[userID] = h
	}
	if record.UploadedAt.IsZero() {
		record.UploadedAt = time.Now().UTC()
	}
	if record.FileType == model.FileTypeResume {
		h.Resumes = append(h.Resumes, record)
	} else {
		h.JobDescriptions = append(h.JobDescriptions, record)
	}
	return nil
}

// Uploads returns a copy of the user's history.
func (m *MemoryStore) Uploads(_ context.Context, userID string) (model.UploadHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.users[userID]
	if !ok {
		return model.UploadHistory{}, ErrNotFound
	}
	return model.UploadHistory{
		Resumes:         append([]model.UploadRecord(nil), h.Resumes...),
		JobDescriptions: append([]model.UploadRecord(nil), h.JobDescriptions...),
	}, nil
}

// Close is a no-op.
func (m *MemoryStore) Close(context.Context) error { return nil }
