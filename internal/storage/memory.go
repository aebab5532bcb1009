package storage

import (
	"sort"
	"sync"

	"github.com/voicetel/freescout-nps/internal/models"
)

// The in-memory stores back tests and zero-config runs. They mirror the
// durable stores' contracts exactly, including ordering semantics.

// MemorySettings holds the settings document in memory.
type MemorySettings struct {
	mu   sync.Mutex
	data []byte
}

func NewMemorySettings() *MemorySettings {
	return &MemorySettings{}
}

func (m *MemorySettings) LoadRaw() ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MemorySettings) SaveRaw(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make([]byte, len(data))
	copy(m.data, data)
	return nil
}

// MemoryResponses keeps responses in first-stored order, which is what
// breaks created_at ties on query.
type MemoryResponses struct {
	mu        sync.Mutex
	responses []models.Response
}

func NewMemoryResponses() *MemoryResponses {
	return &MemoryResponses{}
}

func (m *MemoryResponses) Save(r models.Response) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.responses {
		if existing.ID == r.ID {
			m.responses[i] = r
			return nil
		}
	}
	m.responses = append(m.responses, r)
	return nil
}

func (m *MemoryResponses) Query(f models.ResponseFilter) ([]models.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Response, 0, len(m.responses))
	for _, r := range m.responses {
		if matches(r, f) {
			out = append(out, r)
		}
	}

	// Newest first; stable sort preserves storage order on equal timestamps.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt > out[j].CreatedAt
	})

	return paginate(out, f.Offset, f.Limit), nil
}

// MemorySurveys keeps pending surveys in queue order.
type MemorySurveys struct {
	mu      sync.Mutex
	surveys []models.PendingSurvey
}

func NewMemorySurveys() *MemorySurveys {
	return &MemorySurveys{}
}

func (m *MemorySurveys) All() ([]models.PendingSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.PendingSurvey, len(m.surveys))
	copy(out, m.surveys)
	return out, nil
}

func (m *MemorySurveys) Append(s models.PendingSurvey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.surveys = append(m.surveys, s)
	return nil
}

func (m *MemorySurveys) FindByToken(token string) (models.PendingSurvey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.surveys {
		if s.Token == token {
			return s, nil
		}
	}
	return models.PendingSurvey{}, ErrNotFound
}

func (m *MemorySurveys) HasPending(contactID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.surveys {
		if s.ContactID == contactID && s.Status == models.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (m *MemorySurveys) Update(s models.PendingSurvey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(s)
}

func (m *MemorySurveys) UpdateBatch(surveys []models.PendingSurvey) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range surveys {
		if err := m.updateLocked(s); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemorySurveys) updateLocked(s models.PendingSurvey) error {
	for i, existing := range m.surveys {
		if existing.ID == s.ID {
			m.surveys[i] = s
			return nil
		}
	}
	return ErrNotFound
}
