package registry

import (
	"sync"
	"time"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
	"github.com/anime-shed/leaf-health-go/internal/inference"
	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// loadedModel is immutable once published except for its reference count.
type loadedModel struct {
	predictor inference.Predictor
	loadedAt  time.Time

	mu      sync.Mutex
	refs    int
	retired bool
}

func (m *loadedModel) acquire() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retired {
		return false
	}
	m.refs++
	return true
}

func (m *loadedModel) release() {
	m.mu.Lock()
	m.refs--
	closeNow := m.retired && m.refs == 0
	m.mu.Unlock()
	if closeNow {
		m.close()
	}
}

// retire marks the model as replaced; it is closed once the last lease ends.
func (m *loadedModel) retire() {
	m.mu.Lock()
	m.retired = true
	closeNow := m.refs == 0
	m.mu.Unlock()
	if closeNow {
		m.close()
	}
}

func (m *loadedModel) close() {
	if err := m.predictor.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close retired model")
	}
}

// Lease is a borrowed handle. Release must be called exactly once.
type Lease struct {
	Predictor  inference.Predictor
	Descriptor catalog.Descriptor
	LoadedAt   time.Time

	model *loadedModel
	once  sync.Once
}

func (l *Lease) Release() {
	l.once.Do(l.model.release)
}
