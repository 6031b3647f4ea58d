// Package registry owns the loaded classifiers.
//
// Every catalog descriptor gets one Entry when the registry is built; entries
// are never added or removed afterwards, so the entry map is read without
// locks. Each entry publishes its loaded handle through an atomic pointer:
// Load and Reload build the new handle completely and install it with a single
// swap, so readers observe either the previous handle or the new one.
package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/catalog"
	"github.com/anime-shed/leaf-health-go/internal/inference"
	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// Loader turns a descriptor into a ready predictor.
type Loader interface {
	Load(ctx context.Context, desc catalog.Descriptor) (inference.Predictor, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, desc catalog.Descriptor) (inference.Predictor, error)

func (f LoaderFunc) Load(ctx context.Context, desc catalog.Descriptor) (inference.Predictor, error) {
	return f(ctx, desc)
}

// ArtifactFetcher retrieves a missing model artifact into desc.ArtifactPath.
type ArtifactFetcher interface {
	FetchArtifact(ctx context.Context, desc catalog.Descriptor) error
}

// Status is the capability summary of one catalog entry.
type Status struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Available    bool   `json:"available"`
	ClassesCount int    `json:"classes_count"`
	ImageSize    [2]int `json:"image_size"`
}

// LoadReport summarises a LoadAll pass.
type LoadReport struct {
	Total    int
	Loaded   int
	Failures map[string]error
}

// Entry is one catalog slot.
type Entry struct {
	desc   catalog.Descriptor
	handle atomic.Pointer[loadedModel]
	// mu serialises Load/Reload of this entry; readers never take it.
	mu sync.Mutex
}

// Descriptor returns the entry's descriptor.
func (e *Entry) Descriptor() catalog.Descriptor {
	return e.desc
}

// Registry is safe for concurrent use.
type Registry struct {
	cat     *catalog.Catalog
	loader  Loader
	fetcher ArtifactFetcher
	entries map[string]*Entry
}

// Option customises a Registry.
type Option func(*Registry)

// WithArtifactFetcher lets Load pull missing artifacts from remote storage.
func WithArtifactFetcher(f ArtifactFetcher) Option {
	return func(r *Registry) {
		r.fetcher = f
	}
}

// New creates one empty entry per catalog descriptor.
func New(cat *catalog.Catalog, loader Loader, opts ...Option) *Registry {
	r := &Registry{
		cat:     cat,
		loader:  loader,
		entries: make(map[string]*Entry, cat.Len()),
	}
	for _, d := range cat.Descriptors() {
		r.entries[d.ID] = &Entry{desc: d}
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the descriptor table the registry was built from.
func (r *Registry) Catalog() *catalog.Catalog {
	return r.cat
}

// LoadAll tries every model independently; a failure is logged and leaves
// only that model unavailable.
func (r *Registry) LoadAll(ctx context.Context) LoadReport {
	report := LoadReport{Total: r.cat.Len(), Failures: make(map[string]error)}
	logger.WithField("total_models", report.Total).Info("Loading all models")

	for _, id := range r.cat.IDs() {
		e := r.entries[id]
		if err := r.Load(ctx, id); err != nil {
			report.Failures[id] = err
			logger.WithError(err).WithFields(logrus.Fields{
				"model_id":   id,
				"model_name": e.desc.Name,
				"path":       e.desc.ArtifactPath,
			}).Warn("Model failed to load")
			continue
		}
		report.Loaded++
	}

	logger.WithFields(logrus.Fields{
		"loaded": report.Loaded,
		"total":  report.Total,
	}).Info("Model loading complete")
	return report
}

// Load opens the model's artifact and installs it. A previously loaded handle
// stays in place if opening fails.
func (r *Registry) Load(ctx context.Context, id string) error {
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := r.open(ctx, e.desc)
	if err != nil {
		return err
	}
	r.install(e, m)
	return nil
}

// Reload replaces the model's handle. On success the new handle becomes
// visible in one step; on failure the entry is evicted and the error returned.
func (r *Registry) Reload(ctx context.Context, id string) error {
	e, ok := r.entries[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	m, err := r.open(ctx, e.desc)
	if err != nil {
		if old := e.handle.Swap(nil); old != nil {
			old.retire()
		}
		logger.WithError(err).WithField("model_id", id).Error("Model reload failed, entry evicted")
		return err
	}
	r.install(e, m)
	logger.WithField("model_id", id).Info("Model reloaded")
	return nil
}

func (r *Registry) install(e *Entry, m *loadedModel) {
	if old := e.handle.Swap(m); old != nil {
		old.retire()
	}
}

func (r *Registry) open(ctx context.Context, desc catalog.Descriptor) (*loadedModel, error) {
	if err := r.ensureArtifact(ctx, desc); err != nil {
		return nil, err
	}

	p, err := r.loader.Load(ctx, desc)
	if err != nil {
		return nil, &LoadError{ModelID: desc.ID, Path: desc.ArtifactPath, Err: err}
	}

	expected := inference.ExpectedInputShape(desc)
	if declared := p.InputShape(); declared != nil && !inference.ShapeMatches(expected, declared) {
		logger.WithFields(logrus.Fields{
			"model_id": desc.ID,
			"expected": expected,
			"declared": declared,
		}).Warn("Model input shape mismatch")
	}

	logger.WithFields(logrus.Fields{
		"model_id":   desc.ID,
		"model_name": desc.Name,
		"path":       desc.ArtifactPath,
	}).Info("Model loaded")
	return &loadedModel{predictor: p, loadedAt: time.Now()}, nil
}

func (r *Registry) ensureArtifact(ctx context.Context, desc catalog.Descriptor) error {
	if _, err := os.Stat(desc.ArtifactPath); err == nil {
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return &LoadError{ModelID: desc.ID, Path: desc.ArtifactPath, Err: err}
	}

	if r.fetcher != nil {
		if err := r.fetcher.FetchArtifact(ctx, desc); err != nil {
			logger.WithError(err).WithField("model_id", desc.ID).Warn("Artifact fetch failed")
		} else if _, err := os.Stat(desc.ArtifactPath); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrArtifactMissing, desc.ArtifactPath)
}

// IsAvailable reports whether id currently has a loaded handle.
func (r *Registry) IsAvailable(id string) bool {
	e, ok := r.entries[id]
	return ok && e.handle.Load() != nil
}

// Get returns the current handle. A later Reload may retire it; callers
// running inference should use Acquire so the handle outlives the swap.
func (r *Registry) Get(id string) (inference.Predictor, catalog.Descriptor, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, catalog.Descriptor{}, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	m := e.handle.Load()
	if m == nil {
		return nil, e.desc, fmt.Errorf("%w: %s", ErrNotAvailable, id)
	}
	return m.predictor, e.desc, nil
}

// Acquire borrows the current handle for one inference call. The handle is
// not closed until the lease is released, even if a reload replaces it.
func (r *Registry) Acquire(id string) (*Lease, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModel, id)
	}
	for {
		m := e.handle.Load()
		if m == nil {
			return nil, fmt.Errorf("%w: %s", ErrNotAvailable, id)
		}
		if m.acquire() {
			return &Lease{Predictor: m.predictor, Descriptor: e.desc, LoadedAt: m.loadedAt, model: m}, nil
		}
		// m was retired between Load and acquire; the entry already holds its successor.
	}
}

// ListAvailable reports every catalog entry, loaded or not, in catalog order.
func (r *Registry) ListAvailable() []Status {
	out := make([]Status, 0, r.cat.Len())
	for _, id := range r.cat.IDs() {
		e := r.entries[id]
		out = append(out, Status{
			ID:           id,
			Name:         e.desc.Name,
			Description:  e.desc.Description,
			Available:    e.handle.Load() != nil,
			ClassesCount: e.desc.ClassCount(),
			ImageSize:    [2]int{e.desc.InputSize.Width, e.desc.InputSize.Height},
		})
	}
	return out
}

// AvailableIDs lists the ids that can serve requests right now.
func (r *Registry) AvailableIDs() []string {
	var ids []string
	for _, id := range r.cat.IDs() {
		if r.entries[id].handle.Load() != nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// LoadedCount is the number of entries holding a handle.
func (r *Registry) LoadedCount() int {
	return len(r.AvailableIDs())
}

// Close evicts every entry. Handles still leased are closed on release.
func (r *Registry) Close() error {
	for _, id := range r.cat.IDs() {
		e := r.entries[id]
		e.mu.Lock()
		if old := e.handle.Swap(nil); old != nil {
			old.retire()
		}
		e.mu.Unlock()
	}
	return nil
}
