package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

// AnalysisEvent represents a leaf analysis or model lifecycle event
type AnalysisEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	ModelID        string                 `json:"model_id,omitempty"`
	Filename       string                 `json:"filename,omitempty"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of analysis event
type EventType string

const (
	// AnalysisStarted when analysis begins
	AnalysisStarted EventType = "analysis_started"
	// AnalysisCompleted when analysis finishes successfully
	AnalysisCompleted EventType = "analysis_completed"
	// AnalysisFailed when analysis fails
	AnalysisFailed EventType = "analysis_failed"
	// ModelLoaded when a model handle is installed
	ModelLoaded EventType = "model_loaded"
	// ModelLoadFailed when a model could not be loaded or reloaded
	ModelLoadFailed EventType = "model_load_failed"
)

// Metadata keys set by the analysis service.
const (
	MetaHealthStatus = "health_status"
	MetaSeverity     = "severity_level"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event AnalysisEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event AnalysisEvent)
}

// LoggingObserver logs analysis events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles analysis events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	fields := logrus.Fields{
		"event_type": event.EventType,
		"model_id":   event.ModelID,
		"success":    event.Success,
	}
	if event.Filename != "" {
		fields["filename"] = event.Filename
	}
	if event.ProcessingTime > 0 {
		fields["processing_time"] = event.ProcessingTime.String()
	}
	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}
	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case AnalysisStarted:
		entry.Debug("Leaf analysis started")
	case AnalysisCompleted:
		entry.Info("Leaf analysis completed")
	case AnalysisFailed:
		entry.Error("Leaf analysis failed")
	case ModelLoaded:
		entry.Info("Model loaded")
	case ModelLoadFailed:
		entry.Error("Model load failed")
	default:
		entry.Info("Analysis event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// MetricsSnapshot is a point-in-time copy of the collected counters.
type MetricsSnapshot struct {
	TotalAnalyses       int64            `json:"total_analyses"`
	SuccessfulAnalyses  int64            `json:"successful_analyses"`
	FailedAnalyses      int64            `json:"failed_analyses"`
	AvgProcessingTimeMs float64          `json:"avg_processing_time_ms"`
	ByModel             map[string]int64 `json:"by_model"`
	ByHealthStatus      map[string]int64 `json:"by_health_status"`
	FailuresByType      map[string]int64 `json:"failures_by_type"`
	ModelLoads          int64            `json:"model_loads"`
	ModelLoadFailures   int64            `json:"model_load_failures"`
}

// MetricsObserver collects metrics from analysis events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalAnalyses       int64
	successfulAnalyses  int64
	failedAnalyses      int64
	totalProcessingTime time.Duration
	byModel             map[string]int64
	byHealthStatus      map[string]int64
	failuresByType      map[string]int64
	modelLoads          int64
	modelLoadFailures   int64
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{
		byModel:        make(map[string]int64),
		byHealthStatus: make(map[string]int64),
		failuresByType: make(map[string]int64),
	}
}

// OnEvent handles analysis events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event AnalysisEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case AnalysisStarted:
		o.totalAnalyses++
	case AnalysisCompleted:
		o.successfulAnalyses++
		o.totalProcessingTime += event.ProcessingTime
		o.byModel[event.ModelID]++
		if status, ok := event.Metadata[MetaHealthStatus].(string); ok {
			o.byHealthStatus[status]++
		}
	case AnalysisFailed:
		o.failedAnalyses++
		o.failuresByType[event.ErrorType]++
	case ModelLoaded:
		o.modelLoads++
	case ModelLoadFailed:
		o.modelLoadFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// Snapshot returns current metrics
func (o *MetricsObserver) Snapshot() MetricsSnapshot {
	o.mu.RLock()
	defer o.mu.RUnlock()

	var avg float64
	if o.successfulAnalyses > 0 {
		avg = float64(o.totalProcessingTime.Milliseconds()) / float64(o.successfulAnalyses)
	}

	return MetricsSnapshot{
		TotalAnalyses:       o.totalAnalyses,
		SuccessfulAnalyses:  o.successfulAnalyses,
		FailedAnalyses:      o.failedAnalyses,
		AvgProcessingTimeMs: avg,
		ByModel:             copyCounts(o.byModel),
		ByHealthStatus:      copyCounts(o.byHealthStatus),
		FailuresByType:      copyCounts(o.failuresByType),
		ModelLoads:          o.modelLoads,
		ModelLoadFailures:   o.modelLoadFailures,
	}
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
	wg        sync.WaitGroup
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers notifies all observers of an event. Delivery is
// asynchronous and outlives ctx cancellation.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event AnalysisEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	ctx = context.WithoutCancel(ctx)

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	for _, observer := range observers {
		p.wg.Add(1)
		go func(obs Observer) {
			defer p.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logger.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
}

// Flush blocks until every event published so far has been delivered.
func (p *EventPublisher) Flush() {
	p.wg.Wait()
}
