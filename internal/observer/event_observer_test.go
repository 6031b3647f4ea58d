package observer

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/anime-shed/leaf-health-go/internal/logger"
)

func TestMain(m *testing.M) {
	logger.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func TestMetricsObserver_Counts(t *testing.T) {
	metrics := NewMetricsObserver()
	pub := NewEventPublisher()
	pub.Subscribe(metrics)

	ctx := context.Background()
	pub.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted, ModelID: "model1"})
	pub.NotifyObservers(ctx, AnalysisEvent{
		EventType:      AnalysisCompleted,
		ModelID:        "model1",
		ProcessingTime: 40 * time.Millisecond,
		Success:        true,
		Metadata:       map[string]interface{}{MetaHealthStatus: "Diseased"},
	})
	pub.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisStarted, ModelID: "model2"})
	pub.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisFailed, ModelID: "model2", ErrorType: "model_not_available"})
	pub.NotifyObservers(ctx, AnalysisEvent{EventType: ModelLoaded, ModelID: "model1"})
	pub.NotifyObservers(ctx, AnalysisEvent{EventType: ModelLoadFailed, ModelID: "model2"})
	pub.Flush()

	snap := metrics.Snapshot()
	assert.Equal(t, int64(2), snap.TotalAnalyses)
	assert.Equal(t, int64(1), snap.SuccessfulAnalyses)
	assert.Equal(t, int64(1), snap.FailedAnalyses)
	assert.Equal(t, 40.0, snap.AvgProcessingTimeMs)
	assert.Equal(t, map[string]int64{"model1": 1}, snap.ByModel)
	assert.Equal(t, map[string]int64{"Diseased": 1}, snap.ByHealthStatus)
	assert.Equal(t, map[string]int64{"model_not_available": 1}, snap.FailuresByType)
	assert.Equal(t, int64(1), snap.ModelLoads)
	assert.Equal(t, int64(1), snap.ModelLoadFailures)
}

func TestMetricsObserver_SnapshotIsACopy(t *testing.T) {
	metrics := NewMetricsObserver()
	metrics.OnEvent(context.Background(), AnalysisEvent{EventType: AnalysisCompleted, ModelID: "model3"})

	snap := metrics.Snapshot()
	snap.ByModel["model3"] = 99
	assert.Equal(t, int64(1), metrics.Snapshot().ByModel["model3"])
}

type panickingObserver struct{}

func (panickingObserver) OnEvent(context.Context, AnalysisEvent) { panic("observer bug") }
func (panickingObserver) GetObserverName() string                { return "panicking" }

type countingObserver struct {
	name string
	n    atomic.Int32
}

func (c *countingObserver) OnEvent(context.Context, AnalysisEvent) { c.n.Add(1) }
func (c *countingObserver) GetObserverName() string                { return c.name }

func TestEventPublisher_SurvivesPanicsAndUnsubscribe(t *testing.T) {
	counter := &countingObserver{name: "counter"}
	pub := NewEventPublisher()
	pub.Subscribe(panickingObserver{})
	pub.Subscribe(counter)

	pub.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})
	pub.Flush()
	assert.Equal(t, int32(1), counter.n.Load())

	pub.Unsubscribe(counter)
	pub.NotifyObservers(context.Background(), AnalysisEvent{EventType: AnalysisStarted})
	pub.Flush()
	assert.Equal(t, int32(1), counter.n.Load())
}

func TestEventPublisher_DeliversAfterCancel(t *testing.T) {
	counter := &countingObserver{name: "counter"}
	pub := NewEventPublisher()
	pub.Subscribe(counter)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pub.NotifyObservers(ctx, AnalysisEvent{EventType: AnalysisCompleted})
	pub.Flush()
	assert.Equal(t, int32(1), counter.n.Load())
}
