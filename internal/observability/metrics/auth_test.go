package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/target/mmk-auth/internal/errors"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.add(recordedMetric{kind: "count", name: name, value: float64(value), tags: tags})
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.add(recordedMetric{kind: "gauge", name: name, value: value, tags: tags})
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add(recordedMetric{kind: "timing", name: name, value: float64(value), tags: tags})
}

func (s *recordingSink) add(m recordedMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

func TestEmitAuthFlow_Success(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}

	EmitAuthFlow(sink, AuthFlowMetric{
		Flow:     "login",
		Method:   "password",
		Result:   ResultSuccess,
		Duration: 15 * time.Millisecond,
	})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, "auth.flow", sink.metrics[0].name)
	assert.Equal(t, map[string]string{"flow": "login", "method": "password", "result": "success"}, sink.metrics[0].tags)
	assert.Equal(t, "auth.flow.duration", sink.metrics[1].name)
	assert.Equal(t, "timing", sink.metrics[1].kind)
}

func TestEmitAuthFlow_ErrorClass(t *testing.T) {
	t.Parallel()
	sink := &recordingSink{}

	err := apperrors.InvalidCredentials()
	EmitAuthFlow(sink, AuthFlowMetric{Flow: "login", Result: ResultFor(err), Err: err})

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, "error", sink.metrics[0].tags["result"])
	assert.Equal(t, "invalid_credentials", sink.metrics[0].tags["error_class"])
	_, hasMethod := sink.metrics[0].tags["method"]
	assert.False(t, hasMethod)
}

func TestEmitAuthFlow_NilSink(t *testing.T) {
	t.Parallel()
	EmitAuthFlow(nil, AuthFlowMetric{Flow: "login"})
}

func TestCloneTags(t *testing.T) {
	t.Parallel()
	assert.Nil(t, CloneTags(nil))

	src := map[string]string{"flow": "logout"}
	cp := CloneTags(src)
	cp["flow"] = "changed"
	assert.Equal(t, "logout", src["flow"])
}
