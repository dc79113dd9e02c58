package metrics

import (
	"time"

	obserrors "github.com/target/mmk-auth/internal/observability/errors"
	"github.com/target/mmk-auth/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// AuthFlowMetric captures the outcome of one orchestrated auth flow.
type AuthFlowMetric struct {
	Flow     string
	Method   string
	Result   string
	Duration time.Duration
	Err      error
}

// EmitAuthFlow emits standardised auth flow metrics.
func EmitAuthFlow(sink statsd.Sink, in AuthFlowMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"flow":   in.Flow,
		"result": in.Result,
	}
	if in.Method != "" {
		tags["method"] = in.Method
	}

	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("auth.flow", 1, tags)

	if in.Duration > 0 {
		sink.Timing("auth.flow.duration", in.Duration, CloneTags(tags))
	}
}

// ResultFor maps an error to the result tag.
func ResultFor(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
