package metrics

import (
	"time"

	apperrors "github.com/openlearn/adaptive-api/internal/errors"
	"github.com/openlearn/adaptive-api/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultResumed = "resumed"
	ResultError   = "error"
)

// Transition constants shared by the batch lifecycle and the worker runner.
const (
	TransitionSubmit   = "submit"
	TransitionComplete = "complete"
	TransitionFail     = "fail"
	TransitionExpire   = "expire"
)

// JobMetric captures one lifecycle event of a generation job.
type JobMetric struct {
	Feature    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobTransition emits the standard counters for a job lifecycle event,
// plus a duration timing when one is known. Errors are tagged by their
// application error code so dashboards can split upstream failures from
// extraction failures.
func EmitJobTransition(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"feature":    in.Feature,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if code := apperrors.GetCode(in.Err); code != "" {
			tags["error_code"] = string(code)
		}
	}

	sink.Count("job.transition", 1, tags)

	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, cloneTags(tags))
	}
}

// EmitWorkerTasks records the number of in-flight background tasks.
func EmitWorkerTasks(sink statsd.Sink, active int) {
	if sink == nil {
		return
	}
	sink.Gauge("worker.active_tasks", float64(active), nil)
}

func cloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
