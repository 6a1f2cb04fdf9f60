package metrics

import (
	"testing"
	"time"

	apperrors "github.com/openlearn/adaptive-api/internal/errors"
)

type captureSink struct {
	counts  []capture
	gauges  []capture
	timings []capture
}

type capture struct {
	name string
	tags map[string]string
}

func (c *captureSink) Count(name string, _ int64, tags map[string]string) {
	c.counts = append(c.counts, capture{name, tags})
}

func (c *captureSink) Gauge(name string, _ float64, tags map[string]string) {
	c.gauges = append(c.gauges, capture{name, tags})
}

func (c *captureSink) Timing(name string, _ time.Duration, tags map[string]string) {
	c.timings = append(c.timings, capture{name, tags})
}

func TestEmitJobTransitionTagsErrorCode(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	EmitJobTransition(sink, JobMetric{
		Feature:    "diagnostic",
		Transition: TransitionFail,
		Result:     ResultError,
		Err:        apperrors.Extraction("no parsable output"),
	})

	if len(sink.counts) != 1 {
		t.Fatalf("expected one counter, got %d", len(sink.counts))
	}
	tags := sink.counts[0].tags
	if tags["feature"] != "diagnostic" || tags["transition"] != TransitionFail {
		t.Fatalf("unexpected tags %v", tags)
	}
	if tags["error_code"] != "extraction" {
		t.Fatalf("expected extraction error code, got %q", tags["error_code"])
	}
	if len(sink.timings) != 0 {
		t.Fatal("no timing expected without a duration")
	}
}

func TestEmitJobTransitionDuration(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	EmitJobTransition(sink, JobMetric{
		Feature:    "skill_tree",
		Transition: TransitionComplete,
		Result:     ResultSuccess,
		Duration:   3 * time.Second,
	})

	if len(sink.timings) != 1 || sink.timings[0].name != "job.duration" {
		t.Fatalf("expected job.duration timing, got %+v", sink.timings)
	}
}

func TestEmitNilSinkIsSafe(t *testing.T) {
	t.Parallel()

	EmitJobTransition(nil, JobMetric{Feature: "relevance"})
	EmitWorkerTasks(nil, 3)
}
