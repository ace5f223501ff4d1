package core

import "context"

// NopMetricsRecorder discards every lifecycle measurement. It is the
// default recorder so pairing and connection flows never need a nil check
// before counting an operation.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

// cloneTags copies operation tags before handing them to a recorder so a
// recorder that retains the map cannot see later mutations.
func cloneTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return map[string]string{}
	}
	copied := make(map[string]string, len(tags))
	for key, value := range tags {
		copied[key] = value
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
