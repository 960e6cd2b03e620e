package metrics

import (
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/toolbench/gateway-client/pkg/logging"
)

// modelUsage accumulates per-model accounting.
type modelUsage struct {
	requests         uint64
	failures         uint64
	promptTokens     uint64
	completionTokens uint64
	lastLatency      time.Duration
}

// UsageRecorder tracks chat completion usage per model. It is safe for
// concurrent use by the streaming and non-streaming clients.
type UsageRecorder struct {
	log    logging.Logger
	mu     sync.RWMutex
	models map[string]*modelUsage
}

// NewUsageRecorder creates an empty usage recorder.
func NewUsageRecorder(log logging.Logger) *UsageRecorder {
	return &UsageRecorder{
		log:    log,
		models: make(map[string]*modelUsage),
	}
}

// Observe records a successful completion. Usage may be nil for gateways
// that omit token accounting.
func (r *UsageRecorder) Observe(model string, promptTokens, completionTokens int, latency time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.usageLocked(model)
	u.requests++
	u.promptTokens += uint64(promptTokens)
	u.completionTokens += uint64(completionTokens)
	u.lastLatency = latency
}

// ObserveFailure records a failed completion attempt.
func (r *UsageRecorder) ObserveFailure(model string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := r.usageLocked(model)
	u.requests++
	u.failures++
}

func (r *UsageRecorder) usageLocked(model string) *modelUsage {
	u, ok := r.models[model]
	if !ok {
		u = &modelUsage{}
		r.models[model] = u
	}
	return u
}

// Handler returns an HTTP handler serving the recorder's counters in
// Prometheus text exposition format.
func (r *UsageRecorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", string(expfmt.NewFormat(expfmt.TypeTextPlain)))
		if err := r.WriteText(w); err != nil {
			r.log.Warnf("Failed to write usage metrics: %v", err)
		}
	})
}

// WriteText encodes the recorder's counters as Prometheus metric families.
func (r *UsageRecorder) WriteText(w io.Writer) error {
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range r.families() {
		if err := encoder.Encode(family); err != nil {
			return err
		}
	}
	return nil
}

func (r *UsageRecorder) families() []*dto.MetricFamily {
	r.mu.RLock()
	defer r.mu.RUnlock()

	models := make([]string, 0, len(r.models))
	for model := range r.models {
		models = append(models, model)
	}
	sort.Strings(models)

	requests := newCounterFamily("gateway_chat_requests_total", "Chat completion requests issued per model.")
	failures := newCounterFamily("gateway_chat_failures_total", "Failed chat completion requests per model.")
	promptTokens := newCounterFamily("gateway_prompt_tokens_total", "Prompt tokens consumed per model.")
	completionTokens := newCounterFamily("gateway_completion_tokens_total", "Completion tokens produced per model.")
	for _, model := range models {
		u := r.models[model]
		requests.Metric = append(requests.Metric, counterMetric(model, float64(u.requests)))
		failures.Metric = append(failures.Metric, counterMetric(model, float64(u.failures)))
		promptTokens.Metric = append(promptTokens.Metric, counterMetric(model, float64(u.promptTokens)))
		completionTokens.Metric = append(completionTokens.Metric, counterMetric(model, float64(u.completionTokens)))
	}
	// The text encoder rejects families without metrics, so an idle
	// recorder exposes nothing.
	var families []*dto.MetricFamily
	for _, family := range []*dto.MetricFamily{requests, failures, promptTokens, completionTokens} {
		if len(family.Metric) > 0 {
			families = append(families, family)
		}
	}
	return families
}

func newCounterFamily(name, help string) *dto.MetricFamily {
	return &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
}

func counterMetric(model string, value float64) *dto.Metric {
	return &dto.Metric{
		Label: []*dto.LabelPair{
			{
				Name:  proto.String("model"),
				Value: proto.String(model),
			},
		},
		Counter: &dto.Counter{Value: proto.Float64(value)},
	}
}
