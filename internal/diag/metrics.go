package diag

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 进程内指标（私有 registry，不注册到全局默认 registry）：
// - op_total{comp,stage,result}
// - error_total{comp,code}
// - op_duration_ms{comp,stage}
// - records_total{label} / tokens_total{label}

var (
	registry = prometheus.NewRegistry()

	opTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spamstat",
		Name:      "op_total",
		Help:      "Stage operations by component, stage and result.",
	}, []string{"comp", "stage", "result"})

	errorTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spamstat",
		Name:      "error_total",
		Help:      "Errors by component and classified code.",
	}, []string{"comp", "code"})

	opDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "spamstat",
		Name:      "op_duration_ms",
		Help:      "Stage duration in milliseconds.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"comp", "stage"})

	recordsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spamstat",
		Name:      "records_total",
		Help:      "Records aggregated per class label.",
	}, []string{"label"})

	tokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spamstat",
		Name:      "tokens_total",
		Help:      "Stem occurrences counted per class label.",
	}, []string{"label"})
)

func init() {
	registry.MustRegister(opTotal, errorTotal, opDuration, recordsTotal, tokensTotal)
}

// IncOp 累加操作计数（result=success|error）。
func IncOp(comp, stage, result string) {
	opTotal.WithLabelValues(comp, stage, result).Inc()
}

// IncError 按分类累加错误计数。
func IncError(comp, code string) {
	errorTotal.WithLabelValues(comp, code).Inc()
}

// ObserveDuration 记录阶段耗时（毫秒）。
func ObserveDuration(comp, stage string, durMS int64) {
	opDuration.WithLabelValues(comp, stage).Observe(float64(durMS))
}

// AddClass 记录某类的记录数与词干出现次数。
func AddClass(label string, records, tokens int) {
	recordsTotal.WithLabelValues(label).Add(float64(records))
	tokensTotal.WithLabelValues(label).Add(float64(tokens))
}

// Gatherer 暴露私有 registry（测试与导出使用）。
func Gatherer() prometheus.Gatherer { return registry }

// WriteMetricsFile 以 Prometheus 文本格式写出当前指标（原子替换）。
func WriteMetricsFile(path string) error {
	return prometheus.WriteToTextfile(path, registry)
}
