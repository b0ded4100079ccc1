package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "awg"

var (
	specBuildsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "junk", "spec_builds_total"),
		"Junk specification builds by result",
		[]string{"result"}, nil,
	)
	specAppliesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "junk", "applies_total"),
		"Modifier table applications",
		nil, nil,
	)
	junkPacketsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "junk", "packets_sent_total"),
		"Junk packets handed to the transport",
		nil, nil,
	)
	junkBytesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "junk", "bytes_sent_total"),
		"Junk bytes handed to the transport",
		nil, nil,
	)
	sendErrorsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "junk", "send_errors_total"),
		"Junk packet write failures",
		nil, nil,
	)
	headerChecksDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "magic_header", "checks_total"),
		"Inbound magic header validations by result",
		[]string{"result"}, nil,
	)
	headersGeneratedDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "magic_header", "generated_total"),
		"Outbound magic header values drawn",
		nil, nil,
	)
	configReloadsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "config", "reloads_total"),
		"Successful configuration reloads",
		nil, nil,
	)
	entropyBytesDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "entropy", "bytes_total"),
		"Random bytes produced by entropy class",
		[]string{"class"}, nil,
	)
	entropyReseedsDesc = prometheus.NewDesc(
		prometheus.BuildFQName(namespace, "entropy", "reseeds_total"),
		"Fast entropy generator reseeds",
		nil, nil,
	)
)

// Collector exports the package counters to Prometheus.
type Collector struct{}

func (Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- specBuildsDesc
	ch <- specAppliesDesc
	ch <- junkPacketsDesc
	ch <- junkBytesDesc
	ch <- sendErrorsDesc
	ch <- headerChecksDesc
	ch <- headersGeneratedDesc
	ch <- configReloadsDesc
	ch <- entropyBytesDesc
	ch <- entropyReseedsDesc
}

func (Collector) Collect(ch chan<- prometheus.Metric) {
	st := SnapshotData()
	counter := func(desc *prometheus.Desc, v int64, labels ...string) {
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(v), labels...)
	}
	counter(specBuildsDesc, st.SpecBuildsOK, ResultOK)
	counter(specBuildsDesc, st.SpecBuildsInvalid, ResultInvalid)
	counter(specBuildsDesc, st.SpecBuildsNoMem, ResultNoMem)
	counter(specBuildsDesc, st.SpecBuildsInert, ResultInert)
	counter(specAppliesDesc, st.SpecApplies)
	counter(junkPacketsDesc, st.JunkPacketsSent)
	counter(junkBytesDesc, st.JunkBytesSent)
	counter(sendErrorsDesc, st.SendErrors)
	counter(headerChecksDesc, st.HeaderAccepted, "accepted")
	counter(headerChecksDesc, st.HeaderRejected, "rejected")
	counter(headersGeneratedDesc, st.HeadersGenerated)
	counter(configReloadsDesc, st.ConfigReloads)
	for class, n := range st.EntropyBytes {
		counter(entropyBytesDesc, n, class)
	}
	counter(entropyReseedsDesc, st.EntropyReseedsTotal)
}

// NewRegistry returns a registry with the package collector and the
// standard Go runtime collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(Collector{})
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func Handler() http.Handler {
	return promhttp.HandlerFor(NewRegistry(), promhttp.HandlerOpts{})
}
