package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for issuance, redemption and verification.
type Metrics struct {
	PacksIssued        *prometheus.CounterVec
	PacksReused        *prometheus.CounterVec
	IssueDuration      *prometheus.HistogramVec
	CodesMinted        *prometheus.CounterVec
	CodesRevoked       prometheus.Counter
	Redemptions        *prometheus.CounterVec
	RedeemDuration     prometheus.Histogram
	Verifications      *prometheus.CounterVec
	LedgerAppendErrors prometheus.Counter
	EventEmitErrors    *prometheus.CounterVec
}

// New registers the collectors with reg, or the default registerer when nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		PacksIssued: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixpax_packs_issued_total",
			Help: "Packs issued, labeled by issuance mode",
		}, []string{"mode"}),
		PacksReused: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixpax_packs_reused_total",
			Help: "Weekly requests answered from an existing claim",
		}, []string{"mode"}),
		IssueDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pixpax_issue_duration_seconds",
			Help:    "Time to resolve, draw, hash and sign a pack",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"mode"}),
		CodesMinted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixpax_codes_minted_total",
			Help: "Redeem codes minted, labeled by kind",
		}, []string{"kind"}),
		CodesRevoked: f.NewCounter(prometheus.CounterOpts{
			Name: "pixpax_codes_revoked_total",
			Help: "Redeem codes moved to revoked",
		}),
		Redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixpax_redemptions_total",
			Help: "Redeem attempts, labeled by outcome",
		}, []string{"outcome"}),
		RedeemDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixpax_redeem_duration_seconds",
			Help:    "Time to verify a token and issue its pack",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		Verifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixpax_pack_verifications_total",
			Help: "Pack verifications, labeled by result reason (ok on success)",
		}, []string{"result"}),
		LedgerAppendErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "pixpax_ledger_append_errors_total",
			Help: "Audit ledger appends that failed",
		}),
		EventEmitErrors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "pixpax_event_emit_errors_total",
			Help: "Domain events that could not be emitted",
		}, []string{"type"}),
	}
}

func (m *Metrics) IncIssued(mode string) {
	m.PacksIssued.WithLabelValues(mode).Inc()
}

func (m *Metrics) IncReused(mode string) {
	m.PacksReused.WithLabelValues(mode).Inc()
}

func (m *Metrics) ObserveIssue(mode string, seconds float64) {
	m.IssueDuration.WithLabelValues(mode).Observe(seconds)
}

func (m *Metrics) IncMinted(kind string) {
	m.CodesMinted.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncRevoked() {
	m.CodesRevoked.Inc()
}

// IncRedemption records a redeem outcome: "claimed", "already-claimed" or a
// rejection reason.
func (m *Metrics) IncRedemption(outcome string) {
	m.Redemptions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveRedeem(seconds float64) {
	m.RedeemDuration.Observe(seconds)
}

func (m *Metrics) IncVerification(result string) {
	m.Verifications.WithLabelValues(result).Inc()
}

func (m *Metrics) IncLedgerAppendError() {
	m.LedgerAppendErrors.Inc()
}

func (m *Metrics) IncEventEmitError(eventType string) {
	m.EventEmitErrors.WithLabelValues(eventType).Inc()
}
