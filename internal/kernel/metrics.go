package kernel

import "github.com/prometheus/client_golang/prometheus"

// Metrics records kernel-level counters for a run, scraped by the CLI's
// serve subcommand. A nil *Metrics is safe to use — every method is a
// no-op in that case — so callers that don't care about metrics (tests,
// one-off CLI runs) can simply omit it.
type Metrics struct {
	opens         prometheus.Counter
	closes        prometheus.Counter
	rolls         prometheus.Counter
	rejections    prometheus.Counter
	numericalErrs prometheus.Counter
}

// NewMetrics registers a fresh set of counters against reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		opens: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oilsim_positions_opened_total",
			Help: "Number of PositionOpened events emitted.",
		}),
		closes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oilsim_positions_closed_total",
			Help: "Number of PositionClosed events emitted.",
		}),
		rolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oilsim_legs_rolled_total",
			Help: "Number of LegRolled events emitted.",
		}),
		rejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oilsim_rolls_rejected_total",
			Help: "Number of RollRejected events emitted.",
		}),
		numericalErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "oilsim_numerical_errors_total",
			Help: "Number of runs aborted by a numerical error.",
		}),
	}
	reg.MustRegister(m.opens, m.closes, m.rolls, m.rejections, m.numericalErrs)
	return m
}

func (m *Metrics) observeOpen() {
	if m != nil {
		m.opens.Inc()
	}
}
func (m *Metrics) observeClose() {
	if m != nil {
		m.closes.Inc()
	}
}
func (m *Metrics) observeRoll() {
	if m != nil {
		m.rolls.Inc()
	}
}
func (m *Metrics) observeRejection() {
	if m != nil {
		m.rejections.Inc()
	}
}
func (m *Metrics) observeNumericalErr() {
	if m != nil {
		m.numericalErrs.Inc()
	}
}
