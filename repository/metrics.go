package repository

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// gitCommandCount is a Counter vector of executed git commands
	gitCommandCount *prometheus.CounterVec
	// gitCommandLatency is a Histogram vector that keeps track of git command durations
	gitCommandLatency *prometheus.HistogramVec
)

// EnableMetrics will enable metrics collection for git commands.
// Available metrics are...
//   - git_command_count - (tags: command,success)
//     A Counter for each executed git command, tagged with the git
//     subcommand and the result (success=true|false)
//   - git_command_latency_seconds - (tags: command)
//     A Histogram that keeps track of git command latency per subcommand.
func EnableMetrics(metricsNamespace string, registerer prometheus.Registerer) {
	gitCommandCount = promauto.With(registerer).NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "git_command_count",
		Help:      "Count of executed git commands",
	},
		[]string{
			// git subcommand
			"command",
			// Whether the command was successful or not
			"success",
		},
	)

	gitCommandLatency = promauto.With(registerer).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "git_command_latency_seconds",
		Help:      "Latency for git commands",
		Buckets:   []float64{0.05, 0.1, 0.5, 1, 5, 10, 20, 30, 60},
	},
		[]string{
			// git subcommand
			"command",
		},
	)
}

// recordGitCommand records a git command run by updating all the
// relevant metrics
func recordGitCommand(command string, success bool, start time.Time) {
	// if metrics not enabled return
	if gitCommandCount == nil || gitCommandLatency == nil {
		return
	}
	gitCommandCount.With(prometheus.Labels{
		"command": command,
		"success": strconv.FormatBool(success),
	}).Inc()
	gitCommandLatency.WithLabelValues(command).Observe(time.Since(start).Seconds())
}
