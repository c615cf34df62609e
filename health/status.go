package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/c360/ringkit/errors"
)

var (
	urlRegex         = regexp.MustCompile(`(?:https?|wss?)://[^\s]+`)
	unixPathRegex    = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	windowsPathRegex = regexp.MustCompile(`[A-Z]:\\[^:\s]+`)
	ipAddrRegex      = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex        = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex  = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// State is the coarse health of a component.
type State string

// Health states, ordered from best to worst.
const (
	StateHealthy   State = "healthy"
	StateDegraded  State = "degraded"
	StateUnhealthy State = "unhealthy"
)

// worse reports whether s is a worse state than other.
func (s State) worse(other State) bool {
	return s.rank() > other.rank()
}

func (s State) rank() int {
	switch s {
	case StateHealthy:
		return 0
	case StateDegraded:
		return 1
	default:
		return 2
	}
}

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"`
	State       State     `json:"status"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics carries the counters a line pipeline reports alongside its status.
type Metrics struct {
	Uptime       time.Duration `json:"uptime"`
	ErrorCount   int           `json:"error_count"`
	LinesRead    int64         `json:"lines_read,omitempty"`
	LinesDropped int64         `json:"lines_dropped,omitempty"`
	LastActivity time.Time     `json:"last_activity,omitempty"`
}

func (s Status) IsHealthy() bool {
	return s.State == StateHealthy
}

func (s Status) IsDegraded() bool {
	return s.State == StateDegraded
}

func (s Status) IsUnhealthy() bool {
	return s.State == StateUnhealthy
}

// WithMetrics returns a copy of the status with metrics attached
func (s Status) WithMetrics(metrics *Metrics) Status {
	s.Metrics = metrics
	return s
}

// WithSubStatus returns a copy of the status with subStatus appended.
// The receiver's SubStatuses slice is never shared with the result.
func (s Status) WithSubStatus(subStatus Status) Status {
	subs := make([]Status, len(s.SubStatuses), len(s.SubStatuses)+1)
	copy(subs, s.SubStatuses)
	s.SubStatuses = append(subs, subStatus)
	return s
}

// FromError builds the status of a component that failed with err.
// Transient and unclassified failures leave the component degraded; invalid
// and fatal failures make it unhealthy. The message is
// sanitized before it is exposed on the health endpoint.
func FromError(component string, err error) Status {
	if err == nil {
		return NewHealthy(component, "ok")
	}

	message := sanitizeErrorMessage(err.Error())
	if errors.Classify(err) == errors.ErrorTransient {
		return NewDegraded(component, message)
	}
	return NewUnhealthy(component, message)
}

// sanitizeErrorMessage strips URLs, file paths, addresses, ports and
// credentials from an error message. File paths are the common case here:
// every follower error names the file it was reading.
func sanitizeErrorMessage(msg string) string {
	if msg == "" {
		return ""
	}

	// URLs contain paths, so they go first.
	sanitized := urlRegex.ReplaceAllString(msg, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = windowsPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
			break
		}
	}

	return sanitized
}
