package pulse

import (
	"fmt"
	"time"

	"github.com/HerbHall/uptimewatch/internal/assertion"
)

// Status is the health classification of one probe.
type Status struct {
	Healthy bool   `json:"healthy"`
	Reason  string `json:"reason,omitempty"`
}

// Healthy returns a healthy status.
func Healthy() Status { return Status{Healthy: true} }

// Unhealthy returns an unhealthy status with a formatted reason.
func Unhealthy(format string, args ...any) Status {
	return Status{Reason: fmt.Sprintf(format, args...)}
}

// ReasonTimeout is the reason recorded when a probe exceeds its timeout.
const ReasonTimeout = "timeout"

// Outcome is the result of one probe. Implementations are TCPOutcome,
// HTTPOutcome and ServiceOutcome; the set is closed.
type Outcome interface {
	Kind() Kind
	Status() Status
	// ResponseTime reports the measured latency, if there is one.
	ResponseTime() (time.Duration, bool)
	outcome()
}

// TCPOutcome is produced by the TCP checker.
type TCPOutcome struct {
	Result  Status
	Latency time.Duration // zero when no connection was made
}

func (TCPOutcome) Kind() Kind       { return KindTCP }
func (o TCPOutcome) Status() Status { return o.Result }
func (TCPOutcome) outcome()         {}
func (o TCPOutcome) ResponseTime() (time.Duration, bool) {
	return o.Latency, o.Latency > 0
}

// HTTPOutcome is produced by the HTTP checker.
type HTTPOutcome struct {
	Result     Status
	StatusCode int
	Latency    time.Duration
	// CertDaysRemaining and CertIsValid are nil for plain HTTP. For HTTPS a
	// failed inspection leaves days nil and validity false.
	CertDaysRemaining *int
	CertIsValid       *bool
	Assertions        []assertion.Result
}

func (HTTPOutcome) Kind() Kind       { return KindHTTP }
func (o HTTPOutcome) Status() Status { return o.Result }
func (HTTPOutcome) outcome()         {}
func (o HTTPOutcome) ResponseTime() (time.Duration, bool) {
	return o.Latency, o.Latency > 0
}

// ServiceOutcome is produced by database, broker and ICMP checkers.
type ServiceOutcome struct {
	Service Kind
	Result  Status
	Latency time.Duration
	// Info is a short diagnostic such as a server version. It never
	// affects classification.
	Info string
}

func (o ServiceOutcome) Kind() Kind     { return o.Service }
func (o ServiceOutcome) Status() Status { return o.Result }
func (ServiceOutcome) outcome()         {}
func (o ServiceOutcome) ResponseTime() (time.Duration, bool) {
	return o.Latency, o.Latency > 0
}

// failedOutcome builds the outcome variant matching kind with no latency.
func failedOutcome(kind Kind, status Status) Outcome {
	switch kind {
	case KindTCP:
		return TCPOutcome{Result: status}
	case KindHTTP:
		return HTTPOutcome{Result: status}
	default:
		return ServiceOutcome{Service: kind, Result: status}
	}
}
