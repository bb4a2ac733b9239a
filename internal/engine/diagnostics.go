package engine

import (
	"sync/atomic"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"
)

// Diagnostics records contained failures, rate limited so a misbehaving host
// cannot flood the log.
type Diagnostics struct {
	limiter *rate.Limiter
	logger  *log.Logger

	recorded atomic.Int64
	dropped  atomic.Int64
	last     atomic.Pointer[Error]
}

// NewDiagnostics creates a sink logging at most perSecond failures with the
// given burst. perSecond <= 0 logs every failure.
func NewDiagnostics(perSecond float64, burst int, logger *log.Logger) *Diagnostics {
	if logger == nil {
		logger = log.Default()
	}
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Diagnostics{
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.With("component", "diagnostics"),
	}
}

// Record notes a contained failure.
func (d *Diagnostics) Record(err *Error) {
	d.recorded.Add(1)
	d.last.Store(err)

	if !d.limiter.Allow() {
		d.dropped.Add(1)
		return
	}
	d.logger.Error("Contained failure", "op", err.Op, "session", err.Session, "err", err.Cause)
}

// Recorded returns the number of failures seen.
func (d *Diagnostics) Recorded() int64 { return d.recorded.Load() }

// Dropped returns the number of failures that were not logged.
func (d *Diagnostics) Dropped() int64 { return d.dropped.Load() }

// Last returns the most recent failure, or nil.
func (d *Diagnostics) Last() *Error { return d.last.Load() }
