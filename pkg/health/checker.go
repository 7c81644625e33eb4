package health

import (
	"context"
	"time"

	"github.com/rookdaemon/agora/anchor"
)

// Checker runs the checks behind `agora diagnose`.
type Checker struct {
	RelayURL string
	Anchor   anchor.ChainClock
	MaxSkew  time.Duration
}

// CheckAll runs every configured check and folds their statuses into one
// overall Report. Anchor is only checked when Checker.Anchor is non-nil.
func (c *Checker) CheckAll(ctx context.Context) *Report {
	report := &Report{
		Timestamp: time.Now(),
		Status:    StatusHealthy,
		Errors:    make([]string, 0),
	}

	report.Relay = CheckRelay(c.RelayURL)
	worsen(report, report.Relay.Status, "relay", report.Relay.Error)

	if c.Anchor != nil {
		report.Anchor = c.checkAnchor(ctx)
		worsen(report, report.Anchor.Status, "anchor", report.Anchor.Error)
	}

	report.System = CheckSystem()
	worsen(report, report.System.Status, "system", report.System.Error)

	return report
}

func (c *Checker) checkAnchor(ctx context.Context) *AnchorHealth {
	health := &AnchorHealth{Chain: c.Anchor.Chain(), Status: StatusUnhealthy}

	chainTime, err := c.Anchor.Now(ctx)
	if err != nil {
		health.Error = err.Error()
		return health
	}

	delta, exceeded := anchor.Skew(chainTime, time.Now(), c.MaxSkew)
	health.SkewMillis = delta.Milliseconds()
	health.Exceeded = exceeded
	if exceeded {
		health.Status = StatusDegraded
	} else {
		health.Status = StatusHealthy
	}
	return health
}

func worsen(report *Report, status Status, label, errMsg string) {
	if status == StatusHealthy {
		return
	}
	if errMsg != "" {
		report.Errors = append(report.Errors, label+": "+errMsg)
	}
	if report.Status == StatusHealthy || status == StatusUnhealthy {
		report.Status = status
	}
}
