package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/applypass/applypass-api/internal/domain"
)

// ErrAutomatorFatal marks an automator failure that poisons the whole
// batch (browser crashed, session lost). The runtime abandons the task and
// reports it failed instead of moving to the next job.
var ErrAutomatorFatal = errors.New("fatal automation error")

// ApplicationReport is what the automator learned from one application
// attempt. The runtime folds it into a JobOutcome with status and timing.
type ApplicationReport struct {
	FilledFieldCount int
	TotalFieldCount  int
	Submitted        bool
	ScreenshotRef    string
}

// PageAutomator performs one job application: navigate to the posting,
// fill the form from the context, submit. Implementations must honor ctx
// cancellation; the runtime bounds each call with the per-job timeout.
//
// A returned error means the application did not go through. Wrap it in
// ErrAutomatorFatal to abort the rest of the batch.
type PageAutomator interface {
	Apply(
		ctx context.Context,
		job domain.Job,
		actx domain.AutomationContext,
	) (ApplicationReport, error)
}

// SimulatedAutomator is a PageAutomator that fills nothing. It stands in
// for the real browser driver in development and load testing, and its
// failure knobs make runtime behavior reproducible in tests.
type SimulatedAutomator struct {
	// Delay is how long each simulated application takes.
	Delay time.Duration

	// FailHosts lists URL substrings whose jobs fail with a simulated
	// page error.
	FailHosts []string

	// FatalHosts lists URL substrings whose jobs abort the batch.
	FatalHosts []string
}

var _ PageAutomator = (*SimulatedAutomator)(nil)

// Apply simulates filling an application form.
func (s *SimulatedAutomator) Apply(
	ctx context.Context,
	job domain.Job,
	actx domain.AutomationContext,
) (ApplicationReport, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return ApplicationReport{}, ctx.Err()
		}
	}

	for _, host := range s.FatalHosts {
		if strings.Contains(job.URL, host) {
			return ApplicationReport{}, fmt.Errorf("%w: simulated browser crash", ErrAutomatorFatal)
		}
	}
	for _, host := range s.FailHosts {
		if strings.Contains(job.URL, host) {
			return ApplicationReport{TotalFieldCount: len(actx.Profile)},
				errors.New("simulated page error")
		}
	}

	fieldCount := len(actx.Profile)
	return ApplicationReport{
		FilledFieldCount: fieldCount,
		TotalFieldCount:  fieldCount,
		Submitted:        true,
	}, nil
}
