package worker

import "context"

// Step is one unit of a sequential run. It returns the progress
// message to report once it finishes.
type Step func(ctx context.Context, index int) (string, error)

// ProgressFunc receives the accumulated messages and the completed fraction
type ProgressFunc func(messages []string, fraction float64)

// Sequence runs steps one after another, in order, reporting progress
// after each successful step. A failing step does not stop the run and
// adds no message; its error is returned in the per-step slice.
// Cancellation stops before the next step.
type Sequence struct {
	Header   string
	Footer   string
	Progress ProgressFunc
}

// Run executes n steps. It returns the per-step errors (nil entries for
// successes) and ctx.Err() if the run was cancelled.
func (s Sequence) Run(ctx context.Context, n int, step Step) ([]error, error) {
	errs := make([]error, n)
	var messages []string
	if s.Header != "" {
		messages = append(messages, s.Header)
	}
	s.report(messages, 0)

	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return errs, err
		}

		msg, err := step(ctx, i)
		if err != nil {
			errs[i] = err
			continue
		}
		messages = append(messages, msg)
		s.report(messages, float64(i+1)/float64(n))
	}

	if s.Footer != "" {
		messages = append(messages, s.Footer)
	}
	s.report(messages, 1)
	return errs, nil
}

func (s Sequence) report(messages []string, fraction float64) {
	if s.Progress == nil {
		return
	}
	out := make([]string, len(messages))
	copy(out, messages)
	s.Progress(out, fraction)
}
