package library

import (
	"fmt"
	"log/slog"
)

// Outcome reports whether a table operation changed anything. A skipped
// operation is a normal result (duplicate key, missing reference, ...), not
// an error; Reason says why it was skipped.
type Outcome struct {
	Applied bool
	Reason  string
}

func (o Outcome) String() string {
	if o.Applied {
		return "applied"
	}
	return "skipped: " + o.Reason
}

var applied = Outcome{Applied: true}

// skip logs a business-rule violation at warn level and returns it as a
// skipped Outcome.
func skip(logger *slog.Logger, reason string, args ...any) Outcome {
	logger.Warn(reason, args...)
	return Outcome{Reason: reason}
}

// saga runs an ordered list of single-file steps. Nothing is rolled back when
// a step fails: the files written by earlier steps keep their new content, and
// the failure is logged with the list of committed steps so an operator can
// repair the tables by hand.
type saga struct {
	name   string
	logger *slog.Logger
	steps  []sagaStep
}

type sagaStep struct {
	name string
	run  func() error
}

func newSaga(name string, logger *slog.Logger) *saga {
	return &saga{name: name, logger: logger}
}

func (s *saga) step(name string, run func() error) *saga {
	s.steps = append(s.steps, sagaStep{name: name, run: run})
	return s
}

func (s *saga) run() error {
	var done []string
	for _, st := range s.steps {
		if err := st.run(); err != nil {
			s.logger.Error("workflow interrupted, tables may be inconsistent",
				"workflow", s.name, "failed_step", st.name, "committed", done, "error", err)
			return fmt.Errorf("%s: %s: %w", s.name, st.name, err)
		}
		done = append(done, st.name)
	}
	return nil
}
