package observability

import (
	"errors"
	"fmt"
)

// Closer is a named shutdown step.
type Closer struct {
	Name  string
	Close func() error
}

// CloseAll runs every step in order, logs each failure with its step name and returns
// the joined errors. A failing step does not stop the remaining ones.
func CloseAll(logger Logger, operation string, steps ...Closer) error {
	if logger == nil {
		logger = Log()
	}
	var failed []error
	for _, step := range steps {
		if step.Close == nil {
			continue
		}
		if err := step.Close(); err != nil {
			logger.Error("shutdown step failed",
				Field{Key: "operation", Value: operation},
				Field{Key: "step", Value: step.Name},
				Field{Key: "error", Value: err},
			)
			failed = append(failed, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return fmt.Errorf("%s failed: %w", operation, errors.Join(failed...))
}
