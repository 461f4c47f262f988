package transfer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Nomadcxx/signalstamp/internal/logging"
)

// FallbackTransferer tries multiple backends in order until one succeeds.
type FallbackTransferer struct {
	backends []Transferer
	logger   *logging.Logger
}

// NewFallbackTransferer creates a transferer that tries backends in order.
// If the first backend fails, it tries the next, and so on. A missing source
// stops the chain immediately.
func NewFallbackTransferer(backends ...Transferer) *FallbackTransferer {
	return &FallbackTransferer{backends: backends, logger: logging.Nop()}
}

// SetLogger routes fallback notices to logger.
func (f *FallbackTransferer) SetLogger(logger *logging.Logger) {
	if logger == nil {
		logger = logging.Nop()
	}
	f.logger = logger
}

func (f *FallbackTransferer) Name() string {
	names := make([]string, len(f.backends))
	for i, b := range f.backends {
		names[i] = b.Name()
	}
	return "fallback(" + strings.Join(names, ",") + ")"
}

func (f *FallbackTransferer) Move(src, dst string, opts Options) (*Result, error) {
	var lastResult *Result
	var lastErr error
	var failures []string

	for i, backend := range f.backends {
		result, err := backend.Move(src, dst, opts)
		if err == nil && result.Success {
			return result, nil
		}

		lastResult = result
		lastErr = err
		failures = append(failures, fmt.Sprintf("%s: %v", backend.Name(), err))

		if errors.Is(err, ErrSourceNotFound) {
			break
		}

		if i < len(f.backends)-1 {
			f.logger.Warn("transfer", "Backend failed, trying next",
				logging.F("backend", backend.Name()),
				logging.F("next", f.backends[i+1].Name()),
				logging.F("error", err))
		}
	}

	if lastResult == nil {
		lastResult = &Result{}
	}
	lastResult.Success = false
	lastResult.Error = fmt.Errorf("all backends failed: %s: %w", strings.Join(failures, "; "), lastErr)
	return lastResult, lastResult.Error
}
