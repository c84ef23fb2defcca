// Package bench runs key-recovery algorithms, built-in or external, against
// prepared cases under a per-run timeout and summarizes their accuracy.
package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/verte-zerg/subcrack/internal/cipher"
	"github.com/verte-zerg/subcrack/internal/logging"
)

// DefaultTimeout bounds a single run when Harness.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Status is the outcome class of a run.
type Status string

const (
	StatusOK      Status = "ok"
	StatusTimeout Status = "timeout"
	StatusFailed  Status = "failed"
)

// AlgorithmResult records one run. Key is zero unless Status is StatusOK.
type AlgorithmResult struct {
	ID        string
	Algorithm string
	Status    Status
	Plaintext string
	Key       cipher.Key
	Elapsed   time.Duration
	ExitCode  int
	Stderr    string
	Err       error
}

// Harness executes algorithms with a timeout.
type Harness struct {
	Timeout  time.Duration
	Alphabet cipher.Alphabet
	// Seed derives per-case seeds for in-process runs.
	Seed    int64
	Workers int
	Logger  *slog.Logger
}

// Run executes alg once and blocks until it finishes or times out.
func (h *Harness) Run(ctx context.Context, alg Algorithm, in Input) AlgorithmResult {
	res := AlgorithmResult{ID: uuid.NewString(), Algorithm: alg.Name()}
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	out, err := alg.Run(runCtx, in)
	res.Elapsed = time.Since(start)
	res.ExitCode = out.ExitCode
	res.Stderr = out.Stderr

	logger := logging.OrDiscard(h.Logger).With("algorithm", res.Algorithm, "run", res.ID)
	switch {
	case ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		res.Status = StatusTimeout
		res.Err = fmt.Errorf("timed out after %s", timeout)
		logger.Warn("algorithm timed out", "timeout", timeout)
		return res
	case err != nil:
		res.Status = StatusFailed
		res.Err = err
		logger.Warn("algorithm failed", "err", err, "exit_code", out.ExitCode)
		return res
	}

	key, err := cipher.NewKey(h.alphabet(), out.Key)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to parse key %q: %w", out.Key, err)
		logger.Warn("algorithm printed invalid key", "err", err)
		return res
	}
	res.Status = StatusOK
	res.Key = key
	res.Plaintext = out.Plaintext
	logger.Debug("algorithm finished", "elapsed", res.Elapsed)
	return res
}

// RunAsync starts Run in a goroutine. The channel yields exactly one result.
func (h *Harness) RunAsync(ctx context.Context, alg Algorithm, in Input) <-chan AlgorithmResult {
	ch := make(chan AlgorithmResult, 1)
	go func() {
		defer close(ch)
		ch <- h.Run(ctx, alg, in)
	}()
	return ch
}

func (h *Harness) alphabet() cipher.Alphabet {
	if h.Alphabet.Size() == 0 {
		return cipher.DefaultAlphabet()
	}
	return h.Alphabet
}
