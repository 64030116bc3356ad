package textextract

import (
	"bytes"
	"context"
	"log/slog"
	"os/exec"
	"strings"
	"time"

	"tenderlist/internal/logging"
)

// Runner executes external tools; stubbed in tests.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

type execRunner struct {
	logger *slog.Logger
}

// NewExecRunner returns a Runner backed by exec.CommandContext.
func NewExecRunner(logger *slog.Logger) Runner {
	if logger == nil {
		logger = logging.NewNop()
	}
	return execRunner{logger: logger}
}

func (r execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	start := time.Now()

	cmd := exec.CommandContext(ctx, name, args...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb

	err := cmd.Run()
	dur := time.Since(start)

	if err != nil {
		r.logger.Debug("exec failed",
			logging.String("cmd", name),
			logging.String("args", strings.Join(args, " ")),
			logging.Int64("duration_ms", dur.Milliseconds()),
			logging.Error(err),
			logging.String("stderr", truncate(errb.String(), 8<<10)),
		)
	} else {
		r.logger.Debug("exec ok",
			logging.String("cmd", name),
			logging.String("args", strings.Join(args, " ")),
			logging.Int64("duration_ms", dur.Milliseconds()),
			logging.Int("stdout_bytes", out.Len()),
		)
	}

	return out.Bytes(), errb.Bytes(), err
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
