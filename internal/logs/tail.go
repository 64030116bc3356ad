package logs

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"
)

// The daemon writes one log file (tenderlistd.log); both the IPC LogTail
// call and the CLI fallback read it through Tail so offsets mean the same
// thing on either path.

const (
	// followPollInterval is how often follow mode re-checks the file for
	// new lines before the wait deadline expires.
	followPollInterval = 200 * time.Millisecond

	// maxLineBytes bounds a single log line; JSON handler output with a
	// large error payload still fits well under this.
	maxLineBytes = 1024 * 1024
)

// TailOptions controls a single Tail call.
type TailOptions struct {
	// Offset is the byte position to resume from, as returned by the
	// previous call. Negative means "the last Limit lines of the file".
	Offset int64
	// Limit caps the line count when Offset is negative.
	Limit int
	// Follow makes the call block up to Wait for new lines when none are
	// pending at Offset.
	Follow bool
	Wait   time.Duration
}

// TailResult carries the lines read and the offset to resume from.
type TailResult struct {
	Lines  []string
	Offset int64
}

// Tail reads daemon log lines starting at the requested offset. A missing
// file is not an error: the daemon may simply not have logged yet, so the
// caller gets no lines and offset zero to poll from.
func Tail(ctx context.Context, path string, opts TailOptions) (TailResult, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return TailResult{}, nil
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("stat log file: %w", err)
	}
	if info.IsDir() {
		return TailResult{Offset: opts.Offset}, fmt.Errorf("log path %q is a directory", path)
	}

	wait := opts.Wait
	if wait < 0 {
		wait = 0
	}

	var (
		lines []string
		next  int64
	)
	if opts.Offset < 0 {
		lines, next, err = lastLines(path, opts.Limit)
	} else {
		offset := opts.Offset
		if offset > info.Size() {
			// Truncated or rotated underneath us; resume from the end
			// rather than report stale bytes.
			offset = info.Size()
		}
		lines, next, err = linesFrom(path, offset)
	}
	if err != nil {
		return TailResult{Offset: opts.Offset}, err
	}

	if len(lines) == 0 && opts.Follow && wait > 0 {
		return awaitLines(ctx, path, next, wait)
	}
	return TailResult{Lines: lines, Offset: next}, nil
}

// lastLines returns up to limit trailing lines and the end-of-file offset.
// The whole file is scanned but only limit lines are held at a time.
func lastLines(path string, limit int) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if limit <= 0 {
		end, err := file.Seek(0, io.SeekEnd)
		if err != nil {
			return nil, 0, fmt.Errorf("seek log file: %w", err)
		}
		return nil, end, nil
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 32*1024), maxLineBytes)

	ring := make([]string, 0, limit)
	oldest := 0
	total := 0
	for scanner.Scan() {
		if len(ring) < limit {
			ring = append(ring, scanner.Text())
		} else {
			ring[oldest] = scanner.Text()
			oldest = (oldest + 1) % limit
		}
		total++
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	end, err := file.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	if total <= limit {
		return ring, end, nil
	}
	lines := make([]string, 0, limit)
	lines = append(lines, ring[oldest:]...)
	lines = append(lines, ring[:oldest]...)
	return lines, end, nil
}

// linesFrom reads every complete line starting at offset and returns the
// offset the next call should resume from.
func linesFrom(path string, offset int64) ([]string, int64, error) {
	file, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open log file: %w", err)
	}
	defer file.Close()

	if _, err := file.Seek(offset, io.SeekStart); err != nil {
		return nil, 0, fmt.Errorf("seek log file: %w", err)
	}

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 32*1024), maxLineBytes)
	var lines []string
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read log file: %w", err)
	}

	next, err := file.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, 0, fmt.Errorf("determine log offset: %w", err)
	}
	return lines, next, nil
}

// awaitLines polls for new lines until some arrive, the wait deadline
// passes, or the context ends. The returned offset always advances past
// whatever was examined so a follow loop never re-reads the same bytes.
func awaitLines(ctx context.Context, path string, offset int64, wait time.Duration) (TailResult, error) {
	deadline := time.Now().Add(wait)
	result := TailResult{Offset: offset}

	for {
		lines, next, err := linesFrom(path, result.Offset)
		if err != nil {
			return result, err
		}
		result.Offset = next
		if len(lines) > 0 {
			result.Lines = lines
			return result, nil
		}
		if !time.Now().Before(deadline) {
			return result, nil
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(followPollInterval):
		}
	}
}
