package jobs

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

// DefaultTail bounds log reads when the caller does not ask for a specific
// suffix length. A tail of zero means this default, never the entire log.
const DefaultTail = 50

// LineWriter receives log lines as they are produced. The executor streams
// its combined output through this interface so partial logs are readable
// while a job is still running.
type LineWriter interface {
	WriteLine(line string)
}

// LogSink is the append-only log stream for one job.
//
// Writes are serialized with a mutex so concurrent producers cannot
// interleave partial lines. Reads go through ReadTail on the same path and
// are safe while the sink is being written.
type LogSink struct {
	path string

	mu sync.Mutex
	f  *os.File
}

// OpenLogSink opens (creating if needed) the log file at path for appending.
func OpenLogSink(path string) (*LogSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open job log: %w", err)
	}
	return &LogSink{path: path, f: f}, nil
}

// WriteLine appends one line to the log. Trailing newlines in line are
// stripped first so every call produces exactly one log line.
func (s *LogSink) WriteLine(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return
	}
	line = strings.TrimRight(line, "\r\n")
	_, _ = fmt.Fprintln(s.f, line)
}

// Path returns the on-disk location of the log file.
func (s *LogSink) Path() string {
	return s.path
}

// Close flushes and closes the underlying file. Further writes are dropped.
func (s *LogSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}

// ReadTail returns the last n lines of the log at path and the total line
// count. n <= 0 selects DefaultTail. A missing file reads as an empty log,
// which is what a pending job looks like.
func ReadTail(path string, n int) ([]string, int, error) {
	if n <= 0 {
		n = DefaultTail
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("open job log: %w", err)
	}
	defer func() { _ = f.Close() }()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	total := 0
	buf := make([]string, 0, n)
	for scanner.Scan() {
		total++
		line := scanner.Text()
		if len(buf) < n {
			buf = append(buf, line)
			continue
		}
		copy(buf, buf[1:])
		buf[n-1] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, 0, fmt.Errorf("read job log: %w", err)
	}
	return buf, total, nil
}
