package executor

import (
	"bytes"
	"sync"

	"github.com/seqforge/prosol/pkg/jobs"
)

// lineStream adapts an io.Writer-shaped process output into per-line writes
// on a jobs.LineWriter, so partial process output becomes readable log lines
// as it arrives rather than after the process exits.
//
// Stdout and stderr share one lineStream; the mutex keeps interleaved writes
// from splitting lines.
type lineStream struct {
	mu   sync.Mutex
	sink jobs.LineWriter
	buf  bytes.Buffer
}

func newLineStream(sink jobs.LineWriter) *lineStream {
	return &lineStream{sink: sink}
}

func (ls *lineStream) Write(p []byte) (int, error) {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	ls.buf.Write(p)
	for {
		line, err := ls.buf.ReadString('\n')
		if err != nil {
			// Partial line: keep it buffered for the next write.
			ls.buf.Reset()
			ls.buf.WriteString(line)
			break
		}
		if ls.sink != nil {
			ls.sink.WriteLine(line)
		}
	}
	return len(p), nil
}

// Flush emits any trailing partial line. Called once after the process
// exits.
func (ls *lineStream) Flush() {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	if ls.buf.Len() > 0 && ls.sink != nil {
		ls.sink.WriteLine(ls.buf.String())
		ls.buf.Reset()
	}
}
