package jobs

import (
	"os"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

// TimestampLayout is the layout of the timestamp prefixing every line.
const TimestampLayout = "2006-01-02 15:04:05"

// LogFile appends "<timestamp> - <message>" lines to a file. The file is
// opened for each write so it may be rotated or removed between runs.
type LogFile struct {
	path string
	now  func() time.Time
}

// NewLogFile returns a LogFile writing to path.
func NewLogFile(path string) *LogFile {
	return &LogFile{path: path, now: time.Now}
}

// Path returns the file the lines are appended to.
func (l *LogFile) Path() string { return l.path }

// Write appends one line per message, all sharing one timestamp.
func (l *LogFile) Write(messages ...string) error {
	ts := l.now().Format(TimestampLayout)

	var b strings.Builder
	for _, msg := range messages {
		b.WriteString(ts)
		b.WriteString(" - ")
		b.WriteString(msg)
		b.WriteByte('\n')
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "open log file")
	}
	if _, err := f.WriteString(b.String()); err != nil {
		_ = f.Close()
		return errors.Wrap(err, "write log file")
	}
	return f.Close()
}

// WriteError appends an "ERROR: <err>" line.
func (l *LogFile) WriteError(err error) error {
	return l.Write("ERROR: " + err.Error())
}
