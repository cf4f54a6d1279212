package logging

import (
	"bytes"
	"io"

	"github.com/sirupsen/logrus"
)

// TimestampFormat is the layout of the timestamp prefix (YYYY-MM-DD HH:MM:SS).
const TimestampFormat = "2006-01-02 15:04:05"

// Entry fields understood by LineFormatter.
const (
	FieldPriority = "priority"
	FieldPlain    = "plain"
)

// LineFormatter renders "[timestamp] marker message" lines, or the bare
// message for plain entries.
type LineFormatter struct{}

// Format implements logrus.Formatter.
func (f *LineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var buf bytes.Buffer

	if plain, _ := entry.Data[FieldPlain].(bool); !plain {
		priority, _ := entry.Data[FieldPriority].(Priority)
		buf.WriteByte('[')
		buf.WriteString(entry.Time.Format(TimestampFormat))
		buf.WriteString("] ")
		buf.WriteString(priority.Marker())
		buf.WriteByte(' ')
	}

	buf.WriteString(entry.Message)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// consoleHook mirrors entries to the console through the verbosity policy.
type consoleHook struct {
	out       io.Writer
	verbosity Verbosity
	formatter logrus.Formatter
}

func (h *consoleHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *consoleHook) Fire(entry *logrus.Entry) error {
	priority, _ := entry.Data[FieldPriority].(Priority)
	if !Visible(h.verbosity, priority) {
		return nil
	}

	line, err := h.formatter.Format(entry)
	if err != nil {
		return err
	}
	_, err = h.out.Write(line)
	return err
}
