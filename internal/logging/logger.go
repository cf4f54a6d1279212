package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger writes session events to a sink and, filtered by verbosity, to
// the console.
type Logger struct {
	logger    *logrus.Logger
	formatter logrus.Formatter
	verbosity Verbosity
	sink      io.Writer
	sinkPath  string
	now       func() time.Time
}

// Options configures a Logger.
type Options struct {
	Verbosity Verbosity
	// Console defaults to os.Stdout.
	Console io.Writer
	// Sink receives every line. The caller owns its lifecycle. When nil,
	// or a *Sink that has been closed, each call opens SinkPath, appends
	// and closes it again.
	Sink     io.Writer
	SinkPath string
	// Clock overrides time.Now for timestamps.
	Clock func() time.Time
}

// New validates opts and builds a Logger.
func New(opts Options) (*Logger, error) {
	if err := opts.Verbosity.Validate(); err != nil {
		return nil, err
	}

	console := opts.Console
	if console == nil {
		console = os.Stdout
	}
	sinkPath := opts.SinkPath
	if sinkPath == "" {
		sinkPath = DefaultLogFile
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	formatter := &LineFormatter{}
	logger := logrus.New()
	logger.SetFormatter(formatter)
	logger.SetLevel(logrus.TraceLevel)
	logger.SetOutput(io.Discard)
	logger.SetReportCaller(false)
	logger.AddHook(&consoleHook{
		out:       console,
		verbosity: opts.Verbosity,
		formatter: formatter,
	})

	return &Logger{
		logger:    logger,
		formatter: formatter,
		verbosity: opts.Verbosity,
		sink:      opts.Sink,
		sinkPath:  sinkPath,
		now:       clock,
	}, nil
}

// Log validates the arguments up front, then writes a single event to the
// sink and, if the verbosity allows it, to the console. Plain events are
// written without the timestamp and priority prefix.
func Log(message string, priority Priority, verbosity Verbosity, sink io.Writer, plain bool) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidPriority, priority)
	}
	logger, err := New(Options{Verbosity: verbosity, Sink: sink})
	if err != nil {
		return err
	}
	return logger.Log(message, priority, plain)
}

// Verbosity returns the console verbosity level.
func (l *Logger) Verbosity() Verbosity {
	return l.verbosity
}

// Log writes one event. See the package-level Log.
func (l *Logger) Log(message string, priority Priority, plain bool) error {
	if !priority.Valid() {
		return fmt.Errorf("%w: %v", ErrInvalidPriority, priority)
	}

	out, release, err := l.acquireSink()
	if err != nil {
		return err
	}

	entry := l.logger.WithTime(l.now()).WithFields(logrus.Fields{
		FieldPriority: priority,
		FieldPlain:    plain,
	})

	// The sink is written here rather than through logrus, which only
	// reports write failures on stderr.
	line := *entry
	line.Level = priority.level()
	line.Message = message
	writeErr := l.writeSink(out, &line)

	// Console output goes through the hook.
	entry.Log(priority.level(), message)

	if err := release(); err != nil && writeErr == nil {
		writeErr = err
	}
	return writeErr
}

func (l *Logger) writeSink(out io.Writer, entry *logrus.Entry) error {
	data, err := l.formatter.Format(entry)
	if err != nil {
		return err
	}
	if _, err := out.Write(data); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}
	return nil
}

// acquireSink returns the writer for the next line and a release func that
// closes any sink opened just for this call.
func (l *Logger) acquireSink() (io.Writer, func() error, error) {
	path := l.sinkPath
	if l.sink != nil {
		sink, ok := l.sink.(*Sink)
		if !ok || !sink.Closed() {
			return l.sink, func() error { return nil }, nil
		}
		path = sink.Path()
	}

	sink, err := OpenSink(path)
	if err != nil {
		return nil, nil, err
	}
	return sink, sink.Close, nil
}

func (l *Logger) emit(priority Priority, plain bool, message string) {
	if err := l.Log(message, priority, plain); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
	}
}

// Info logs an INFO event.
func (l *Logger) Info(format string, args ...interface{}) {
	l.emit(PriorityInfo, false, fmt.Sprintf(format, args...))
}

// Pass logs a PASS event.
func (l *Logger) Pass(format string, args ...interface{}) {
	l.emit(PriorityPass, false, fmt.Sprintf(format, args...))
}

// Fail logs a FAIL event.
func (l *Logger) Fail(format string, args ...interface{}) {
	l.emit(PriorityFail, false, fmt.Sprintf(format, args...))
}

// Error logs an ERROR event.
func (l *Logger) Error(format string, args ...interface{}) {
	l.emit(PriorityError, false, fmt.Sprintf(format, args...))
}

// Debug logs a DEBUG event.
func (l *Logger) Debug(format string, args ...interface{}) {
	l.emit(PriorityDebug, false, fmt.Sprintf(format, args...))
}

// Banner logs a plain INFO line, used to delimit sessions.
func (l *Logger) Banner(message string) {
	l.emit(PriorityInfo, true, message)
}
