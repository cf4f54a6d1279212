package logging

// Banners delimiting a session in the log.
const (
	BannerStarted = "\n" + `\\\\\\\\\\\\\\\ Session started ///////////////`
	BannerEnded   = `//////////////// Session ended \\\\\\\\\\\\\\\\`
	BannerFailed  = `/////////////// Session  failed \\\\\\\\\\\\\\\ `
)

// Session owns the sink opened for one invocation together with the
// logger writing to it.
type Session struct {
	*Logger
	sink *Sink
}

// OpenSession opens opts.SinkPath (DefaultLogFile when empty) for
// appending and returns a session logging to it. opts.Sink is ignored.
func OpenSession(opts Options) (*Session, error) {
	if err := opts.Verbosity.Validate(); err != nil {
		return nil, err
	}

	if opts.SinkPath == "" {
		opts.SinkPath = DefaultLogFile
	}

	sink, err := OpenSink(opts.SinkPath)
	if err != nil {
		return nil, err
	}

	opts.Sink = sink
	logger, err := New(opts)
	if err != nil {
		_ = sink.Close()
		return nil, err
	}

	return &Session{Logger: logger, sink: sink}, nil
}

// Close flushes and closes the session sink.
func (s *Session) Close() error {
	return s.sink.Close()
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	return s.sink.Closed()
}
