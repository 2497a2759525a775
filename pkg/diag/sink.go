package diag

// Sink classifies errors raised while reading a package. In strict mode
// every error is returned to the caller. In relaxed mode recoverable schema
// violations are recorded as warnings and parsing continues.
type Sink struct {
	Relaxed  bool
	warnings []error
}

// NewSink creates a sink.
func NewSink(relaxed bool) *Sink {
	return &Sink{Relaxed: relaxed}
}

// Report records err as a warning and returns nil when it is tolerable,
// otherwise it returns err unchanged.
func (s *Sink) Report(err error) error {
	if err == nil {
		return nil
	}
	if s.Relaxed && IsRecoverable(err) {
		s.warnings = append(s.warnings, err)
		return nil
	}
	return err
}

// Warn records err unconditionally. Used for conditions that are never fatal,
// such as unknown elements in a known namespace.
func (s *Sink) Warn(err error) {
	if err != nil {
		s.warnings = append(s.warnings, err)
	}
}

// Len returns the number of recorded warnings.
func (s *Sink) Len() int {
	return len(s.warnings)
}

// Warning returns the i-th warning in the order it was recorded.
func (s *Sink) Warning(i int) error {
	if i < 0 || i >= len(s.warnings) {
		return nil
	}
	return s.warnings[i]
}

// Warnings returns a copy of all recorded warnings.
func (s *Sink) Warnings() []error {
	out := make([]error, len(s.warnings))
	copy(out, s.warnings)
	return out
}

// Reset drops all recorded warnings.
func (s *Sink) Reset() {
	s.warnings = nil
}
