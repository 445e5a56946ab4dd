package log

// Logger defines the logging interface used across the controller and the
// operator client. Packages depend on this instead of logrus directly.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithField returns a Logger that appends key=value to every entry.
	WithField(key string, value interface{}) Logger
	// WithFields is WithField for several keys at once.
	WithFields(fields map[string]interface{}) Logger
}
