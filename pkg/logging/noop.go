package logging

// NoOpLogger discards everything
type NoOpLogger struct{}

func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

func (n *NoOpLogger) Debug(string, ...interface{})  {}
func (n *NoOpLogger) Info(string, ...interface{})   {}
func (n *NoOpLogger) Warn(string, ...interface{})   {}
func (n *NoOpLogger) Error(string, ...interface{})  {}
func (n *NoOpLogger) Fatal(string, ...interface{})  {}
func (n *NoOpLogger) Debugf(string, ...interface{}) {}
func (n *NoOpLogger) Infof(string, ...interface{})  {}
func (n *NoOpLogger) Warnf(string, ...interface{})  {}
func (n *NoOpLogger) Errorf(string, ...interface{}) {}
func (n *NoOpLogger) Fatalf(string, ...interface{}) {}
func (n *NoOpLogger) With(...interface{}) Logger    { return n }
func (n *NoOpLogger) WithTraceID(string) Logger     { return n }
