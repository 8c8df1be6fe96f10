package log

var _ Logger = NoopLogger{}

// NoopLogger discards everything. It is the default logger of every
// component that was not given one.
type NoopLogger struct{}

func NewNoopLogger() Logger { return NoopLogger{} }

func (NoopLogger) Debug(string, ...any)         {}
func (NoopLogger) Info(string, ...any)          {}
func (NoopLogger) Warn(string, ...any)          {}
func (NoopLogger) Error(string, ...any)         {}
func (NoopLogger) Fatal(string, ...any)         {}
func (n NoopLogger) WithKV(string, any) Logger  { return n }
func (NoopLogger) GetAllKV() []any              { return []any{} }
func (n NoopLogger) WithName(string) Logger     { return n }
func (NoopLogger) Name() string                 { return "noop" }
func (n NoopLogger) AddCallerSkip(int) Logger   { return n }
