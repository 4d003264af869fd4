package atlas

// Logger is what the service reports its lifecycle through. Wire any
// implementation you like; see the main package for a zerolog one.
type Logger interface {
	LoadInfo(dataset string, records int)
	LoadError(dataset string, err error)
	LookupError(ip string, err error)
}

// NoopLogger is the default when no logger is given.
type NoopLogger struct{}

func (NoopLogger) LoadInfo(string, int)      {}
func (NoopLogger) LoadError(string, error)   {}
func (NoopLogger) LookupError(string, error) {}
