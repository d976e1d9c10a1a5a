package config

const (
	defaultDataDir           = "~/.local/share/psfd/data"
	defaultLogDir            = "~/.local/share/psfd/logs"
	defaultAPIBind           = "127.0.0.1:7687"
	defaultSessionExpiryDays = 30
	defaultJobWorkers        = 2
	defaultJobQueueDepth     = 32
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Session: Session{
			ExpiryDays: defaultSessionExpiryDays,
		},
		Jobs: Jobs{
			Workers:    defaultJobWorkers,
			QueueDepth: defaultJobQueueDepth,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
