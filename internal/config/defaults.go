package config

const (
	defaultDataDir                = "~/.local/share/splice/data"
	defaultLogDir                 = "~/.local/share/splice/logs"
	defaultAPIBind                = "127.0.0.1:7419"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultLeaseSeconds           = 120
	defaultAllocateWaitSeconds    = 30
	defaultMaxTaskAttempts        = 3
	defaultReclaimIntervalSeconds = 15
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Scheduler: Scheduler{
			LeaseSeconds:           defaultLeaseSeconds,
			AllocateWaitSeconds:    defaultAllocateWaitSeconds,
			MaxTaskAttempts:        defaultMaxTaskAttempts,
			ReclaimIntervalSeconds: defaultReclaimIntervalSeconds,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
