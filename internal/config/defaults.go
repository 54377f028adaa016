package config

const (
	defaultDataDir           = "~/.local/share/promptq"
	defaultLogDir            = "~/.local/share/promptq/logs"
	defaultServiceBaseURL    = "https://jules.googleapis.com/v1alpha"
	defaultServiceTimeout    = 60
	defaultBranch            = "master"
	defaultMinParagraphs     = 2
	defaultMinSectionLength  = 1
	defaultWarnSubtaskCount  = 20
	defaultWarnContentLength = 10000
	defaultPacingDelayMS     = 800
	defaultRetryDelayMS      = 5000
	defaultListCacheTTLSecs  = 30
	defaultNtfyTimeout       = 10
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Service: Service{
			BaseURL:        defaultServiceBaseURL,
			RequestTimeout: defaultServiceTimeout,
			DefaultBranch:  defaultBranch,
		},
		Segmenter: Segmenter{
			MinParagraphs:     defaultMinParagraphs,
			MinSectionLength:  defaultMinSectionLength,
			WarnSubtaskCount:  defaultWarnSubtaskCount,
			WarnContentLength: defaultWarnContentLength,
		},
		Executor: Executor{
			PacingDelayMS: defaultPacingDelayMS,
			RetryDelayMS:  defaultRetryDelayMS,
		},
		Queue: Queue{
			ListCacheTTLSeconds: defaultListCacheTTLSecs,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
