package config

const (
	defaultDataDir             = "~/.local/share/storyloom"
	defaultLogDir              = "~/.local/share/storyloom/logs"
	defaultLogFormat           = "text"
	defaultLogLevel            = "info"
	defaultStorageBackend      = "fs"
	defaultCollectTimeout      = 600
	defaultPollInterval        = 2
	defaultRequestTimeout      = 30
	defaultFaceSwapPrompt      = "child portrait"
	defaultFaceSwapNegative    = "low quality, bad face, distorted"
	defaultWorkflowPollSeconds = 5
	defaultTaskRetries         = 2
	defaultRenderQueue         = "render"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Storage: Storage{
			Backend: defaultStorageBackend,
		},
		FaceSwap: FaceSwap{
			CollectTimeout:  defaultCollectTimeout,
			PollInterval:    defaultPollInterval,
			RequestTimeout:  defaultRequestTimeout,
			DefaultPrompt:   defaultFaceSwapPrompt,
			DefaultNegative: defaultFaceSwapNegative,
		},
		Vision: Vision{
			RequestTimeout: defaultRequestTimeout,
		},
		Workflow: Workflow{
			PollInterval: defaultWorkflowPollSeconds,
			TaskRetries:  defaultTaskRetries,
			RenderQueue:  defaultRenderQueue,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
