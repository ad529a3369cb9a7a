package config

const (
	defaultDataDir               = "~/.local/share/reelscan/data"
	defaultLogDir                = "~/.local/share/reelscan/logs"
	defaultAPIBind               = "127.0.0.1:8351"
	defaultBrowserBinary         = "chromium"
	defaultCaptureTimeout        = 90
	defaultViewportWidth         = 1280
	defaultViewportHeight        = 720
	defaultYtDlpBinary           = "yt-dlp"
	defaultFFmpegBinary          = "ffmpeg"
	defaultAudioTimeout          = 600
	defaultScribeBaseURL         = "https://api.elevenlabs.io/v1/speech-to-text"
	defaultWhisperBaseURL        = "https://api.openai.com/v1/audio/transcriptions"
	defaultWhisperModel          = "whisper-1"
	defaultTranscriptionTimeout  = 300
	defaultGPTZeroBaseURL        = "https://api.gptzero.me/v2/predict/text"
	defaultInferenceBaseURL      = "https://api-inference.huggingface.co/models"
	defaultDetectionTimeout      = 60
	defaultDetectionInputChars   = 500
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Capture: Capture{
			BrowserBinary:  defaultBrowserBinary,
			TimeoutSeconds: defaultCaptureTimeout,
			ViewportWidth:  defaultViewportWidth,
			ViewportHeight: defaultViewportHeight,
		},
		Audio: Audio{
			YtDlpBinary:    defaultYtDlpBinary,
			FFmpegBinary:   defaultFFmpegBinary,
			TimeoutSeconds: defaultAudioTimeout,
		},
		Transcription: Transcription{
			Providers:      []string{"scribe", "whisper"},
			ScribeBaseURL:  defaultScribeBaseURL,
			WhisperBaseURL: defaultWhisperBaseURL,
			WhisperModel:   defaultWhisperModel,
			TimeoutSeconds: defaultTranscriptionTimeout,
		},
		Detection: Detection{
			Providers:        []string{"gptzero", "ai-detector", "openai-detector", "content-detector"},
			GPTZeroBaseURL:   defaultGPTZeroBaseURL,
			InferenceBaseURL: defaultInferenceBaseURL,
			MaxInputChars:    defaultDetectionInputChars,
			TimeoutSeconds:   defaultDetectionTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
