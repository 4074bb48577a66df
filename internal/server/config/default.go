package config

import "time"

// Default configuration values.
const (
	DefaultAddr          = "0.0.0.0:8080"
	DefaultWorkers       = 256
	DefaultQueueSize     = 1024
	DefaultOverflow      = OverflowReject
	DefaultIdleTimeout   = 60 * time.Second
	DefaultReadTimeout   = 10 * time.Second
	DefaultWriteTimeout  = 30 * time.Second
	DefaultMaxLifetime   = 10 * time.Minute
	DefaultMaxRequests   = 1000
	DefaultRetryAfter    = 1
	DefaultShutdownGrace = 25 * time.Second

	DefaultRoot         = "./content"
	DefaultMaxFileSize  = 50 << 20
	DefaultOversize     = OversizeSkip
	DefaultIndexFile    = "index.html"
	DefaultBuildWorkers = 8

	DefaultCacheControl          = "public, max-age=3600"
	DefaultFrameOptions          = "DENY"
	DefaultContentSecurityPolicy = "default-src 'self'"

	DefaultAdminAddr = "127.0.0.1:9091"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// Enumerated values.
const (
	OverflowReject = "reject"
	OverflowBlock  = "block"

	OversizeSkip = "skip"
	OversizeFail = "fail"
)

// Default returns the default server configuration.
func Default() *ServerConfig {
	return &ServerConfig{
		Server: ServerSection{
			Addr:          DefaultAddr,
			Workers:       DefaultWorkers,
			QueueSize:     DefaultQueueSize,
			Overflow:      DefaultOverflow,
			IdleTimeout:   DefaultIdleTimeout,
			ReadTimeout:   DefaultReadTimeout,
			WriteTimeout:  DefaultWriteTimeout,
			MaxLifetime:   DefaultMaxLifetime,
			MaxRequests:   DefaultMaxRequests,
			RetryAfter:    DefaultRetryAfter,
			ShutdownGrace: DefaultShutdownGrace,
		},
		Content: ContentSection{
			Root:         DefaultRoot,
			MaxFileSize:  DefaultMaxFileSize,
			Oversize:     DefaultOversize,
			IndexFile:    DefaultIndexFile,
			BuildWorkers: DefaultBuildWorkers,
		},
		Headers: HeadersSection{
			CacheControl:          DefaultCacheControl,
			FrameOptions:          DefaultFrameOptions,
			ContentSecurityPolicy: DefaultContentSecurityPolicy,
		},
		Admin: AdminSection{
			Addr: DefaultAdminAddr,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
