package config

type Config struct {
	Address string `json:"address" env:"APP_ADDRESS"`
	Prefork bool   `json:"prefork" env:"APP_PREFORK"`
	Metrics *bool  `json:"metrics" env:"APP_METRICS"`

	Webp bool `json:"webp" env:"APP_WEBP"`

	AllowedOrigins []string `json:"allowedOrigins" env:"APP_ALLOWED_ORIGINS"`

	Token   string `json:"-" env:"APP_TOKEN"`
	HmacKey string `json:"-" env:"APP_HMAC_KEY"`

	// Resampling
	DefaultInterpolation string `json:"defaultInterpolation" env:"APP_DEFAULT_INTERPOLATION" envDefault:"bilinear"`
	Workers              int    `json:"workers" env:"APP_WORKERS"`
	ReferenceCubicTaps   bool   `json:"referenceCubicTaps" env:"APP_REFERENCE_CUBIC_TAPS"`
	MaxDimension         int    `json:"maxDimension" env:"APP_MAX_DIMENSION" envDefault:"8192"`
	MaxSourceDimension   int    `json:"maxSourceDimension" env:"APP_MAX_SOURCE_DIMENSION" envDefault:"16384"`
	MaxUploadSizeMB      int    `json:"maxUploadSizeMB" env:"APP_MAX_UPLOAD_SIZE_MB" envDefault:"32"`

	// Rate limit for the comparison endpoints, requests per minute per client
	CompareRateLimit int `json:"compareRateLimit" env:"APP_COMPARE_RATE_LIMIT" envDefault:"30"`

	// In-memory cache
	CacheTTL         int   `json:"cacheTTL" env:"APP_CACHE_TTL"`
	HTTPCacheTTL     int   `json:"httpCacheTTL" env:"APP_HTTP_CACHE_TTL" envDefault:"86400"`
	CacheNumCounters int64 `json:"cacheNumCounters" env:"APP_CACHE_NUM_COUNTERS"`
	CacheMaxCost     int64 `json:"cacheMaxCost" env:"APP_CACHE_MAX_COST"`
	CacheBufferItems int64 `json:"cacheBufferItems" env:"APP_CACHE_BUFFER_ITEMS"`

	// S3 result cache
	S3Enabled   bool   `json:"s3Enabled" env:"APP_S3_ENABLED"`
	S3Endpoint  string `json:"s3Endpoint" env:"APP_S3_ENDPOINT"`
	S3AccessKey string `json:"-" env:"APP_S3_ACCESS_KEY"`
	S3SecretKey string `json:"-" env:"APP_S3_SECRET_KEY"`
	S3Bucket    string `json:"s3Bucket" env:"APP_S3_BUCKET"`
	S3Prefix    string `json:"s3Prefix" env:"APP_S3_PREFIX" envDefault:"resampled/"`
	S3UseSSL    bool   `json:"s3UseSSL" env:"APP_S3_USE_SSL" envDefault:"true"`
	S3Region    string `json:"s3Region" env:"APP_S3_REGION"`
}
