package config

type Config interface {
	EnvConfig
	CorsConfig
	SpotifyConfig
	DatabaseConfig
	StorageConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetPublicBaseURL() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Spotify
	Database
	Storage
	Security
}

func New() Config {
	return mainConfig{}
}
