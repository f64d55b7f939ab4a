package config

type Config interface {
	EnvConfig
	CorsConfig
	GatewayConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetBaseURL() string
	GetIdentityBaseURL() string
	GetUpstreamURL() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	Gateway
}

func New() Config {
	return mainConfig{}
}
