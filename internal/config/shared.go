package config

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port string
	Name string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host string
	Port string
}
