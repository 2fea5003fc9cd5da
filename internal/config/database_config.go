package config

import "time"

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type DatabaseConfig interface {
	GetDBDriver() string
	GetDBConnectionString() string
	GetDBHost() string
	GetDBName() string
	GetDBUser() string
	GetDBPassword() string
	GetDBPort() int
	GetDBSSL() bool
	GetDBConnectTimeout() time.Duration
	GetDBMigrate() bool
}

type Database struct{}

var _ DatabaseConfig = Database{}

func (Database) GetDBDriver() string {
	return GetEnv("DB_DRIVER", DriverPostgres)
}

func (Database) GetDBConnectionString() string {
	return GetEnv("DB_CONNECTION_STRING", "")
}

func (Database) GetDBHost() string {
	return GetEnv("DB_HOST", "")
}

func (Database) GetDBName() string {
	return GetEnv("DB_NAME", "")
}

func (Database) GetDBUser() string {
	return GetEnv("DB_USER", "")
}

func (Database) GetDBPassword() string {
	return GetEnv("DB_PASSWORD", "")
}

func (Database) GetDBPort() int {
	return GetEnvInt("DB_PORT", 5432)
}

func (Database) GetDBSSL() bool {
	return GetEnvBool("DB_SSL", false)
}

func (Database) GetDBConnectTimeout() time.Duration {
	return GetEnvDuration("DB_CONNECT_TIMEOUT", 5*time.Second)
}

func (Database) GetDBMigrate() bool {
	return GetEnvBool("DB_MIGRATE", true)
}
