package config

import "time"

// Store drivers.
const (
	DriverMongo  = "mongo"
	DriverSQLite = "sqlite"
)

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	Store             StoreConfig   `mapstructure:"store" yaml:"store"`
	JWT               JWTConfig     `mapstructure:"jwt" yaml:"jwt"`
	CORS              CORSConfig    `mapstructure:"cors" yaml:"cors"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Driver        string        `mapstructure:"driver" yaml:"driver"`
	MongoURI      string        `mapstructure:"mongo_uri" yaml:"mongo_uri"`
	MongoDatabase string        `mapstructure:"mongo_database" yaml:"mongo_database"`
	SQLitePath    string        `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	Timeout       time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// JWTConfig configures bearer token validation.
type JWTConfig struct {
	Secret   string        `mapstructure:"secret" yaml:"secret"`
	Issuer   string        `mapstructure:"issuer" yaml:"issuer"`
	Audience string        `mapstructure:"audience" yaml:"audience"`
	TTL      time.Duration `mapstructure:"ttl" yaml:"ttl"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins" yaml:"allow_origins"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		LogLevel:          "info",
		Store: StoreConfig{
			Driver:        DriverMongo,
			MongoURI:      "mongodb://127.0.0.1:27017",
			MongoDatabase: "chatdir",
			SQLitePath:    "chatdir.db",
			Timeout:       10 * time.Second,
		},
		JWT: JWTConfig{
			Issuer: "chatdir",
			TTL:    24 * time.Hour,
		},
		CORS: CORSConfig{
			AllowOrigins: []string{"http://localhost:3000"},
		},
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.Store.Driver != "" {
		c.Store.Driver = other.Store.Driver
	}
	if other.Store.MongoURI != "" {
		c.Store.MongoURI = other.Store.MongoURI
	}
	if other.Store.MongoDatabase != "" {
		c.Store.MongoDatabase = other.Store.MongoDatabase
	}
	if other.Store.SQLitePath != "" {
		c.Store.SQLitePath = other.Store.SQLitePath
	}
	if other.Store.Timeout != 0 {
		c.Store.Timeout = other.Store.Timeout
	}
	if other.JWT.Secret != "" {
		c.JWT.Secret = other.JWT.Secret
	}
	if other.JWT.Issuer != "" {
		c.JWT.Issuer = other.JWT.Issuer
	}
	if other.JWT.Audience != "" {
		c.JWT.Audience = other.JWT.Audience
	}
	if other.JWT.TTL != 0 {
		c.JWT.TTL = other.JWT.TTL
	}
	if len(other.CORS.AllowOrigins) > 0 {
		c.CORS.AllowOrigins = other.CORS.AllowOrigins
	}
}

// Validate reports configuration the server cannot start with.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case DriverMongo:
		if c.Store.MongoURI == "" || c.Store.MongoDatabase == "" {
			return errMissing("store.mongo_uri and store.mongo_database")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return errMissing("store.sqlite_path")
		}
	default:
		return &InvalidError{Key: "store.driver", Reason: "must be \"mongo\" or \"sqlite\""}
	}
	if c.JWT.Secret == "" {
		return errMissing("jwt.secret")
	}
	return nil
}

// InvalidError describes a bad configuration key.
type InvalidError struct {
	Key    string
	Reason string
}

func (e *InvalidError) Error() string {
	return "config " + e.Key + ": " + e.Reason
}

func errMissing(key string) error {
	return &InvalidError{Key: key, Reason: "is required"}
}
