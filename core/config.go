package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Backend drivers
const (
	BackendPostgrest = "postgrest" // hosted backend-as-a-service (REST + auth endpoints)
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendMemory    = "memory"
)

type (
	ServerConfig struct {
		Address                string
		DebugAddress           string
		Host                   string
		ShutdownTimeout        time.Duration
		SessionExpirationDelta time.Duration
		SessionRefreshDelta    time.Duration
	}

	BackendConfig struct {
		Driver  string
		URL     string
		AnonKey string
	}

	DatabaseConfig struct {
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite
	}

	CacheConfig struct {
		Driver string
		TTL    time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	BlobConfig struct {
		Driver        string
		Dir           string
		PublicBaseURL string
		S3Region      string
		S3Bucket      string
		S3AccessKey   string
		S3SecretKey   string
	}

	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		FrontendBaseURL  string
		SendgridApiKey   string
		RollbarToken     string
		MailRetries      uint
		defaultFromEmail string

		Server   ServerConfig
		Backend  BackendConfig
		Database DatabaseConfig
		Cache    CacheConfig
		Redis    RedisConfig
		Blob     BlobConfig
	}
)

// Address returns the database "host:port".
func (d DatabaseConfig) Address() string {
	return net.JoinHostPort(d.Host, strconv.Itoa(d.Port))
}

// DefaultFromEmail parses the configured sender address, falling back to a bare address.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.defaultFromEmail}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the configuration for the environment named by $ENV (DEV by default).
// Values come from defaults, an optional config/.env.<env> file and <ENV>_ prefixed env vars.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	return newConfig(env, newViper(env))
}

func newViper(env string) *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Smart School Hub")
	v.SetDefault("secretKey", "2z!m_8q$e0w#v@k9x&c4r)p+t7y(u1i3o5a6s%d^f*g=h-j")
	v.SetDefault("frontendBaseURL", "http://localhost:8000")
	v.SetDefault("defaultFromEmail", "Smart School Hub <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("mail.retryAttempts", 3)

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionExpirationDelta", 24*time.Hour)
	v.SetDefault("server.sessionRefreshDelta", 7*24*time.Hour)

	v.SetDefault("backend.driver", BackendMemory)
	v.SetDefault("backend.url", "")
	v.SetDefault("backend.anonKey", "")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "schoolhub")
	v.SetDefault("database.user", "schoolhub")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")
	v.SetDefault("database.path", "schoolhub.db")

	v.SetDefault("cache.driver", "memory")
	v.SetDefault("cache.ttl", 5*time.Minute)

	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("blob.driver", "disk")
	v.SetDefault("blob.dir", filepath.Join(os.TempDir(), "schoolhub-uploads"))
	v.SetDefault("blob.publicBaseURL", "/uploads")
	v.SetDefault("blob.s3Region", "")
	v.SetDefault("blob.s3Bucket", "")
	v.SetDefault("blob.s3AccessKey", "")
	v.SetDefault("blob.s3SecretKey", "")

	// DEV_SERVER_ADDRESS -> server.address
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func newConfig(env string, v *viper.Viper) *Config {
	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		MailRetries:      v.GetUint("mail.retryAttempts"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:                v.GetString("server.address"),
			DebugAddress:           v.GetString("server.debugAddress"),
			Host:                   v.GetString("server.host"),
			ShutdownTimeout:        v.GetDuration("server.shutdownTimeout"),
			SessionExpirationDelta: v.GetDuration("server.sessionExpirationDelta"),
			SessionRefreshDelta:    v.GetDuration("server.sessionRefreshDelta"),
		},
		Backend: BackendConfig{
			Driver:  strings.ToLower(v.GetString("backend.driver")),
			URL:     strings.TrimSuffix(v.GetString("backend.url"), "/"),
			AnonKey: v.GetString("backend.anonKey"),
		},
		Database: DatabaseConfig{
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Cache: CacheConfig{
			Driver: strings.ToLower(v.GetString("cache.driver")),
			TTL:    v.GetDuration("cache.ttl"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Blob: BlobConfig{
			Driver:        strings.ToLower(v.GetString("blob.driver")),
			Dir:           v.GetString("blob.dir"),
			PublicBaseURL: strings.TrimSuffix(v.GetString("blob.publicBaseURL"), "/"),
			S3Region:      v.GetString("blob.s3Region"),
			S3Bucket:      v.GetString("blob.s3Bucket"),
			S3AccessKey:   v.GetString("blob.s3AccessKey"),
			S3SecretKey:   v.GetString("blob.s3SecretKey"),
		},
	}
}

// NewTestConfig returns a config suitable for tests: memory backend, no cache, fixed secret.
func NewTestConfig() *Config {
	conf := newConfig("TEST", newViper("TEST"))
	conf.SecretKey = "secret"
	conf.Backend.Driver = BackendMemory
	conf.Cache.Driver = "none"
	conf.Blob.Dir = filepath.Join(os.TempDir(), fmt.Sprintf("schoolhub-test-%d", os.Getpid()))
	return conf
}
