package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	TenancyConfig struct {
		// BaseDomain hosts the centers' default sub-domains: <slug>.<BaseDomain>
		BaseDomain string
		// CenterHeader lets API clients select a center explicitly (by slug).
		CenterHeader string
	}

	SchedulerConfig struct {
		AutoCompleteInterval time.Duration // 0 disables
	}

	SEOConfig struct {
		IndexNowKey      string
		IndexNowEndpoint string
		PingEndpoints    []string
	}

	BlogConfig struct {
		CacheTTL     time.Duration
		MaxItems     int
		FetchTimeout time.Duration
	}

	Config struct {
		Debug                     bool
		TestMode                  bool
		AppName                   string
		Env                       string
		Build                     string
		SecretKey                 string
		FrontendBaseURL           string
		RollbarToken              string
		SendgridApiKey            string
		PasswordResetTimeoutDelta time.Duration

		Server    ServerConfig
		Database  DatabaseConfig
		Tenancy   TenancyConfig
		Scheduler SchedulerConfig
		SEO       SEOConfig
		Blog      BlogConfig

		defaultFromEmail string
	}
)

// NewConfig loads the configuration from defaults, `config/.env.<env>` (if any) and the environment.
// Env vars are prefixed with the upper-cased env name, eg: DEV_SECRETKEY, PROD_DATABASE_HOST.
func NewConfig() *Config {
	conf := viper.New()

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", true)
	conf.SetDefault("testMode", false)
	conf.SetDefault("appName", "KidCare")
	conf.SetDefault("build", "dev")
	conf.SetDefault("secretKey", "k1d-c@re)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "KidCare <noreply@localhost>")
	conf.SetDefault("rollbarToken", "")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	conf.SetDefault("server.host", ":8000")
	conf.SetDefault("server.debugHost", ":4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", "5432")
	conf.SetDefault("database.name", "kidcare")
	conf.SetDefault("database.user", "kidcare")
	conf.SetDefault("database.password", "kidcare")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "postgres")
	conf.SetDefault("database.disableTLS", true)

	conf.SetDefault("tenancy.baseDomain", "kidcare.localhost")
	conf.SetDefault("tenancy.centerHeader", "X-Center")

	conf.SetDefault("scheduler.autoCompleteInterval", 10*time.Minute)

	conf.SetDefault("seo.indexNowKey", "")
	conf.SetDefault("seo.indexNowEndpoint", "https://api.indexnow.org/indexnow")
	conf.SetDefault("seo.pingEndpoints", []string{})

	conf.SetDefault("blog.cacheTTL", 15*time.Minute)
	conf.SetDefault("blog.maxItems", 10)
	conf.SetDefault("blog.fetchTimeout", 10*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		conf.SetDefault("testMode", true)
	case "QA", "PROD":
		conf.SetDefault("debug", false)
	}
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	conf.AutomaticEnv()

	return &Config{
		Debug:                     conf.GetBool("debug"),
		TestMode:                  conf.GetBool("testMode"),
		AppName:                   conf.GetString("appName"),
		Env:                       env,
		Build:                     conf.GetString("build"),
		SecretKey:                 conf.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(conf.GetString("frontendBaseURL"), "/"),
		RollbarToken:              conf.GetString("rollbarToken"),
		SendgridApiKey:            conf.GetString("sendgridApiKey"),
		PasswordResetTimeoutDelta: conf.GetDuration("passwordResetTimeoutDelta"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetString("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Tenancy: TenancyConfig{
			BaseDomain:   strings.ToLower(conf.GetString("tenancy.baseDomain")),
			CenterHeader: conf.GetString("tenancy.centerHeader"),
		},
		Scheduler: SchedulerConfig{
			AutoCompleteInterval: conf.GetDuration("scheduler.autoCompleteInterval"),
		},
		SEO: SEOConfig{
			IndexNowKey:      conf.GetString("seo.indexNowKey"),
			IndexNowEndpoint: conf.GetString("seo.indexNowEndpoint"),
			PingEndpoints:    conf.GetStringSlice("seo.pingEndpoints"),
		},
		Blog: BlogConfig{
			CacheTTL:     conf.GetDuration("blog.cacheTTL"),
			MaxItems:     conf.GetInt("blog.maxItems"),
			FetchTimeout: conf.GetDuration("blog.fetchTimeout"),
		},
		defaultFromEmail: conf.GetString("defaultFromEmail"),
	}
}

// DefaultFromEmail parses the configured sender address, falling back to its raw value.
func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}
