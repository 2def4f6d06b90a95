// Package config loads runtime settings from an optional YAML file
// with environment variables taking precedence, so containerized
// deployments can run file-free.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type MySQLConfig struct {
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Host     string `yaml:"host"`
	Database string `yaml:"database"`
}

type IMAPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Mailbox  string `yaml:"mailbox"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type Config struct {
	Port            string      `yaml:"port"`
	MySQL           MySQLConfig `yaml:"mysql"`
	EmailDomain     string      `yaml:"email_domain"`
	PlusLocalMode   string      `yaml:"plus_local_mode"`
	IMAP            IMAPConfig  `yaml:"imap"`
	SMTP            SMTPConfig  `yaml:"smtp"`
	PollSeconds     int         `yaml:"poll_seconds"`
	ReconnectSecs   int         `yaml:"reconnect_seconds"`
	GeminiAPIKey    string      `yaml:"gemini_api_key"`
	RateConRoot     string      `yaml:"rate_con_storage_root"`
	ListenerEnabled bool        `yaml:"listener_enabled"`
}

func defaults() *Config {
	return &Config{
		Port: "8080",
		MySQL: MySQLConfig{
			User:     "user",
			Password: "password",
			Host:     "tcp(127.0.0.1:3306)",
			Database: "gcd_db",
		},
		EmailDomain:     "gcdloads.com",
		PlusLocalMode:   "dispatch_and_handles",
		IMAP:            IMAPConfig{Port: 993, Mailbox: "INBOX"},
		SMTP:            SMTPConfig{Port: 465},
		PollSeconds:     10,
		ReconnectSecs:   5,
		RateConRoot:     "./rate_cons",
		ListenerEnabled: true,
	}
}

// Load reads the YAML file at path when it exists, then applies
// environment overrides. An empty path skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envStr(&c.Port, "PORT")
	envStr(&c.MySQL.User, "MYSQL_USER")
	envStr(&c.MySQL.Password, "MYSQL_PWD")
	envStr(&c.MySQL.Host, "MYSQL_HOST")
	envStr(&c.MySQL.Database, "MYSQL_DATABASE")

	envStr(&c.EmailDomain, "EMAIL_DOMAIN")
	envStr(&c.PlusLocalMode, "EMAIL_PLUS_LOCAL_MODE")

	envStr(&c.IMAP.Host, "MXROUTE_IMAP_HOST")
	envInt(&c.IMAP.Port, "MXROUTE_IMAP_PORT")
	envStr(&c.IMAP.Username, "MXROUTE_IMAP_USER")
	envStr(&c.IMAP.Password, "MXROUTE_IMAP_PASSWORD")
	envStr(&c.IMAP.Mailbox, "INBOUND_IMAP_MAILBOX")

	envStr(&c.SMTP.Host, "MXROUTE_SMTP_HOST")
	envInt(&c.SMTP.Port, "MXROUTE_SMTP_PORT")
	envStr(&c.SMTP.Username, "MXROUTE_SMTP_USER")
	envStr(&c.SMTP.Password, "MXROUTE_SMTP_PASSWORD")

	// The IMAP and SMTP mailboxes are usually the same account.
	if c.IMAP.Host == "" {
		c.IMAP.Host = c.SMTP.Host
	}
	if c.IMAP.Username == "" {
		c.IMAP.Username = c.SMTP.Username
	}
	if c.IMAP.Password == "" {
		c.IMAP.Password = c.SMTP.Password
	}

	envInt(&c.PollSeconds, "INBOUND_POLL_SECONDS")
	envInt(&c.ReconnectSecs, "INBOUND_RECONNECT_SECONDS")
	envStr(&c.GeminiAPIKey, "GEMINI_API_KEY")
	envStr(&c.RateConRoot, "RATE_CON_STORAGE_ROOT")
	envBool(&c.ListenerEnabled, "INBOUND_LISTENER_ENABLED")
}

// DSN builds the MySQL connection string. Host carries the network
// wrapper, e.g. "tcp(127.0.0.1:3306)".
func (c *Config) DSN() string {
	return fmt.Sprintf("%s:%s@%s/%s?parseTime=true&loc=Local",
		c.MySQL.User, c.MySQL.Password, c.MySQL.Host, c.MySQL.Database)
}

func envStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
