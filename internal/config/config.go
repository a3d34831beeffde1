// Package config loads the probe settings file shared by all gwcheck probes.
//
// The file keeps the section and key names of the Setting.ini used by the
// existing Diafaan plugins, so one file can serve both during a migration.
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/ini.v1"

	"github.com/t-voip/gwcheck/internal/probe"
)

// DefaultPath is used when neither --config nor GWCHECK_CONFIG is set.
const DefaultPath = "/etc/gwcheck/Setting.ini"

// DefaultDiafaanMessageLog is where Diafaan Message Server keeps its message log.
const DefaultDiafaanMessageLog = `C:\ProgramData\Diafaan\Diafaan Message Server\MessageLog.sqlite`

// Message log dialects.
const (
	DialectSQLServer = "sqlserver"
	DialectPostgres  = "pgx"
	DialectSQLite    = "sqlite"
)

// Environment variables that override secrets from the settings file.
const (
	EnvSQLPassword  = "GWCHECK_SQL_PASSWORD"
	EnvSMTPPassword = "GWCHECK_SMTP_PASSWORD"
	EnvNtfyToken    = "GWCHECK_NTFY_TOKEN"
)

// Config is loaded once at startup and not modified afterwards.
type Config struct {
	Path string

	MessageLog MessageLogConfig
	SendQueue  SQLiteConfig
	ErrorLog   SQLiteConfig
	URL        URLConfig
	License    LicenseConfig
	SMTP       SMTPConfig
	State      StateConfig
	Ntfy       NtfyConfig
}

// MessageLogConfig describes the database holding the sent-message log ([sqlodbc]).
type MessageLogConfig struct {
	Dialect  string
	DSN      string
	Server   string
	Port     int
	Database string
	User     string
	Password string
	Path     string // SQLite dialect only
}

// SQLiteConfig describes a Diafaan SQLite database ([BDSQLite], [MessageLog]).
type SQLiteConfig struct {
	Path           string
	BusyTimeout    time.Duration
	ActiveGateways []int
}

// URLConfig holds the Diafaan XML endpoints ([URL]).
type URLConfig struct {
	Status string // gateway list with Active flags
	API    string // server statistics
}

// LicenseConfig holds the optional expiration date ([License]).
type LicenseConfig struct {
	Expiration string
}

// SMTPConfig configures operator e-mail ([SMTP]).
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
}

// StateConfig locates the availability probe's files ([State]).
type StateConfig struct {
	StatusFile string
	EventLog   string
}

// NtfyConfig configures the optional ntfy channel ([Ntfy]).
type NtfyConfig struct {
	ServerURL string
	Topic     string
	Token     string
}

// ResolvePath picks the settings file path from the flag value or environment.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if p := os.Getenv("GWCHECK_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the settings file at path. A missing file yields an empty
// configuration; probes that need a setting report it as missing.
func Load(path string) (*Config, error) {
	dir := filepath.Dir(path)

	// Load .env next to the settings file if present
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: load .env: %v", probe.ErrConfiguration, err)
	}

	file := ini.Empty()
	if _, err := os.Stat(path); err == nil {
		file, err = ini.LoadSources(ini.LoadOptions{InsensitiveKeys: true}, path)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", probe.ErrConfiguration, path, err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: stat %s: %v", probe.ErrConfiguration, path, err)
	}

	return parse(file, path)
}

func parse(file *ini.File, path string) (*Config, error) {
	dir := filepath.Dir(path)
	cfg := &Config{Path: path}

	sql := file.Section("sqlodbc")
	cfg.MessageLog = MessageLogConfig{
		Dialect:  strings.ToLower(sql.Key("dialect").MustString(DialectSQLServer)),
		DSN:      sql.Key("dsn").String(),
		Server:   sql.Key("server").String(),
		Port:     sql.Key("port").MustInt(0),
		Database: sql.Key("database").String(),
		User:     sql.Key("uid").String(),
		Password: envOr(EnvSQLPassword, sql.Key("pwd").String()),
		Path:     sql.Key("db_path").String(),
	}
	switch cfg.MessageLog.Dialect {
	case DialectSQLServer, DialectPostgres, DialectSQLite:
	case "postgres", "postgresql":
		cfg.MessageLog.Dialect = DialectPostgres
	default:
		return nil, fmt.Errorf("%w: [sqlodbc] dialect %q is not one of sqlserver, pgx, sqlite", probe.ErrConfiguration, cfg.MessageLog.Dialect)
	}

	queue := file.Section("BDSQLite")
	busy := queue.Key("busy_timeout").MustDuration(5 * time.Second)
	gateways, err := ParseGatewayIDs(queue.Key("active_gateways").String())
	if err != nil {
		return nil, fmt.Errorf("%w: [BDSQLite] active_gateways: %v", probe.ErrConfiguration, err)
	}
	cfg.SendQueue = SQLiteConfig{
		Path:           queue.Key("db_path").String(),
		BusyTimeout:    busy,
		ActiveGateways: gateways,
	}
	cfg.ErrorLog = SQLiteConfig{
		Path:        file.Section("MessageLog").Key("db_path").MustString(DefaultDiafaanMessageLog),
		BusyTimeout: busy,
	}

	urls := file.Section("URL")
	cfg.URL = URLConfig{
		Status: urls.Key("url").String(),
		API:    urls.Key("api_url").String(),
	}

	cfg.License = LicenseConfig{
		Expiration: file.Section("License").Key("expiration").String(),
	}

	smtp := file.Section("SMTP")
	cfg.SMTP = SMTPConfig{
		Host:     smtp.Key("host").String(),
		Port:     smtp.Key("port").MustInt(465),
		Username: smtp.Key("username").String(),
		Password: envOr(EnvSMTPPassword, smtp.Key("password").String()),
		From:     smtp.Key("from").String(),
		To:       smtp.Key("to").String(),
	}

	st := file.Section("State")
	cfg.State = StateConfig{
		StatusFile: st.Key("status_file").MustString(filepath.Join(dir, "gateway_status.txt")),
		EventLog:   st.Key("event_log").MustString(filepath.Join(dir, "gateway_events.log")),
	}

	ntfy := file.Section("Ntfy")
	cfg.Ntfy = NtfyConfig{
		ServerURL: ntfy.Key("server_url").String(),
		Topic:     ntfy.Key("topic").String(),
		Token:     envOr(EnvNtfyToken, ntfy.Key("token").String()),
	}

	return cfg, nil
}

// RequireMessageLog returns the driver name and DSN of the message log database.
func (c *Config) RequireMessageLog() (dialect, dsn string, err error) {
	m := c.MessageLog
	if m.Dialect == DialectSQLite {
		if m.Path == "" {
			return "", "", missing("sqlodbc", "db_path")
		}
		return m.Dialect, m.Path, nil
	}
	if m.DSN != "" {
		return m.Dialect, m.DSN, nil
	}
	if m.Server == "" {
		return "", "", missing("sqlodbc", "server")
	}
	if m.Database == "" {
		return "", "", missing("sqlodbc", "database")
	}

	switch m.Dialect {
	case DialectPostgres:
		return m.Dialect, m.postgresDSN(), nil
	default:
		return m.Dialect, m.sqlServerDSN(), nil
	}
}

func (m MessageLogConfig) sqlServerDSN() string {
	// ODBC style "host,port" and "host\instance" server names
	host, instance, _ := strings.Cut(m.Server, `\`)
	port := m.Port
	if h, p, ok := strings.Cut(host, ","); ok {
		host = h
		if n, err := strconv.Atoi(strings.TrimSpace(p)); err == nil {
			port = n
		}
	}
	if port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(port))
	}

	q := url.Values{}
	q.Set("database", m.Database)
	q.Set("connection timeout", "10")
	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     host,
		RawQuery: q.Encode(),
	}
	if instance != "" {
		u.Path = "/" + instance
	}
	if m.User != "" {
		u.User = url.UserPassword(m.User, m.Password)
	}
	return u.String()
}

func (m MessageLogConfig) postgresDSN() string {
	host := m.Server
	if m.Port != 0 {
		host = net.JoinHostPort(host, strconv.Itoa(m.Port))
	}
	q := url.Values{}
	q.Set("connect_timeout", "10")
	u := &url.URL{
		Scheme:   "postgres",
		Host:     host,
		Path:     "/" + m.Database,
		RawQuery: q.Encode(),
	}
	if m.User != "" {
		u.User = url.UserPassword(m.User, m.Password)
	}
	return u.String()
}

// RequireSendQueueDB returns the Diafaan send queue database settings.
func (c *Config) RequireSendQueueDB() (SQLiteConfig, error) {
	if c.SendQueue.Path == "" {
		return SQLiteConfig{}, missing("BDSQLite", "db_path")
	}
	return c.SendQueue, nil
}

// RequireStatusURL returns the XML endpoint listing gateways.
func (c *Config) RequireStatusURL() (string, error) {
	if c.URL.Status == "" {
		return "", missing("URL", "url")
	}
	return c.URL.Status, nil
}

// RequireAPIURL returns the XML endpoint with server statistics.
func (c *Config) RequireAPIURL() (string, error) {
	if c.URL.API == "" {
		return "", missing("URL", "api_url")
	}
	return c.URL.API, nil
}

// EmailEnabled reports whether enough SMTP settings exist to send mail.
func (c *Config) EmailEnabled() bool {
	return c.SMTP.Host != "" && c.SMTP.To != ""
}

// NtfyEnabled reports whether the ntfy channel is configured.
func (c *Config) NtfyEnabled() bool {
	return c.Ntfy.Topic != ""
}

func missing(section, key string) error {
	return fmt.Errorf("%w: [%s] %s is not set in the settings file", probe.ErrConfiguration, section, key)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}

// ParseGatewayIDs parses a comma-separated list of numeric gateway ids.
func ParseGatewayIDs(s string) ([]int, error) {
	var ids []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid gateway id %q", part)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
