package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig は設定が読み込めない、または不正な場合に返却されます。
var ErrInvalidConfig = errors.New("config: invalid configuration")

// 環境変数名
const (
	EnvConfigPath         = "CONFIG_PATH"
	EnvSheetURL           = "SHEET_URL"
	EnvServiceAccountInfo = "SERVICE_ACCOUNT_INFO"
	DefaultPath           = "assets/local.yaml"
)

// ストアのバックエンド種別
const (
	BackendSheets   = "sheets"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

const (
	defaultEmployeesTTL = 5 * time.Minute
	defaultQuestionsTTL = time.Hour
	defaultIdleTimeout  = 30 * time.Minute
	defaultTokenTTL     = 12 * time.Hour
)

// Config はアプリケーション全体の設定を表現します。
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Store    StoreConfig    `yaml:"store"`
	Database DatabaseConfig `yaml:"database"`
	Cache    CacheConfig    `yaml:"cache"`
	Session  SessionConfig  `yaml:"session"`
	Admin    AdminConfig    `yaml:"admin"`
}

// ServerConfig は gRPC サーバーに関する設定です。
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// StoreConfig は表形式ストアのバックエンド選択です。
type StoreConfig struct {
	Backend string       `yaml:"backend"`
	Sheets  SheetsConfig `yaml:"sheets"`
}

// SheetsConfig は Google スプレッドシートへの接続設定です。
type SheetsConfig struct {
	SpreadsheetURL  string `yaml:"spreadsheet_url"`
	CredentialsFile string `yaml:"credentials_file"`
	// CredentialsJSON は環境変数 SERVICE_ACCOUNT_INFO からのみ設定されます。
	CredentialsJSON string `yaml:"-"`
}

// HasCredentials は認証情報が指定されているかを返します。
func (s SheetsConfig) HasCredentials() bool {
	return s.CredentialsJSON != "" || s.CredentialsFile != ""
}

// DatabaseConfig は PostgreSQL 接続に関する設定です。
type DatabaseConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	User               string        `yaml:"user"`
	Password           string        `yaml:"password"`
	Name               string        `yaml:"name"`
	SSLMode            string        `yaml:"ssl_mode"`
	MaxOpenConns       int           `yaml:"max_open_conns"`
	MaxIdleConns       int           `yaml:"max_idle_conns"`
	ConnMaxLifetime    time.Duration `yaml:"-"`
	ConnMaxIdleTime    time.Duration `yaml:"-"`
	ConnMaxLifetimeRaw string        `yaml:"conn_max_lifetime"`
	ConnMaxIdleTimeRaw string        `yaml:"conn_max_idle_time"`
}

// CacheConfig は読み取りキャッシュの有効期間です。
type CacheConfig struct {
	EmployeesTTL    time.Duration `yaml:"-"`
	QuestionsTTL    time.Duration `yaml:"-"`
	EmployeesTTLRaw string        `yaml:"employees_ttl"`
	QuestionsTTLRaw string        `yaml:"questions_ttl"`
}

// SessionConfig はセッション管理の設定です。
type SessionConfig struct {
	IdleTimeout    time.Duration `yaml:"-"`
	IdleTimeoutRaw string        `yaml:"idle_timeout"`
}

// AdminConfig は管理者ログインの設定です。PasswordHash が空の場合、管理者ログインは無効です。
type AdminConfig struct {
	PasswordHash string        `yaml:"password_hash"`
	TokenSecret  string        `yaml:"token_secret"`
	TokenTTL     time.Duration `yaml:"-"`
	TokenTTLRaw  string        `yaml:"token_ttl"`
}

// Enabled は管理者ログインが有効かを返します。
func (a AdminConfig) Enabled() bool {
	return a.PasswordHash != "" && a.TokenSecret != ""
}

// Load は指定されたパスから設定ファイルを読み込み、環境変数で上書きします。
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read file %s: %v", ErrInvalidConfig, path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parse yaml: %v", ErrInvalidConfig, err)
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.validateAndNormalize(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// EffectivePath は flag 値、環境変数 CONFIG_PATH、既定値の順に設定ファイルのパスを決定します。
func EffectivePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := os.Getenv(EnvConfigPath); env != "" {
		return env
	}
	return DefaultPath
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvSheetURL); ok && strings.TrimSpace(v) != "" {
		c.Store.Sheets.SpreadsheetURL = strings.TrimSpace(v)
	}
	if v, ok := lookup(EnvServiceAccountInfo); ok && strings.TrimSpace(v) != "" {
		c.Store.Sheets.CredentialsJSON = v
	}
}

func (c *Config) validateAndNormalize() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must be set")
	}

	if err := c.Store.validateAndNormalize(); err != nil {
		return err
	}

	if c.Store.Backend == BackendPostgres {
		if err := c.Database.validateAndNormalize(); err != nil {
			return err
		}
	}

	var err error
	if c.Cache.EmployeesTTL, err = parseDurationDefault(c.Cache.EmployeesTTLRaw, defaultEmployeesTTL); err != nil {
		return fmt.Errorf("cache.employees_ttl: %w", err)
	}
	if c.Cache.QuestionsTTL, err = parseDurationDefault(c.Cache.QuestionsTTLRaw, defaultQuestionsTTL); err != nil {
		return fmt.Errorf("cache.questions_ttl: %w", err)
	}
	if c.Session.IdleTimeout, err = parseDurationDefault(c.Session.IdleTimeoutRaw, defaultIdleTimeout); err != nil {
		return fmt.Errorf("session.idle_timeout: %w", err)
	}
	if c.Admin.TokenTTL, err = parseDurationDefault(c.Admin.TokenTTLRaw, defaultTokenTTL); err != nil {
		return fmt.Errorf("admin.token_ttl: %w", err)
	}
	if c.Admin.PasswordHash != "" && c.Admin.TokenSecret == "" {
		return fmt.Errorf("admin.token_secret must be set when admin.password_hash is set")
	}

	return nil
}

func (s *StoreConfig) validateAndNormalize() error {
	s.Backend = strings.ToLower(strings.TrimSpace(s.Backend))
	if s.Backend == "" {
		s.Backend = BackendSheets
	}

	switch s.Backend {
	case BackendSheets:
		if s.Sheets.SpreadsheetURL == "" {
			return fmt.Errorf("store.sheets.spreadsheet_url or %s must be set", EnvSheetURL)
		}
		if !s.Sheets.HasCredentials() {
			return fmt.Errorf("store.sheets.credentials_file or %s must be set", EnvServiceAccountInfo)
		}
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("store.backend %q is not supported", s.Backend)
	}
	return nil
}

func (d *DatabaseConfig) validateAndNormalize() error {
	if d.Host == "" {
		return fmt.Errorf("database.host must be set")
	}
	if d.Port == 0 {
		return fmt.Errorf("database.port must be set")
	}
	if d.User == "" {
		return fmt.Errorf("database.user must be set")
	}
	if d.Password == "" {
		return fmt.Errorf("database.password must be set")
	}
	if d.Name == "" {
		return fmt.Errorf("database.name must be set")
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}

	lifetime, err := parseDurationDefault(d.ConnMaxLifetimeRaw, 0)
	if err != nil {
		return fmt.Errorf("database.conn_max_lifetime: %w", err)
	}
	d.ConnMaxLifetime = lifetime

	idleTime, err := parseDurationDefault(d.ConnMaxIdleTimeRaw, 0)
	if err != nil {
		return fmt.Errorf("database.conn_max_idle_time: %w", err)
	}
	d.ConnMaxIdleTime = idleTime

	return nil
}

func parseDurationDefault(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %s", raw)
	}
	return d, nil
}

// DSN は pgx 用の接続文字列を返します。認証情報は URL エスケープされます。
func (d DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	return u.String()
}
