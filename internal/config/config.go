package config

import (
	"bufio"
	"fmt"
	"net"
	netmail "net/mail"
	"net/netip"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config centralises runtime configuration.
type Config struct {
	HTTPPort         string
	StoreDriver      string
	DatabaseURL      string
	JWTSecret        string
	JWTIssuer        string
	JWTExpiry        time.Duration
	ResetPasswordURL string
	SMTP             SMTPConfig
	AllowedOrigins   []string
	ReadTimeoutSec   int
	WriteTimeoutSec  int
	IdleTimeoutSec   int
	AuthRatePerMin   int
	ResetRatePerHour int
	// TrustedProxies lists the peers whose forwarding headers name the client.
	TrustedProxies []netip.Prefix
	LogLevel       string
}

// SMTPConfig describes the outgoing mail relay. An empty Host disables SMTP
// and reset mails are logged instead.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// Load reads configuration from environment variables providing sane defaults.
func Load() (Config, error) {
	return load(".env")
}

func load(dotEnvPath string) (Config, error) {
	if err := loadDotEnv(dotEnvPath); err != nil {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	httpPort := getEnv("HTTP_PORT", "")
	if httpPort == "" {
		httpPort = getEnv("PORT", "8080")
	}

	cfg := Config{
		HTTPPort:         httpPort,
		StoreDriver:      strings.ToLower(getEnv("STORE_DRIVER", StoreDriverPostgres)),
		DatabaseURL:      resolveDatabaseURL(),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		JWTIssuer:        getEnv("JWT_ISSUER", "lumina"),
		JWTExpiry:        getDurationEnv("JWT_EXPIRY", 7*24*time.Hour),
		ResetPasswordURL: getEnv("RESET_PASSWORD_URL", ""),
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getIntEnv("SMTP_PORT", 587),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "Lumina <no-reply@lumina.local>"),
			Timeout:  getDurationEnv("SMTP_TIMEOUT", 15*time.Second),
		},
		AllowedOrigins:  splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		ReadTimeoutSec:  getIntEnv("HTTP_READ_TIMEOUT", 15),
		WriteTimeoutSec: getIntEnv("HTTP_WRITE_TIMEOUT", 15),
		IdleTimeoutSec:  getIntEnv("HTTP_IDLE_TIMEOUT", 60),
		AuthRatePerMin:   getIntEnv("RATE_LIMIT_AUTH_PER_MIN", 10),
		ResetRatePerHour: getIntEnv("RATE_LIMIT_RESET_PER_HOUR", 5),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
	}

	var problems []string
	proxies, err := parseTrustedProxies(getEnv("TRUSTED_PROXIES", ""))
	if err != nil {
		problems = append(problems, err.Error())
	}
	cfg.TrustedProxies = proxies
	switch cfg.StoreDriver {
	case StoreDriverPostgres:
		if cfg.DatabaseURL == "" {
			problems = append(problems, "database configuration missing: provide DATABASE_URL or PG* env vars")
		}
	case StoreDriverMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
	if cfg.JWTSecret == "" {
		problems = append(problems, "JWT_SECRET is required")
	}
	if cfg.ResetPasswordURL == "" {
		problems = append(problems, "RESET_PASSWORD_URL is required")
	} else if u, err := neturl.Parse(cfg.ResetPasswordURL); err != nil || u.Scheme == "" || u.Host == "" {
		problems = append(problems, "RESET_PASSWORD_URL must be an absolute URL")
	}
	if cfg.AuthRatePerMin <= 0 {
		problems = append(problems, "RATE_LIMIT_AUTH_PER_MIN must be positive")
	}
	if cfg.ResetRatePerHour <= 0 {
		problems = append(problems, "RATE_LIMIT_RESET_PER_HOUR must be positive")
	}
	if cfg.SMTP.Host != "" {
		if _, err := netmail.ParseAddress(cfg.SMTP.From); err != nil {
			problems = append(problems, fmt.Sprintf("MAIL_FROM %q is not a valid address", cfg.SMTP.From))
		}
	}
	if len(problems) > 0 {
		return Config{}, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// parseTrustedProxies accepts a comma separated list of CIDRs or single IPs.
func parseTrustedProxies(raw string) ([]netip.Prefix, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var prefixes []netip.Prefix
	for _, entry := range splitCSV(raw) {
		if strings.Contains(entry, "/") {
			prefix, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid CIDR", entry)
			}
			prefixes = append(prefixes, prefix.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("TRUSTED_PROXIES entry %q is not a valid IP", entry)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

func splitCSV(value string) []string {
	parts := []string{}
	for _, part := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return []string{"*"}
	}
	return parts
}

func resolveDatabaseURL() string {
	for _, key := range []string{
		"DATABASE_URL",
		"POSTGRES_URL",
		"PGURL",
	} {
		if url := os.Getenv(key); url != "" {
			if coerced := coerceDatabaseURL(url); coerced != "" {
				return coerced
			}
		}
	}

	for _, key := range []string{"DATABASE_URL_FILE", "PGURL_FILE"} {
		if urlFromFile := readEnvFile(key); urlFromFile != "" {
			if coerced := coerceDatabaseURL(urlFromFile); coerced != "" {
				return coerced
			}
		}
	}

	host := firstNonEmpty(os.Getenv("PGHOST"), os.Getenv("POSTGRES_HOST"))
	user := firstNonEmpty(os.Getenv("PGUSER"), os.Getenv("POSTGRES_USER"))
	password := firstNonEmpty(os.Getenv("PGPASSWORD"), os.Getenv("POSTGRES_PASSWORD"))
	database := firstNonEmpty(os.Getenv("PGDATABASE"), os.Getenv("POSTGRES_DB"))
	port := firstNonEmpty(os.Getenv("PGPORT"), os.Getenv("POSTGRES_PORT"), "5432")
	sslMode := firstNonEmpty(os.Getenv("PGSSLMODE"), "require")

	if database == "" {
		database = firstNonEmpty(user, "postgres")
	}

	dsn := &neturl.URL{
		Scheme: "postgres",
		Path:   "/" + database,
	}

	if host == "" {
		return ""
	}
	dsn.Host = net.JoinHostPort(host, port)

	if user == "" {
		return ""
	}
	dsn.User = neturl.User(user)
	if password != "" {
		dsn.User = neturl.UserPassword(user, password)
	}

	query := dsn.Query()
	if sslMode != "" && query.Get("sslmode") == "" {
		query.Set("sslmode", sslMode)
	}
	dsn.RawQuery = query.Encode()

	return normalisePostgresScheme(dsn.String())
}

func normalisePostgresScheme(url string) string {
	if strings.HasPrefix(url, "postgresql://") {
		return "postgres://" + strings.TrimPrefix(url, "postgresql://")
	}
	return url
}

func coerceDatabaseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, "postgres://") || strings.HasPrefix(raw, "postgresql://") {
		return normalisePostgresScheme(raw)
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func readEnvFile(key string) string {
	path := os.Getenv(key)
	if path == "" {
		return ""
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func loadDotEnv(path string) error {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		if strings.HasPrefix(line, "export ") {
			line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf(".env line %d: missing '='", lineNum)
		}

		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if key == "" {
			return fmt.Errorf(".env line %d: empty key", lineNum)
		}

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') || (value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if err := os.Setenv(key, value); err != nil {
			return fmt.Errorf(".env line %d: %w", lineNum, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return nil
}
