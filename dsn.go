package goinflux

import (
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultChunkSize = 10000
	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "goinflux/" + GoInfluxVersion
)

// Config is the configuration of a Client.
type Config struct {
	URL      string // base URL of the server, e.g. http://localhost:8086
	Username string
	Password string
	Database string // default database

	RetentionPolicy string    // default retention policy of writes and queries (optional)
	Precision       Precision // write precision and query epoch
	Consistency     string    // write consistency (optional, clustered servers only)

	Chunked   bool // request chunked query responses
	ChunkSize int  // rows per chunk when Chunked is set
	Gzip      bool // compress write bodies and accept compressed responses

	Timeout        time.Duration // per request timeout
	SchemaCacheTTL time.Duration // lifetime of tag/field classification entries, 0 is unlimited

	LogLevel  string // applied to the goinflux logger when a Client is created (optional)
	UserAgent string
}

func (c *Config) fillMissingConfigParameters() error {
	if strings.TrimSpace(c.URL) == "" {
		return errInvalidConfig("URL is required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return errInvalidConfig(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return errInvalidConfig("URL scheme must be http or https, got " + strconv.Quote(u.Scheme))
	}
	if u.Host == "" {
		return errInvalidConfig("URL has no host")
	}
	if c.Password != "" && c.Username == "" {
		return errInvalidConfig("password given without username")
	}
	if c.Precision == "" {
		c.Precision = Nanosecond
	} else if _, err = ParsePrecision(string(c.Precision)); err != nil {
		return err
	}
	if c.ChunkSize < 0 {
		return errInvalidConfig("chunk size must not be negative")
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = defaultChunkSize
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}
	if c.SchemaCacheTTL < 0 {
		return errInvalidConfig("schema cache TTL must not be negative")
	}
	if c.UserAgent == "" {
		c.UserAgent = defaultUserAgent
	}
	return nil
}

func errInvalidConfig(reason interface{}) *InfluxError {
	return &InfluxError{
		Number:      ErrCodeInvalidConfig,
		Message:     errMsgInvalidConfig,
		MessageArgs: []interface{}{reason},
	}
}

// ParseDSN parses a DSN of the form
//
//	http[s]://[user[:password]@]host[:port][/database][?param1=value1&paramN=valueN]
//
// Recognized parameters: precision, retentionPolicy, consistency, chunked,
// chunkSize, gzip, timeout, schemaCacheTTL, logLevel, userAgent. Durations
// accept Go duration strings or whole seconds.
func ParseDSN(dsn string) (*Config, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, errInvalidConfig(err)
	}
	cfg := &Config{}
	if u.User != nil {
		cfg.Username = u.User.Username()
		cfg.Password, _ = u.User.Password()
	}
	cfg.Database = strings.Trim(u.Path, "/")
	for key, values := range u.Query() {
		if len(values) == 0 {
			continue
		}
		if err = parseConnectionParam(cfg, key, values[len(values)-1]); err != nil {
			return nil, err
		}
	}
	cfg.URL = (&url.URL{Scheme: u.Scheme, Host: u.Host}).String()
	if err = cfg.fillMissingConfigParameters(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN builds a DSN from cfg. Parameters with their default value are omitted.
func DSN(cfg *Config) (string, error) {
	if err := cfg.fillMissingConfigParameters(); err != nil {
		return "", err
	}
	base, err := url.Parse(cfg.URL)
	if err != nil {
		return "", errInvalidConfig(err)
	}
	u := &url.URL{Scheme: base.Scheme, Host: base.Host}
	if cfg.Username != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.Username, cfg.Password)
		} else {
			u.User = url.User(cfg.Username)
		}
	}
	if cfg.Database != "" {
		u.Path = "/" + cfg.Database
	}
	params := url.Values{}
	if cfg.Precision != Nanosecond {
		params.Add("precision", string(cfg.Precision))
	}
	if cfg.RetentionPolicy != "" {
		params.Add("retentionPolicy", cfg.RetentionPolicy)
	}
	if cfg.Consistency != "" {
		params.Add("consistency", cfg.Consistency)
	}
	if cfg.Chunked {
		params.Add("chunked", "true")
	}
	if cfg.ChunkSize != defaultChunkSize {
		params.Add("chunkSize", strconv.Itoa(cfg.ChunkSize))
	}
	if cfg.Gzip {
		params.Add("gzip", "true")
	}
	if cfg.Timeout != defaultTimeout {
		params.Add("timeout", cfg.Timeout.String())
	}
	if cfg.SchemaCacheTTL != 0 {
		params.Add("schemaCacheTTL", cfg.SchemaCacheTTL.String())
	}
	if cfg.LogLevel != "" {
		params.Add("logLevel", cfg.LogLevel)
	}
	if cfg.UserAgent != defaultUserAgent {
		params.Add("userAgent", cfg.UserAgent)
	}
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// parseConnectionParam applies one setting shared by DSNs and config files.
// value is a string for DSNs and may be a native type for config files.
func parseConnectionParam(cfg *Config, key string, value interface{}) error {
	var parsingErr error
	err := &InfluxError{
		Number:  ErrCodeConfigFileParsingFailed,
		Message: errMsgFailedToParseConfigFile,
	}
	switch strings.ToLower(key) {
	case "url":
		cfg.URL, parsingErr = parseString(value)
	case "user", "username":
		cfg.Username, parsingErr = parseString(value)
	case "password":
		cfg.Password, parsingErr = parseString(value)
	case "database", "db":
		cfg.Database, parsingErr = parseString(value)
	case "retentionpolicy", "rp":
		cfg.RetentionPolicy, parsingErr = parseString(value)
	case "precision":
		var v string
		if v, parsingErr = parseString(value); parsingErr == nil {
			cfg.Precision, parsingErr = ParsePrecision(v)
		}
	case "consistency":
		cfg.Consistency, parsingErr = parseString(value)
	case "chunked":
		cfg.Chunked, parsingErr = parseBool(value)
	case "chunksize":
		cfg.ChunkSize, parsingErr = parseInt(value)
	case "gzip":
		cfg.Gzip, parsingErr = parseBool(value)
	case "timeout":
		cfg.Timeout, parsingErr = parseDuration(value)
	case "schemacachettl":
		cfg.SchemaCacheTTL, parsingErr = parseDuration(value)
	case "loglevel":
		cfg.LogLevel, parsingErr = parseString(value)
	case "useragent":
		cfg.UserAgent, parsingErr = parseString(value)
	default:
		parsingErr = errUnknownParameter
	}
	if parsingErr != nil {
		err.MessageArgs = []interface{}{"connection parameter", key, maskedValue(key, value)}
		return err
	}
	return nil
}

func maskedValue(key string, value interface{}) interface{} {
	if strings.EqualFold(key, "password") {
		return "****"
	}
	return value
}
