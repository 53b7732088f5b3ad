// Package config loads the process-wide settings once at start-up. The
// resulting Config is passed by value to the server and logger; nothing
// reads it implicitly.
package config

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const DefaultFile = "serverconfig.toml"

var ErrUnknownKey = errors.New("unknown config key")

// Duration is a time.Duration written as "30s" in TOML.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	DataPath  string `toml:"DATA_PATH"`
	LogFile   string `toml:"LOG_FILE"`
	LogLevel  string `toml:"LOG_LEVEL"`
	LogFormat string `toml:"LOG_FORMAT"`

	Host string `toml:"HOST"`
	Port int    `toml:"PORT"`

	// MaxConnections caps concurrent sessions; 0 means unlimited.
	MaxConnections int `toml:"MAX_CONNECTIONS"`
	// ReadTimeout is the idle limit per connection read; 0 waits forever.
	ReadTimeout Duration `toml:"READ_TIMEOUT"`
	DialTimeout Duration `toml:"DIAL_TIMEOUT"`
}

func Default() Config {
	return Config{
		DataPath:    "received",
		LogFile:     "fileserver.log",
		LogLevel:    "debug",
		LogFormat:   "text",
		Host:        "0.0.0.0",
		Port:        5001,
		DialTimeout: Duration{5 * time.Second},
	}
}

// Load decodes path on top of Default. Keys the file sets that Config
// does not know are reported as ErrUnknownKey after everything else has
// been applied.
func Load(path string) (Config, error) {
	cfg := Default()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return cfg, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return cfg, fmt.Errorf("%w in %s: %s", ErrUnknownKey, path, strings.Join(keys, ", "))
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.DataPath == "" {
		return errors.New("DATA_PATH must not be empty")
	}
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("PORT %d out of range", c.Port)
	}
	if c.MaxConnections < 0 {
		return fmt.Errorf("MAX_CONNECTIONS %d must not be negative", c.MaxConnections)
	}
	if c.ReadTimeout.Duration < 0 || c.DialTimeout.Duration < 0 {
		return errors.New("timeouts must not be negative")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel)
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("unknown LOG_FORMAT %q", c.LogFormat)
	}
	return nil
}

// Address returns Host:Port.
func (c Config) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
