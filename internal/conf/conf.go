package conf

import (
	"encoding/json"
	"fmt"
	"time"
)

// Bootstrap is the root of configs/config.yaml.
type Bootstrap struct {
	Server *Server `json:"server"`
	Data   *Data   `json:"data"`
	App    *App    `json:"app"`
}

// Server holds the transport listeners.
type Server struct {
	Http *Server_HTTP `json:"http"`
	Grpc *Server_GRPC `json:"grpc"`
}

type Server_HTTP struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

type Server_GRPC struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// Data selects and configures the link store backend.
type Data struct {
	// Store is one of redis, sqlite3, postgres or memory.
	Store     string         `json:"store"`
	Namespace string         `json:"namespace"`
	Redis     *Data_Redis    `json:"redis"`
	Database  *Data_Database `json:"database"`
}

type Data_Redis struct {
	Addr         string   `json:"addr"`
	Password     string   `json:"password"`
	Db           int      `json:"db"`
	ReadTimeout  Duration `json:"read_timeout"`
	WriteTimeout Duration `json:"write_timeout"`
}

type Data_Database struct {
	Source string `json:"source"`
}

// App carries the shortening rules.
type App struct {
	ShorturlBase      string `json:"shorturl_base"`
	ShortcodeLength   int    `json:"shortcode_length"`
	ShortcodeAlphabet string `json:"shortcode_alphabet"`
	ShortcodeFormat   string `json:"shortcode_format"`
	// ShortcodeMaxAttempts bounds the draws per generated code; 0 keeps the default.
	ShortcodeMaxAttempts int `json:"shortcode_max_attempts"`
}

// Duration decodes "1.5s" style strings as well as integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch val := v.(type) {
	case float64:
		d.Duration = time.Duration(val)
	case string:
		parsed, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("conf: invalid duration %q: %w", val, err)
		}
		d.Duration = parsed
	case nil:
		d.Duration = 0
	default:
		return fmt.Errorf("conf: invalid duration %v", v)
	}
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// AsDuration mirrors the protobuf duration accessor used by the servers.
func (d Duration) AsDuration() time.Duration {
	return d.Duration
}
