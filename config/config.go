// Package config provides configuration management for the casedesk server
package config

import (
	"fmt"
	"time"
)

// Config represents the application configuration structure
type Config struct {
	Server     ServerConfig     `yaml:"server" env:"SERVER"`
	Logger     LoggerConfig     `yaml:"logger" env:"LOGGER"`
	WebSocket  WebSocketConfig  `yaml:"websocket" env:"WEBSOCKET"`
	JWT        JWTConfig        `yaml:"jwt" env:"JWT"`
	Navigation NavigationConfig `yaml:"navigation" env:"NAVIGATION"`
	Users      []UserConfig     `yaml:"users"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address         string        `yaml:"address" env:"ADDRESS" default:":8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT" default:"30s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT" default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" default:"10s"`
	GZip            bool          `yaml:"gzip" env:"GZIP" default:"true"`
	Recovery        bool          `yaml:"recovery" env:"RECOVERY" default:"true"`
	LoginRate       int           `yaml:"login_rate" env:"LOGIN_RATE" default:"5"`
	LoginBurst      int           `yaml:"login_burst" env:"LOGIN_BURST" default:"10"`
	WatchConfig     bool          `yaml:"watch_config" env:"WATCH_CONFIG" default:"false"`
}

// LoggerConfig holds logging configuration
type LoggerConfig struct {
	Level            string   `yaml:"level" env:"LEVEL" default:"info"`
	Encoding         string   `yaml:"encoding" env:"ENCODING" default:"json"`
	OutputPaths      []string `yaml:"output_paths" env:"OUTPUT_PATHS" default:"stdout"`
	ErrorOutputPaths []string `yaml:"error_output_paths" env:"ERROR_OUTPUT_PATHS" default:"stderr"`
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	ReadBufferSize  int           `yaml:"read_buffer_size" env:"READ_BUFFER_SIZE" default:"1024"`
	WriteBufferSize int           `yaml:"write_buffer_size" env:"WRITE_BUFFER_SIZE" default:"1024"`
	MaxMessageSize  int64         `yaml:"max_message_size" env:"MAX_MESSAGE_SIZE" default:"65536"`
	PongWait        time.Duration `yaml:"pong_wait" env:"PONG_WAIT" default:"60s"`
	PingPeriod      time.Duration `yaml:"ping_period" env:"PING_PERIOD" default:"54s"`
	NavigationRate  float64       `yaml:"navigation_rate" env:"NAVIGATION_RATE" default:"20"`
	NavigationBurst int           `yaml:"navigation_burst" env:"NAVIGATION_BURST" default:"40"`
}

// JWTConfig holds JWT authentication configuration
type JWTConfig struct {
	SecretKey      string        `yaml:"secret_key" env:"SECRET_KEY,required" resource:".jwt-secret"`
	AccessTokenTTL time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" default:"8h"`
	Issuer         string        `yaml:"issuer" env:"ISSUER" default:"casedesk"`
}

// NavigationConfig holds router policy.
type NavigationConfig struct {
	PublicPaths []string `yaml:"public_paths" env:"PUBLIC_PATHS" default:"/,/recovery"`
	LoginPath   string   `yaml:"login_path" env:"LOGIN_PATH" default:"/"`
	MountID     string   `yaml:"mount_id" env:"MOUNT_ID" default:"app"`
}

// UserConfig is a login account. PasswordHash is a bcrypt hash.
type UserConfig struct {
	ID           string   `yaml:"id"`
	Username     string   `yaml:"username"`
	Email        string   `yaml:"email"`
	PasswordHash string   `yaml:"password_hash"`
	Role         string   `yaml:"role"`
	Permissions  []string `yaml:"permissions"`
}

// Loader interface for configuration loading
type Loader interface {
	Load(cfg *Config) error
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address:         ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			GZip:            true,
			Recovery:        true,
			LoginRate:       5,
			LoginBurst:      10,
		},
		Logger: LoggerConfig{
			Level:            "info",
			Encoding:         "json",
			OutputPaths:      []string{"stdout"},
			ErrorOutputPaths: []string{"stderr"},
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			MaxMessageSize:  64 * 1024,
			PongWait:        60 * time.Second,
			PingPeriod:      54 * time.Second,
			NavigationRate:  20,
			NavigationBurst: 40,
		},
		JWT: JWTConfig{
			AccessTokenTTL: 8 * time.Hour,
			Issuer:         "casedesk",
		},
		Navigation: NavigationConfig{
			PublicPaths: []string{"/", "/recovery"},
			LoginPath:   "/",
			MountID:     "app",
		},
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("JWT secret key is required")
	}
	if c.JWT.AccessTokenTTL <= 0 {
		return fmt.Errorf("JWT access token TTL must be positive")
	}
	if c.WebSocket.PingPeriod >= c.WebSocket.PongWait {
		return fmt.Errorf("websocket ping period must be shorter than pong wait")
	}
	if c.Navigation.MountID == "" {
		return fmt.Errorf("navigation mount id is required")
	}
	seen := make(map[string]struct{}, len(c.Users))
	for i, u := range c.Users {
		if u.Username == "" {
			return fmt.Errorf("users[%d]: username is required", i)
		}
		if u.PasswordHash == "" {
			return fmt.Errorf("users[%d] %q: password_hash is required", i, u.Username)
		}
		if _, dup := seen[u.Username]; dup {
			return fmt.Errorf("users[%d]: duplicate username %q", i, u.Username)
		}
		seen[u.Username] = struct{}{}
	}
	return nil
}

// IsDevelopment reports whether debug features are enabled.
func (c *Config) IsDevelopment() bool {
	return c.Logger.Level == "debug"
}
