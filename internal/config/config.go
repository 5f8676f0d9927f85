// Package config provides functionality for managing configuration
// options for the application using command-line flags and environment
// variables.
package config

import (
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"
)

// Options holds the configuration values for the application.
type Options struct {
	// Addr defines the identity service's listening address (ip:port).
	Addr string

	// DatabaseDSN holds the database connection string for the identity
	// service.
	DatabaseDSN string

	// ServerURL is the base URL of the identity service, used by client
	// binaries.
	ServerURL string

	// Token is the opaque session token presented by client binaries.
	Token string

	// StickyWindow is how long after a manual sign-in session-loss
	// events are ignored as stale reads. Not settable via the JSON
	// config file; use the flag or STICKY_WINDOW.
	StickyWindow time.Duration `json:"-"`

	// Seed creates demo principals, grants and a session on startup and
	// prints the session token.
	Seed bool

	// Config is the path to the Config file.
	Config string
}

// options holds the current configuration values.
var options = &Options{}

// init initializes command-line flags and sets default values.
func init() {
	flag.StringVar(&options.Addr, "a", "localhost:8080", "run on ip:port server")
	flag.StringVar(&options.DatabaseDSN, "d", "", "db address")
	flag.StringVar(&options.ServerURL, "s", "http://localhost:8080", "identity service base URL")
	flag.StringVar(&options.Token, "t", "", "session token")
	flag.DurationVar(&options.StickyWindow, "w", 2*time.Second, "manual sign-in sticky window")
	flag.BoolVar(&options.Seed, "seed", false, "seed demo data and print a session token")
	flag.StringVar(&options.Config, "config", "config.json", "path to config file")
	flag.StringVar(&options.Config, "c", "config.json", "path to config file (shorthand)")
}

// Parse parses the command-line flags and environment variables to set
// configuration values. It returns a pointer to the Options struct
// containing the parsed configuration values.
func Parse() *Options {
	flag.Parse()

	// Override flags with environment variables if set
	if configPath := os.Getenv("CONFIG"); configPath != "" {
		options.Config = configPath
	}

	if options.Config != "" {
		if _, err := os.Stat(options.Config); err == nil {
			data, err := os.ReadFile(options.Config)
			if err != nil {
				log.Fatalf("error while reading config file: %v", err)
			}
			if err := json.Unmarshal(data, options); err != nil {
				log.Fatalf("error while parsing config file: %v", err)
			}
		}
	}

	if serverAddress := os.Getenv("SERVER_ADDRESS"); serverAddress != "" {
		options.Addr = serverAddress
	}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		options.DatabaseDSN = dsn
	}
	if serverURL := os.Getenv("IDENTITY_SERVER_URL"); serverURL != "" {
		options.ServerURL = serverURL
	}
	if token := os.Getenv("SESSION_TOKEN"); token != "" {
		options.Token = token
	}
	if window := os.Getenv("STICKY_WINDOW"); window != "" {
		d, err := time.ParseDuration(window)
		if err != nil {
			log.Fatalf("error while parsing STICKY_WINDOW: %v", err)
		}
		options.StickyWindow = d
	}

	return options
}
