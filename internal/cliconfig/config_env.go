package cliconfig

import "os"

// EnvPrefix prefixes every environment variable read by ApplyEnvConfig.
const EnvPrefix = "SKYCONDITION_"

// ApplyEnvConfig applies SKYCONDITION_* environment variables to cfg.
// Values override the config file but never a flag set on the command line.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)
	env := func(key string) string { return os.Getenv(EnvPrefix + key) }

	s.setString("endpoint", env("ENDPOINT"), &cfg.Endpoint)
	s.setString("status-file", env("STATUS_FILE"), &cfg.StatusFile)
	s.setString("log-level", env("LOG_LEVEL"), &cfg.LogLevel)
	s.setString("log-format", env("LOG_FORMAT"), &cfg.LogFormat)

	if err := s.setDuration("backoff-initial", env("BACKOFF_INITIAL"), &cfg.BackoffInitial); err != nil {
		return err
	}
	if err := s.setDuration("backoff-max", env("BACKOFF_MAX"), &cfg.BackoffMax); err != nil {
		return err
	}
	if err := s.setIntFromString("max-line-bytes", env("MAX_LINE_BYTES"), &cfg.MaxLineBytes); err != nil {
		return err
	}
	return s.setBoolFromString("watch-endpoint", env("WATCH_ENDPOINT"), &cfg.WatchEndpoint)
}
