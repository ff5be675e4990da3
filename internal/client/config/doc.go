// Package config loads runtime configuration for the thyroscope client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the remote API (e.g. http://127.0.0.1:5000/api)
//	-d string   path of the local sqlite database
//	-t int      request timeout (seconds)
//	-l string   log level: debug, info, warn, error
//
// # JSON schema
//
// Durations can be strings like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "http://127.0.0.1:5000/api",
//	  "db_path": "thyroscope.db",
//	  "request_timeout": "30s",
//	  "log_level": "debug",
//	  "log_format": "json"
//	}
package config
