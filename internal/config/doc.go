// Package config loads runtime configuration for the journal client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-r string   base URL of the sync server
//	-d string   data directory holding the store and keystore
//	-i int      push interval (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "remote_base_url": "http://localhost:5984",
//	  "data_dir": "/home/me/.config/journal",
//	  "longpoll_timeout": "25s",
//	  "push_interval": "30s"
//	}
//
// This package does not read environment variables; use the JSON file or
// flags to configure values.
package config
