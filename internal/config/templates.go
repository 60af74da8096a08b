package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Mindful Trader Configuration

[storage]
# Persistent slot backend: "file", "sqlite" or "memory"
backend = "file"
# Storage key holding the trade collection
key = "mindful_trades"
# Maximum serialized size in bytes (0 = unlimited)
quota_bytes = 5242880

[journal]
# Recommended maximum trades per day; exceeding it shows an overtrading warning
daily_trade_limit = 4
# Timeframe label pre-filled by the intake wizard
default_timeframe = "1m"

[coach]
# Chat completion model
model = "gpt-4o-mini"
# OpenAI-compatible endpoint; empty uses api.openai.com
base_url = ""
# Request pacing
requests_per_minute = 20
# Attempts per analysis before falling back
max_attempts = 2
# Per-request timeout (e.g. "60s"); "0s" waits indefinitely
request_timeout = "0s"
# Consecutive failed requests before answers fall back without calling the API
breaker_threshold = 3
# How long to wait before trying the API again
breaker_cooldown = "1m"

[server]
# Local JSON API listen address
addr = "127.0.0.1:8787"
mode = "release"

[logging]
level = "info"
console = true
file = true
max_size = 20
max_backups = 5
max_age = 30

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "2006-01-02"
`

const credentialsTemplate = `# Mindful Trader Credentials
# WARNING: Keep this file secure! Do not commit to version control.
# OPENAI_API_KEY or MINDFUL_API_KEY in the environment take precedence.

[openai]
api_key = ""
`

func createTemplate(configDir, name, content string, perm os.FileMode) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name)
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("writing %s template: %w", name, err)
	}

	return nil
}
