// Package config handles Barkeep configuration and persisted bot state
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Config holds Barkeep configuration. Credentials and tunables come from the
// environment first; the state file overrides credentials and carries the
// mutable bot state (subscriptions, admins) across restarts.
type Config struct {
	// Credentials
	TelegramToken   string
	AnthropicAPIKey string
	PosterToken     string

	// Storage
	StateFile    string
	DatabasePath string

	// Dashboard
	DashboardAddr  string
	DashboardToken string

	// Reporting
	DailySummaryCron string

	// Logging
	LogLevel string

	mu              sync.Mutex
	subscribedChats map[string]bool
	adminChats      map[string]bool
}

// Load loads configuration from environment and the state file
func Load() (*Config, error) {
	cfg := &Config{
		TelegramToken:    os.Getenv("BARKEEP_TELEGRAM_TOKEN"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		PosterToken:      os.Getenv("POSTER_ACCESS_TOKEN"),
		StateFile:        envOrDefault("BARKEEP_STATE_FILE", "barkeep_state.json"),
		DatabasePath:     envOrDefault("BARKEEP_DB", filepath.Join(".barkeep", "barkeep.db")),
		DashboardAddr:    envOrDefault("BARKEEP_DASHBOARD_ADDR", ":8090"),
		DashboardToken:   os.Getenv("BARKEEP_DASHBOARD_TOKEN"),
		DailySummaryCron: envOrDefault("BARKEEP_SUMMARY_CRON", "0 9 * * *"),
		LogLevel:         envOrDefault("BARKEEP_LOG_LEVEL", "info"),
		subscribedChats:  make(map[string]bool),
		adminChats:       make(map[string]bool),
	}

	if err := cfg.loadState(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// persistedState is the JSON shape of the state file
type persistedState struct {
	SubscribedChats []string `json:"subscribed_chats"`
	AdminChats      []string `json:"admin_chats"`
	AnthropicAPIKey string   `json:"anthropic_api_key,omitempty"`
	PosterToken     string   `json:"poster_access_token,omitempty"`
}

func (c *Config) loadState() error {
	data, err := os.ReadFile(c.StateFile)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading state file: %w", err)
	}

	var state persistedState
	if err := json.Unmarshal(data, &state); err != nil {
		return fmt.Errorf("decoding state file: %w", err)
	}

	for _, id := range state.SubscribedChats {
		c.subscribedChats[id] = true
	}
	for _, id := range state.AdminChats {
		c.adminChats[id] = true
	}
	// State file credentials override the environment
	if state.AnthropicAPIKey != "" {
		c.AnthropicAPIKey = state.AnthropicAPIKey
	}
	if state.PosterToken != "" {
		c.PosterToken = state.PosterToken
	}
	return nil
}

// SaveState persists the mutable bot state to the state file
func (c *Config) SaveState() error {
	c.mu.Lock()
	state := persistedState{
		SubscribedChats: sortedKeys(c.subscribedChats),
		AdminChats:      sortedKeys(c.adminChats),
	}
	c.mu.Unlock()

	// Preserve credentials already stored in the file
	if data, err := os.ReadFile(c.StateFile); err == nil {
		var existing persistedState
		if json.Unmarshal(data, &existing) == nil {
			state.AnthropicAPIKey = existing.AnthropicAPIKey
			state.PosterToken = existing.PosterToken
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if dir := filepath.Dir(c.StateFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating state dir: %w", err)
		}
	}
	if err := os.WriteFile(c.StateFile, data, 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Subscribe adds a chat to the daily summary list
func (c *Config) Subscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribedChats[chatID] = true
}

// Unsubscribe removes a chat from the daily summary list
func (c *Config) Unsubscribe(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscribedChats, chatID)
}

// SubscribedChats returns the chats receiving scheduled summaries
func (c *Config) SubscribedChats() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return sortedKeys(c.subscribedChats)
}

// IsAdmin reports whether a chat has admin rights
func (c *Config) IsAdmin(chatID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adminChats[chatID]
}

// AddAdmin grants admin rights to a chat
func (c *Config) AddAdmin(chatID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.adminChats[chatID] = true
}

// MaskKey masks an API key for display, keeping only the edges visible
func MaskKey(key string) string {
	if len(key) < 12 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
