/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type GeneralConfig struct {
	Theme           string `yaml:"theme"` // "light" | "dark"
	DefaultTemplate string `yaml:"default_template"`
	UserID          string `yaml:"user_id"` // identity recorded as uploader
}

// CanvasConfig sizes the floor-plan canvas and its export.
type CanvasConfig struct {
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	GridSpacing   int     `yaml:"grid_spacing"`
	Supersample   int     `yaml:"supersample"`
	DragThreshold float64 `yaml:"drag_threshold"`
}

// DraftsConfig selects where local drafts live.
type DraftsConfig struct {
	Driver string `yaml:"driver"` // "file" | "sqlite"
	Dir    string `yaml:"dir"`
}

type BackendConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

// ServerConfig configures the floor-plan backend (serve command).
type ServerConfig struct {
	Addr       string `yaml:"addr"`
	DBDriver   string `yaml:"db_driver"` // "sqlite" | "postgres"
	DSN        string `yaml:"dsn"`
	ObjectDir  string `yaml:"object_dir"`
	PublicURL  string `yaml:"public_url"`
	AuthSecret string `yaml:"auth_secret"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Drafts        DraftsConfig  `yaml:"drafts"`
	Backend       BackendConfig `yaml:"backend"`
	Server        ServerConfig  `yaml:"server"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "light", DefaultTemplate: "blank"},
		Canvas:        CanvasConfig{Width: 800, Height: 600, GridSpacing: 40, Supersample: 2, DragThreshold: 5},
		Drafts:        DraftsConfig{Driver: "file", Dir: ""},
		Backend:       BackendConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Server:        ServerConfig{Addr: ":8080", DBDriver: "sqlite", DSN: "", ObjectDir: "", PublicURL: "http://localhost:8080"},
		Logging:       LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvTheme            = "FP_THEME"
	EnvUserID           = "FP_USER_ID"
	EnvCanvasWidth      = "FP_CANVAS_WIDTH"
	EnvCanvasHeight     = "FP_CANVAS_HEIGHT"
	EnvDraftsDriver     = "FP_DRAFTS_DRIVER"
	EnvDraftsDir        = "FP_DRAFTS_DIR"
	EnvBackendURL       = "FP_BACKEND_URL"
	EnvBackendTimeoutMs = "FP_BACKEND_TIMEOUT_MS"
	EnvBackendTLSInsec  = "FP_TLS_INSECURE"
	EnvServerAddr       = "FP_SERVER_ADDR"
	EnvServerDBDriver   = "FP_DB_DRIVER"
	EnvServerDSN        = "FP_DB_DSN"
	EnvServerObjectDir  = "FP_OBJECT_DIR"
	EnvServerPublicURL  = "FP_PUBLIC_URL"
	EnvAuthSecret       = "FP_AUTH_SECRET"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "FP_LOG_LEVEL"
	EnvLogFormat = "FP_LOG_FORMAT"
	EnvLogSource = "FP_LOG_SOURCE"
	EnvLogFile   = "FP_LOG_FILE"
)

// Service/keys for OS keyring.
const (
	keyringService = "FloorPlanner"
	keyringToken   = "backend_token"
)

// tokenStore abstracts keyring, so we can stub in tests.
var tokenStore TokenStore = &osKeyring{}

type TokenStore interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// osKeyring implements TokenStore using the OS keyring via github.com/zalando/go-keyring.
// The functions are swapped for an in-memory map in builds tagged nokeyring.
type osKeyring struct{}

func (k *osKeyring) Get(service, key string) (string, error) { return keyringGet(service, key) }
func (k *osKeyring) Set(service, key, value string) error {
	return keyringSet(service, key, value)
}
func (k *osKeyring) Delete(service, key string) error { return keyringDelete(service, key) }

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "FloorPlanner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "FloorPlanner")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "floorplanner")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads user config file (if present), applies defaults, and merges environment overrides.
// It also loads the backend token from keyring (not kept inside the struct; returned separately).
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	if data, err := os.ReadFile(path); err == nil {
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err == nil {
			mergeInto(&cfg, &fileCfg)
		}
	}
	applyEnvOverrides(&cfg)
	resolveDirs(&cfg, filepath.Dir(path))
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// Save writes the user config YAML and persists the token into OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

// ClearToken removes the backend token from the keyring.
func ClearToken() error { return tokenStore.Delete(keyringService, keyringToken) }

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if v := strings.ToLower(strings.TrimSpace(src.General.Theme)); v != "" {
		dst.General.Theme = v
	}
	if v := strings.TrimSpace(src.General.DefaultTemplate); v != "" {
		dst.General.DefaultTemplate = v
	}
	if v := strings.TrimSpace(src.General.UserID); v != "" {
		dst.General.UserID = v
	}
	// canvas: zero means "keep default"
	if src.Canvas.Width > 0 {
		dst.Canvas.Width = src.Canvas.Width
	}
	if src.Canvas.Height > 0 {
		dst.Canvas.Height = src.Canvas.Height
	}
	if src.Canvas.GridSpacing > 0 {
		dst.Canvas.GridSpacing = src.Canvas.GridSpacing
	}
	if src.Canvas.Supersample > 0 {
		dst.Canvas.Supersample = src.Canvas.Supersample
	}
	if src.Canvas.DragThreshold > 0 {
		dst.Canvas.DragThreshold = src.Canvas.DragThreshold
	}
	if v := strings.ToLower(strings.TrimSpace(src.Drafts.Driver)); v != "" {
		dst.Drafts.Driver = v
	}
	if v := strings.TrimSpace(src.Drafts.Dir); v != "" {
		dst.Drafts.Dir = v
	}
	if src.Backend.BaseURL != "" {
		dst.Backend.BaseURL = src.Backend.BaseURL
	}
	if src.Backend.TimeoutMs != 0 {
		dst.Backend.TimeoutMs = src.Backend.TimeoutMs
	}
	dst.Backend.TLSInsecure = src.Backend.TLSInsecure
	if v := strings.TrimSpace(src.Server.Addr); v != "" {
		dst.Server.Addr = v
	}
	if v := strings.ToLower(strings.TrimSpace(src.Server.DBDriver)); v != "" {
		dst.Server.DBDriver = v
	}
	if v := strings.TrimSpace(src.Server.DSN); v != "" {
		dst.Server.DSN = v
	}
	if v := strings.TrimSpace(src.Server.ObjectDir); v != "" {
		dst.Server.ObjectDir = v
	}
	if v := strings.TrimSpace(src.Server.PublicURL); v != "" {
		dst.Server.PublicURL = v
	}
	if v := strings.TrimSpace(src.Server.AuthSecret); v != "" {
		dst.Server.AuthSecret = v
	}
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(strings.TrimSpace(v))
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvUserID)); v != "" {
		cfg.General.UserID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasWidth)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Width = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvCanvasHeight)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Canvas.Height = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDraftsDriver)); v != "" {
		cfg.Drafts.Driver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDraftsDir)); v != "" {
		cfg.Drafts.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendURL)); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Backend.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTLSInsec)); v != "" {
		cfg.Backend.TLSInsecure = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerAddr)); v != "" {
		cfg.Server.Addr = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerDBDriver)); v != "" {
		cfg.Server.DBDriver = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerDSN)); v != "" {
		cfg.Server.DSN = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerObjectDir)); v != "" {
		cfg.Server.ObjectDir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvServerPublicURL)); v != "" {
		cfg.Server.PublicURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvAuthSecret)); v != "" {
		cfg.Server.AuthSecret = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// resolveDirs fills empty storage directories below the config dir.
func resolveDirs(cfg *AppConfig, base string) {
	if cfg.Drafts.Dir == "" {
		cfg.Drafts.Dir = filepath.Join(base, "drafts")
	}
	if cfg.Server.ObjectDir == "" {
		cfg.Server.ObjectDir = filepath.Join(base, "objects")
	}
	if cfg.Server.DSN == "" && cfg.Server.DBDriver == "sqlite" {
		cfg.Server.DSN = filepath.Join(base, "server.sqlite")
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	envs := map[string]string{
		"general.theme":        EnvTheme,
		"general.user_id":      EnvUserID,
		"canvas.width":         EnvCanvasWidth,
		"canvas.height":        EnvCanvasHeight,
		"drafts.driver":        EnvDraftsDriver,
		"drafts.dir":           EnvDraftsDir,
		"backend.base_url":     EnvBackendURL,
		"backend.timeout_ms":   EnvBackendTimeoutMs,
		"backend.tls_insecure": EnvBackendTLSInsec,
		"server.addr":          EnvServerAddr,
		"server.db_driver":     EnvServerDBDriver,
		"server.dsn":           EnvServerDSN,
		"server.object_dir":    EnvServerObjectDir,
		"server.public_url":    EnvServerPublicURL,
		"server.auth_secret":   EnvAuthSecret,
		"logging.level":        EnvLogLevel,
		"logging.format":       EnvLogFormat,
		"logging.source":       EnvLogSource,
		"logging.file":         EnvLogFile,
	}
	name, ok := envs[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the backend timeout, falling back to the default when unset.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}

// Dark reports whether the configured theme is dark mode.
func (g GeneralConfig) Dark() bool { return g.Theme == "dark" }
