package shared

import (
	_ "embed"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/desertthunder/chatdj/internal/models"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Auth        AuthConfig        `toml:"auth"`
	Server      ServerConfig      `toml:"server"`
	Playback    PlaybackConfig    `toml:"playback"`
	Commands    CommandsConfig    `toml:"commands"`
	Chat        ChatConfig        `toml:"chat"`
	Storage     StorageConfig     `toml:"storage"`
	Locale      LocaleConfig      `toml:"locale"`
	Telemetry   TelemetryConfig   `toml:"telemetry"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
	Twitch  TwitchConfig  `toml:"twitch"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// TwitchConfig contains the chat bot identity and the optional Helix application credentials.
type TwitchConfig struct {
	BotUsername  string `toml:"bot_username"`
	OAuthToken   string `toml:"oauth_token"`
	Channel      string `toml:"channel"`
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// AuthConfig controls the local OAuth callback listener.
type AuthConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// ServerConfig contains the now playing HTTP server settings.
type ServerConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	HTMLPath string `toml:"html_path"`
}

// PlaybackConfig contains poller and queue policy settings.
type PlaybackConfig struct {
	PollIntervalSeconds int  `toml:"poll_interval_seconds"`
	BlockExplicit       bool `toml:"block_explicit"`
}

// CommandsConfig holds the chat prefix and the permission spec for each command.
type CommandsConfig struct {
	Prefix      string             `toml:"prefix"`
	Queue       models.CommandSpec `toml:"queue"`
	Blacklist   models.CommandSpec `toml:"blacklist"`
	Unblacklist models.CommandSpec `toml:"unblacklist"`
	Ban         models.CommandSpec `toml:"ban"`
	Unban       models.CommandSpec `toml:"unban"`
}

// ChatConfig controls outgoing chat message throttling.
type ChatConfig struct {
	MessagesPer30s int `toml:"messages_per_30s"`
	Burst          int `toml:"burst"`
}

// StorageConfig locates the JSON snapshot files.
type StorageConfig struct {
	Dir string `toml:"dir"`
}

// LocaleConfig selects the chat message catalog.
type LocaleConfig struct {
	Language    string `toml:"language"`
	CatalogPath string `toml:"catalog_path"`
}

// TelemetryConfig configures tracing export.
type TelemetryConfig struct {
	OTLPEndpoint string `toml:"otlp_endpoint"`
	ServiceName  string `toml:"service_name"`
}

// Snapshot file names
const (
	TrackBlacklistFile  = "blacklist_tracks.json"
	ArtistBlacklistFile = "blacklist_artists.json"
	UserBlacklistFile   = "blacklist_users.json"
	HistoryFile         = "playback_history.json"
	NowPlayingJSONFile  = "nowplaying.json"
	NowPlayingTextFile  = "nowplaying.txt"
)

// Path joins name onto the storage directory.
func (s StorageConfig) Path(name string) string {
	dir := s.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name)
}

// Addr returns the callback listener address.
func (a AuthConfig) Addr() string {
	return net.JoinHostPort(a.Host, strconv.Itoa(a.Port))
}

// Timeout returns how long an authorization attempt may wait for its callback.
func (a AuthConfig) Timeout() time.Duration {
	if a.TimeoutSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// Addr returns the now playing listener address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PollInterval returns the poller tick interval, five seconds when unset.
func (p PlaybackConfig) PollInterval() time.Duration {
	if p.PollIntervalSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// Map returns the Spotify credentials keyed by their config names.
func (s SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     s.ClientID,
		"client_secret": s.ClientSecret,
		"redirect_uri":  s.RedirectURI,
	}
}

// ValidateSpotify checks that Spotify application credentials are present.
func (c *Config) ValidateSpotify() error {
	s := c.Credentials.Spotify
	if isPlaceholder(s.ClientID) || isPlaceholder(s.ClientSecret) {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set", ErrMissingCredentials)
	}
	if s.RedirectURI == "" {
		return fmt.Errorf("%w: Spotify redirect_uri must be set", ErrInvalidConfig)
	}
	return nil
}

// ValidateChat checks that the bot can log in and knows which channel to join.
func (c *Config) ValidateChat() error {
	t := c.Credentials.Twitch
	var missing []string
	if isPlaceholder(t.BotUsername) {
		missing = append(missing, "bot_username")
	}
	if isPlaceholder(t.OAuthToken) {
		missing = append(missing, "oauth_token")
	}
	if isPlaceholder(t.Channel) {
		missing = append(missing, "channel")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: Twitch %s must be set", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	if c.Commands.Prefix == "" {
		return fmt.Errorf("%w: commands.prefix must not be empty", ErrInvalidConfig)
	}
	return nil
}

// HasHelix reports whether Helix application credentials are configured.
func (c *Config) HasHelix() bool {
	t := c.Credentials.Twitch
	return !isPlaceholder(t.ClientID) && !isPlaceholder(t.ClientSecret)
}

func isPlaceholder(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || strings.HasPrefix(v, "your_")
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys absent from the file keep the values of the embedded example config.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, ErrInvalidArgument)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig encodes config as TOML and writes it to path.
func SaveConfig(path string, config *Config) error {
	var b strings.Builder
	if err := toml.NewEncoder(&b).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return WriteFileAtomic(path, []byte(b.String()))
}

// LoadEnv loads a .env file into the process environment when it exists.
func LoadEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides secrets and endpoints with CHATDJ_* environment variables.
//
// lookup defaults to [os.LookupEnv].
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	for key, dst := range map[string]*string{
		"CHATDJ_SPOTIFY_CLIENT_ID":     &c.Credentials.Spotify.ClientID,
		"CHATDJ_SPOTIFY_CLIENT_SECRET": &c.Credentials.Spotify.ClientSecret,
		"CHATDJ_SPOTIFY_REDIRECT_URI":  &c.Credentials.Spotify.RedirectURI,
		"CHATDJ_TWITCH_BOT_USERNAME":   &c.Credentials.Twitch.BotUsername,
		"CHATDJ_TWITCH_OAUTH_TOKEN":    &c.Credentials.Twitch.OAuthToken,
		"CHATDJ_TWITCH_CHANNEL":        &c.Credentials.Twitch.Channel,
		"CHATDJ_TWITCH_CLIENT_ID":      &c.Credentials.Twitch.ClientID,
		"CHATDJ_TWITCH_CLIENT_SECRET":  &c.Credentials.Twitch.ClientSecret,
		"CHATDJ_STORAGE_DIR":           &c.Storage.Dir,
		"OTEL_EXPORTER_OTLP_ENDPOINT":  &c.Telemetry.OTLPEndpoint,
	} {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
}
