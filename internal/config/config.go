package config

import (
	"fmt"
	"os"
)

// Default configuration values (production)
const (
	DefaultDomain   = "meet.lets-talk.app"
	DefaultSTUN     = "stun:stun.l.google.com:19302"
	DefaultTURN     = ""
	DefaultTURNUser = ""
	DefaultTURNPass = ""
)

// Config holds application configuration
type Config struct {
	// Domain is the signaling server domain (host or host:port)
	Domain string

	// Insecure selects ws:// instead of wss:// (local hubs)
	Insecure bool

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// DisplayName shown to the host in join requests
	DisplayName string

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain      string
	Insecure    bool
	DisplayName string
	STUNServer  string
	TURNServer  string
	TURNUser    string
	TURNPass    string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	domain := opts.Domain
	if domain == "" {
		domain = os.Getenv("LETSTALK_DOMAIN")
	}
	if domain == "" {
		domain = DefaultDomain
	}

	name := opts.DisplayName
	if name == "" {
		name = os.Getenv("LETSTALK_NAME")
	}

	stunServer := opts.STUNServer
	if stunServer == "" {
		stunServer = os.Getenv("STUN_SERVER")
	}
	if stunServer == "" {
		stunServer = DefaultSTUN
	}

	turnServer := opts.TURNServer
	if turnServer == "" {
		turnServer = os.Getenv("TURN_SERVER")
	}
	if turnServer == "" {
		turnServer = DefaultTURN
	}

	turnUser := opts.TURNUser
	if turnUser == "" {
		turnUser = os.Getenv("TURN_USERNAME")
	}
	if turnUser == "" {
		turnUser = DefaultTURNUser
	}

	turnPass := opts.TURNPass
	if turnPass == "" {
		turnPass = os.Getenv("TURN_PASSWORD")
	}
	if turnPass == "" {
		turnPass = DefaultTURNPass
	}

	insecure := opts.Insecure
	if !insecure && os.Getenv("LETSTALK_INSECURE") == "1" {
		insecure = true
	}

	scheme := "wss"
	if insecure {
		scheme = "ws"
	}
	wsURL := fmt.Sprintf("%s://%s/ws", scheme, domain)

	return &Config{
		Domain:       domain,
		Insecure:     insecure,
		WebSocketURL: wsURL,
		DisplayName:  name,
		STUNServer:   stunServer,
		TURNServer:   turnServer,
		TURNUser:     turnUser,
		TURNPass:     turnPass,
	}, nil
}

// GetRoomLink returns the webapp URL for a room code
func (c *Config) GetRoomLink(roomID string) string {
	scheme := "https"
	if c.Insecure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/r/%s", scheme, c.Domain, roomID)
}

// GetSTUNServers returns STUN server URLs as strings
func (c *Config) GetSTUNServers() []string {
	return []string{c.STUNServer}
}

// GetTURNServers returns TURN server URLs if configured. TURNServer is a bare
// hostname; the schemes, ports and transports are filled in here.
func (c *Config) GetTURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", c.TURNServer),
		fmt.Sprintf("turn:%s:3478?transport=tcp", c.TURNServer),
		fmt.Sprintf("turns:%s:5349?transport=tcp", c.TURNServer),
	}
}

// GetTURNCredentials returns TURN username and password
func (c *Config) GetTURNCredentials() (string, string) {
	return c.TURNUser, c.TURNPass
}
