package client

import (
	"github.com/go-signalr/signalr/negotiate"
	"github.com/go-signalr/signalr/reconnect"
)

// Config holds the resolved connection properties for Connect. Build
// one with Option values passed to ConnectWith; with no options, the
// client connects securely on the default port with no
// authentication, JSON protocol, and no automatic reconnection.
type Config struct {
	secure         bool
	port           int
	authentication negotiate.Authentication
	messagePack    bool

	disconnectionHandler DisconnectionHandler
	reconnectionPolicy   reconnect.Policy
}

func defaultConfig() Config {
	return Config{secure: true}
}

// Option configures a Config. Pass any number to ConnectWith.
type Option func(*Config)

// WithPort pins the connection to a specific port instead of the
// scheme default.
func WithPort(port int) Option {
	return func(c *Config) { c.port = port }
}

// WithSecure forces https/wss. This is the default.
func WithSecure() Option {
	return func(c *Config) { c.secure = true }
}

// WithInsecure uses http/ws instead of https/wss.
func WithInsecure() Option {
	return func(c *Config) { c.secure = false }
}

// WithBasicAuthentication sends HTTP Basic credentials with the
// negotiate request and the subsequent WebSocket upgrade.
func WithBasicAuthentication(user, password string) Option {
	return func(c *Config) { c.authentication = negotiate.BasicAuthentication{User: user, Password: password} }
}

// WithBearerAuthentication sends a bearer token with the negotiate
// request and the subsequent WebSocket upgrade.
func WithBearerAuthentication(token string) Option {
	return func(c *Config) { c.authentication = negotiate.BearerAuthentication{Token: token} }
}

// WithMessagePackProtocol requests the length-prefixed MessagePack
// wire protocol instead of the default JSON text protocol. The
// handshake itself is always JSON; only the negotiated record
// protocol changes.
func WithMessagePackProtocol() Option {
	return func(c *Config) { c.messagePack = true }
}

// DisconnectionHandler is notified, exactly once per dropped
// connection, when the transport is lost. Providing one disables
// automatic reconnection: the handler owns the decision of whether
// and how to reconnect, via the ReconnectionHandler it receives.
type DisconnectionHandler interface {
	OnDisconnected(handler *ReconnectionHandler)
}

// WithDisconnectionHandler installs h and switches the client to
// manual reconnection mode.
func WithDisconnectionHandler(h DisconnectionHandler) Option {
	return func(c *Config) { c.disconnectionHandler = h }
}

// WithReconnectionPolicy sets the backoff policy used for automatic
// reconnection when no DisconnectionHandler is configured. Defaults
// to reconnect.None{} (never reconnect).
func WithReconnectionPolicy(p reconnect.Policy) Option {
	return func(c *Config) { c.reconnectionPolicy = p }
}
