// Package negotiate performs the SignalR negotiation handshake: POSTing
// to the hub's negotiate endpoint and turning the response into a
// connection descriptor the transport package can dial.
package negotiate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

const (
	webSocketTransport = "WebSockets"

	textTransferFormat        = "Text"
	messagePackTransferFormat = "Binary"
)

// Authentication selects how the negotiate request (and, by
// extension, the websocket upgrade) authenticates to the hub.
type Authentication interface {
	Apply(h http.Header)
}

// NoAuthentication sends no Authorization header. It is the default.
type NoAuthentication struct{}

func (NoAuthentication) Apply(http.Header) {}

// BasicAuthentication sends HTTP Basic auth. Password may be empty.
type BasicAuthentication struct {
	User     string
	Password string
}

func (b BasicAuthentication) Apply(h http.Header) {
	token := base64.StdEncoding.EncodeToString([]byte(b.User + ":" + b.Password))
	h.Set("Authorization", "Basic "+token)
}

// BearerAuthentication sends a bearer token.
type BearerAuthentication struct {
	Token string
}

func (b BearerAuthentication) Apply(h http.Header) {
	h.Set("Authorization", "Bearer "+b.Token)
}

// Config describes the hub endpoint to negotiate with.
type Config struct {
	Secure         bool
	Host           string
	Port           int // 0 means default for the scheme
	Hub            string
	Authentication Authentication
	// UseMessagePack requests the Binary transfer format; the
	// negotiation fails if the hub does not offer it over WebSockets.
	UseMessagePack bool
}

func (c Config) scheme() string {
	if c.Secure {
		return "https"
	}
	return "http"
}

func (c Config) wsScheme() string {
	if c.Secure {
		return "wss"
	}
	return "ws"
}

func (c Config) authority() string {
	if c.Port == 0 {
		return c.Host
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) webURL() string {
	return fmt.Sprintf("%s://%s/%s", c.scheme(), c.authority(), strings.TrimPrefix(c.Hub, "/"))
}

// transport is the raw shape of one entry in AvailableTransports.
type transport struct {
	Transport       string   `json:"transport"`
	TransferFormats []string `json:"transferFormats"`
}

// response is the raw negotiate response body (negotiateVersion=1).
type response struct {
	ConnectionID        string      `json:"connectionId"`
	AvailableTransports []transport `json:"availableTransports"`
	URL                 string      `json:"url"`
	AccessToken         string      `json:"accessToken"`
	Error               string      `json:"error"`
}

// Descriptor is the resolved connection target: a ws(s):// URL ready
// to dial and the authentication to carry over to the upgrade
// request.
type Descriptor struct {
	SocketURL      string
	ConnectionID   string
	Authentication Authentication
	Binary         bool
}

// Negotiate POSTs to the hub's negotiate endpoint and resolves the
// WebSockets transport matching cfg's desired transfer format. It
// fails if the hub offers no WebSockets transport for that format.
func Negotiate(ctx context.Context, cfg Config) (*Descriptor, error) {
	endpoint := cfg.webURL() + "/negotiate?negotiateVersion=1"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("negotiate: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	auth := cfg.Authentication
	if auth == nil {
		auth = NoAuthentication{}
	}
	auth.Apply(req.Header)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("negotiate: request to %s failed: %w", endpoint, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("negotiate: read response body: %w", err)
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("negotiate: decode response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("negotiate: hub rejected negotiation: %s", parsed.Error)
	}

	wantFormat := textTransferFormat
	if cfg.UseMessagePack {
		wantFormat = messagePackTransferFormat
	}
	if !offersFormat(parsed.AvailableTransports, wantFormat) {
		return nil, fmt.Errorf("negotiate: hub offers no WebSockets transport for transfer format %q", wantFormat)
	}

	socketURL, err := socketURLFor(cfg, parsed.ConnectionID)
	if err != nil {
		return nil, fmt.Errorf("negotiate: build socket url: %w", err)
	}

	return &Descriptor{
		SocketURL:      socketURL,
		ConnectionID:   parsed.ConnectionID,
		Authentication: auth,
		Binary:         cfg.UseMessagePack,
	}, nil
}

func offersFormat(transports []transport, format string) bool {
	for _, t := range transports {
		if t.Transport != webSocketTransport {
			continue
		}
		for _, f := range t.TransferFormats {
			if f == format {
				return true
			}
		}
	}
	return false
}

func socketURLFor(cfg Config, connectionID string) (string, error) {
	u, err := url.Parse(cfg.webURL())
	if err != nil {
		return "", err
	}
	u.Scheme = cfg.wsScheme()
	q := u.Query()
	q.Set("id", connectionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
