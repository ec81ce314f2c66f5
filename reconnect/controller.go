package reconnect

import (
	"errors"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrLocallyDisconnected is returned when a reconnection attempt is
// abandoned because the connection was explicitly closed by the local
// side while the attempt was in flight or pending.
var ErrLocallyDisconnected = errors.New("reconnect: client was locally disconnected")

// ErrAttemptsExhausted is returned by RunWithPolicy when the policy
// gives up before a reconnection attempt succeeds.
var ErrAttemptsExhausted = errors.New("reconnect: reconnection attempts exhausted")

// Connector performs a single reconnection attempt. It returns nil on
// success. Returning ErrLocallyDisconnected aborts any retry loop
// immediately, matching the rule that a local close always wins over a
// reconnect in flight.
type Connector func() error

// Mode distinguishes manual reconnection (driven by a user's
// ReconnectionHandler) from automatic reconnection (driven
// internally after a transport loss with no DisconnectionHandler
// configured). The two differ in whether RunWithPolicy sleeps before
// its first attempt.
type Mode int

const (
	// ManualMode skips the delay before the first attempt: a caller
	// invoking ReconnectWithPolicy has already decided it's time to
	// retry, so the first attempt fires immediately.
	ManualMode Mode = iota
	// AutomaticMode sleeps one policy interval before every attempt,
	// including the first, matching the grounded original's
	// always-wait automatic-reconnection loop.
	AutomaticMode
)

// Controller drives reconnection attempts against a Connector, using a
// Policy to space out retries under RunWithPolicy. It holds no
// connection state itself; State ownership stays with the transport.
type Controller struct {
	connect Connector
	policy  Policy
	mode    Mode
}

// NewController builds a manual-mode Controller: RunWithPolicy fires
// its first attempt immediately and only sleeps between subsequent
// retries.
func NewController(connect Connector, policy Policy) *Controller {
	return newController(connect, policy, ManualMode)
}

// NewAutomaticController builds an automatic-mode Controller:
// RunWithPolicy sleeps one policy interval before every attempt,
// including the first.
func NewAutomaticController(connect Connector, policy Policy) *Controller {
	return newController(connect, policy, AutomaticMode)
}

func newController(connect Connector, policy Policy, mode Mode) *Controller {
	if policy == nil {
		policy = None{}
	}
	return &Controller{connect: connect, policy: policy, mode: mode}
}

// RunOnce attempts a single reconnection and returns its result
// unmodified.
func (c *Controller) RunOnce() error {
	return c.connect()
}

// RunWithPolicy retries RunOnce using the controller's Policy until it
// succeeds, the policy gives up (ErrAttemptsExhausted), or the
// connector reports a local close (ErrLocallyDisconnected), which is
// never retried past.
func (c *Controller) RunWithPolicy() error {
	retryCount := 0
	start := time.Now()

	for {
		delay, ok := c.policy.NextRetryDelay(retryCount, time.Since(start))
		if !ok {
			return ErrAttemptsExhausted
		}

		if retryCount > 0 || c.mode == AutomaticMode {
			time.Sleep(delay)
		}

		err := c.connect()
		if err == nil {
			return nil
		}
		if errors.Is(err, ErrLocallyDisconnected) {
			return err
		}

		log.Debug().Err(err).Int("retryCount", retryCount).Msg("reconnection attempt failed")
		retryCount++
	}
}
