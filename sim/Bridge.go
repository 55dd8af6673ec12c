package sim

import (
	"errors"
	"fmt"
	"time"
)

// ErrConnection is returned when the bridge wait gives up after its
// bounded number of attempts
var ErrConnection = errors.New("sim: bridge connection failed")

// Bridged is an Agent that connects to an external autonomy stack over
// a network bridge. In practice only the EGO is bridged.
type Bridged interface {
	Agent

	// ConnectBridge asks the agent to start looking for a bridge at
	// the given address
	ConnectBridge(host string, port int) error

	// BridgeConnected reports whether the bridge handshake has
	// completed
	BridgeConnected() bool
}

// WaitForBridge commands the agent to connect to the bridge at
// host:port and polls until the connection is established, sleeping
// interval between polls. maxAttempts bounds the wait; zero means poll
// forever, which matches the reference scenario's behavior.
func WaitForBridge(agent Bridged, host string, port int,
	interval time.Duration, maxAttempts int) error {
	if err := agent.ConnectBridge(host, port); err != nil {
		return fmt.Errorf("waitforbridge: %v", err)
	}

	for attempt := 0; ; attempt++ {
		if agent.BridgeConnected() {
			return nil
		}
		if maxAttempts > 0 && attempt >= maxAttempts {
			return fmt.Errorf("%w: no connection to %v:%v after %v attempts",
				ErrConnection, host, port, maxAttempts)
		}
		time.Sleep(interval)
	}
}
