package enums

import "fmt"

// ConnectionStatus reflects the state of the upstream feed channel.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusConnecting   ConnectionStatus = "connecting"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

var validConnectionStatuses = []ConnectionStatus{
	ConnectionStatusConnected,
	ConnectionStatusConnecting,
	ConnectionStatusDisconnected,
}

// String implements fmt.Stringer.
func (c ConnectionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConnectionStatus.
func (c ConnectionStatus) IsValid() bool {
	for _, candidate := range validConnectionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseConnectionStatus converts raw input into a ConnectionStatus.
func ParseConnectionStatus(value string) (ConnectionStatus, error) {
	for _, candidate := range validConnectionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid connection status %q", value)
}
