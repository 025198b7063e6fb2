package detector

import (
	"net"
	"strings"

	"github.com/mitchellh/go-ps"
)

// obsExecutables holds the OBS Studio executable names on supported platforms.
//
//nolint:gochecknoglobals // Read-only lookup table.
var obsExecutables = map[string]struct{}{
	"obs":        {},
	"obs64.exe":  {},
	"obs32.exe":  {},
	"obs.exe":    {},
	"obs-studio": {},
}

// obsRunning reports whether one of the listed processes is OBS Studio.
func obsRunning(processes func() ([]ps.Process, error)) (bool, error) {
	processList, err := processes()
	if err != nil {
		return false, err
	}

	for _, process := range processList {
		if _, found := obsExecutables[strings.ToLower(process.Executable())]; found {
			return true, nil
		}
	}

	return false, nil
}

// isLocalAddress reports whether address (host:port) points at this machine.
func isLocalAddress(address string) bool {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return false
	}

	if strings.EqualFold(host, "localhost") {
		return true
	}

	ip := net.ParseIP(host)

	return ip != nil && (ip.IsLoopback() || ip.IsUnspecified())
}
