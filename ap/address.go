package ap

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// DefaultHost is assumed when the operator enters a bare port.
const DefaultHost = "archipelago.gg"

// NormalizeServerAddress validates operator input and returns a canonical
// host:port. Accepted forms: "host:port", a bare port (default host
// assumed), and bracketed IPv6 "[::1]:port". The port must be 1–65535.
func NormalizeServerAddress(input string) (string, error) {
	candidate := strings.TrimSpace(input)
	if candidate == "" {
		return "", errors.New("server address is required")
	}

	if !strings.Contains(candidate, ":") {
		candidate = DefaultHost + ":" + candidate
	}
	if strings.HasSuffix(candidate, ":") {
		return "", errors.New("please include a port number (e.g. archipelago.gg:38281)")
	}

	var host, portText string
	if strings.HasPrefix(candidate, "[") {
		end := strings.Index(candidate, "]")
		if end <= 0 || end+2 > len(candidate) || candidate[end+1] != ':' {
			return "", errors.New("invalid server format, use host:port (e.g. archipelago.gg:38281)")
		}
		host = candidate[:end+1]
		portText = candidate[end+2:]
	} else {
		lastColon := strings.LastIndex(candidate, ":")
		if lastColon <= 0 || lastColon == len(candidate)-1 {
			return "", errors.New("invalid server format, use host:port (e.g. archipelago.gg:38281)")
		}
		host = candidate[:lastColon]
		portText = candidate[lastColon+1:]
	}

	if strings.TrimSpace(host) == "" {
		return "", errors.New("server host is required (e.g. archipelago.gg:38281)")
	}

	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65535 {
		return "", errors.New("invalid port, enter a number between 1 and 65535")
	}

	return fmt.Sprintf("%s:%d", host, port), nil
}
