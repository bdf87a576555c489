package utils

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"
	"time"
)

// FirstServePort is where the media server starts looking for a free port.
const FirstServePort = 3500

// ListenAddrFor returns the ip:port the media server should listen on so
// that the receiver at target (host:port) can reach it. The IP is the
// local address of the interface that routes to target.
func ListenAddrFor(target string) (string, error) {
	if _, _, err := net.SplitHostPort(target); err != nil {
		return "", fmt.Errorf("ListenAddrFor parse error: %w", err)
	}

	conn, err := net.Dial("udp", target)
	if err != nil {
		return "", fmt.Errorf("ListenAddrFor UDP call error: %w", err)
	}
	defer conn.Close()

	ip := conn.LocalAddr().(*net.UDPAddr).IP.String()

	port, err := pickPort(ip, FirstServePort)
	if err != nil {
		return "", fmt.Errorf("ListenAddrFor port error: %w", err)
	}

	return net.JoinHostPort(ip, port), nil
}

func pickPort(ip string, port int) (string, error) {
	const maxAttempts = 1000

	for range maxAttempts {
		l, err := net.Listen("tcp", net.JoinHostPort(ip, strconv.Itoa(port)))
		if err == nil {
			l.Close()
			return strconv.Itoa(port), nil
		}
		if !errors.Is(err, syscall.EADDRINUSE) {
			return "", fmt.Errorf("port pick error: %w", err)
		}
		port++
	}

	return "", errors.New("port pick error: exceeded maximum attempts")
}

// HostPortIsAlive reports whether something accepts TCP connections on h.
func HostPortIsAlive(h string) bool {
	conn, err := net.DialTimeout("tcp", h, 2*time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
