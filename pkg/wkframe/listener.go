package wkframe

import (
	"errors"
	"fmt"
	"net"
	"strings"
)

// parseAddr addr format: tcp://xx.xxx.xx.xx:xxxx，不带协议时按tcp处理
func parseAddr(addr string) (network, address string, err error) {
	if strings.TrimSpace(addr) == "" {
		return "", "", errors.New("empty address")
	}
	if !strings.Contains(addr, "://") {
		return "tcp", addr, nil
	}
	parts := strings.SplitN(addr, "://", 2)
	if parts[1] == "" {
		return "", "", errors.New("invalid address")
	}
	switch parts[0] {
	case "tcp", "tcp4", "tcp6":
		return parts[0], parts[1], nil
	}
	return "", "", fmt.Errorf("unsupported network: %s", parts[0])
}

func newListener(addr string, backlog int) (net.Listener, error) {
	network, address, err := parseAddr(addr)
	if err != nil {
		return nil, err
	}
	return listen(network, address, backlog)
}
