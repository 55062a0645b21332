//go:build !linux

package wkframe

import (
	"context"
	"net"
)

// listen 非linux平台backlog由系统决定
func listen(network, address string, _ int) (net.Listener, error) {
	var lc net.ListenConfig
	return lc.Listen(context.Background(), network, address)
}
