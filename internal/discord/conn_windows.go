//go:build windows

package discord

import (
	"context"
	"fmt"
	"net"

	"github.com/Microsoft/go-winio"
)

// dialDiscord returns a connection to the first Discord named pipe slot that
// accepts one.
func dialDiscord(ctx context.Context) (net.Conn, error) {
	for i := 0; i < maxIPCSlots; i++ {
		conn, err := winio.DialPipeContext(ctx, fmt.Sprintf(`\\.\pipe\discord-ipc-%d`, i))
		if err == nil {
			return conn, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, ErrIPCNotAvailable
}
