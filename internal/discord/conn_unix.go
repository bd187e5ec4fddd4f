//go:build !windows

package discord

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
)

// socketDirs lists the directories Discord may create its socket in, in
// search order.
func socketDirs() []string {
	var dirs []string
	for _, env := range []string{"XDG_RUNTIME_DIR", "TMPDIR", "TMP", "TEMP"} {
		if d := os.Getenv(env); d != "" {
			dirs = append(dirs, d)
		}
	}
	dirs = append(dirs, "/tmp")

	// Snap and Flatpak builds use app-scoped subdirectories of the runtime dir.
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		runtime = "/run/user/" + strconv.Itoa(os.Getuid())
	}
	for _, sub := range []string{
		"snap.discord", "snap.discord-canary", "snap.discord-ptb",
		"app/com.discordapp.Discord", "app/com.discordapp.DiscordCanary", "app/com.discordapp.DiscordPTB",
		"app/dev.vencord.Vesktop/xdg-run",
	} {
		dirs = append(dirs, filepath.Join(runtime, sub))
	}
	return dirs
}

// socketPaths expands socketDirs into every candidate socket path.
func socketPaths() []string {
	var paths []string
	for _, dir := range socketDirs() {
		for i := 0; i < maxIPCSlots; i++ {
			paths = append(paths, filepath.Join(dir, fmt.Sprintf("discord-ipc-%d", i)))
		}
	}
	return append(paths, wslSocketPaths()...)
}

// dialDiscord returns a connection to the first socket that accepts one.
func dialDiscord(ctx context.Context) (net.Conn, error) {
	var d net.Dialer
	for _, path := range socketPaths() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := os.Stat(path); err != nil {
			continue
		}
		conn, err := d.DialContext(ctx, "unix", path)
		if err == nil {
			return conn, nil
		}
	}
	if isWSL() {
		return nil, fmt.Errorf("%w: running under WSL, relay the Windows pipe with socat and npiperelay.exe", ErrIPCNotAvailable)
	}
	return nil, ErrIPCNotAvailable
}
