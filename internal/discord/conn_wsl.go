// Under WSL2 Discord runs on the Windows host and its named pipe is not
// visible as a Unix socket. A relay has to bridge it, typically:
//
//	socat UNIX-LISTEN:/tmp/discord-ipc-0,fork EXEC:"npiperelay.exe -ep -s //./pipe/discord-ipc-0"

//go:build linux

package discord

import (
	"bytes"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// isWSL reports whether the kernel release names Microsoft, which both WSL1
// and WSL2 kernels do.
func isWSL() bool {
	var uts unix.Utsname
	if err := unix.Uname(&uts); err != nil {
		return false
	}
	return isWSLRelease(uts.Release[:])
}

func isWSLRelease(release []byte) bool {
	if i := bytes.IndexByte(release, 0); i >= 0 {
		release = release[:i]
	}
	return bytes.Contains(bytes.ToLower(release), []byte("microsoft"))
}

// wslSocketPaths adds the home-directory location some relay scripts use.
func wslSocketPaths() []string {
	if !isWSL() {
		return nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return nil
	}
	return []string{filepath.Join(home, ".discord-ipc-0")}
}
