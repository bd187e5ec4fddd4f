// Package plugin binds the presence commands to Neovim RPC notifications.
package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/neovim/go-client/nvim"
)

// LoginTimeout bounds commands that log in to Discord.
const LoginTimeout = 10 * time.Second

// RPC notification names sent by plugin/nvimcord.lua.
const (
	MethodConnect    = "rpc.connect"
	MethodDisconnect = "rpc.disconnect"
	MethodReconnect  = "rpc.reconnect"
	MethodVersion    = "rpc.version"
	MethodEnable     = "rpc.enable"
	MethodDisable    = "rpc.disable"
	MethodUpdate     = "rpc.update"
)

// Commands is the command set of the presence manager.
type Commands interface {
	Connect(ctx context.Context) error
	DisconnectCommand(ctx context.Context) error
	Reconnect(ctx context.Context) error
	Version(ctx context.Context)
	Enable(ctx context.Context) error
	Disable(ctx context.Context) error
	SetActivity(ctx context.Context)
}

// Handlers maps every notification name to the command it runs. Commands
// that log in get LoginTimeout; errors are logged.
func Handlers(ctx context.Context, cmds Commands) map[string]func() {
	withLogin := func(name string, fn func(context.Context) error) func() {
		return func() {
			ctx, cancel := context.WithTimeout(ctx, LoginTimeout)
			defer cancel()
			report(name, fn(ctx))
		}
	}
	plain := func(name string, fn func(context.Context) error) func() {
		return func() { report(name, fn(ctx)) }
	}

	return map[string]func(){
		MethodConnect:    withLogin(MethodConnect, cmds.Connect),
		MethodReconnect:  withLogin(MethodReconnect, cmds.Reconnect),
		MethodEnable:     withLogin(MethodEnable, cmds.Enable),
		MethodDisconnect: plain(MethodDisconnect, cmds.DisconnectCommand),
		MethodDisable:    plain(MethodDisable, cmds.Disable),
		MethodVersion:    func() { cmds.Version(ctx) },
		MethodUpdate:     func() { cmds.SetActivity(ctx) },
	}
}

// Register installs the handlers on v. Call it before v.Serve so no
// notification is dropped.
func Register(ctx context.Context, v *nvim.Nvim, cmds Commands) error {
	for name, fn := range Handlers(ctx, cmds) {
		if err := v.RegisterHandler(name, fn); err != nil {
			return fmt.Errorf("registering %s: %w", name, err)
		}
	}
	return nil
}

func report(name string, err error) {
	if err != nil {
		slog.Error("command failed", "method", name, "error", err)
	}
}

// ///////////////////////////////////////////////
// Notifier
// ///////////////////////////////////////////////

const notifyLua = `
local msg, level = ...
vim.schedule(function()
  vim.notify('[nvimcord] ' .. msg, vim.log.levels[level])
end)`

// Notifier shows messages with vim.notify.
type Notifier struct {
	v *nvim.Nvim
}

// NewNotifier returns a notifier for v.
func NewNotifier(v *nvim.Nvim) *Notifier {
	return &Notifier{v: v}
}

// Info shows an informational message.
func (n *Notifier) Info(msg string) { n.notify(msg, "INFO") }

// Error shows an error message.
func (n *Notifier) Error(msg string) { n.notify(msg, "ERROR") }

func (n *Notifier) notify(msg, level string) {
	if err := n.v.ExecLua(notifyLua, nil, msg, level); err != nil {
		slog.Debug("notify failed", "message", msg, "error", err)
	}
}
