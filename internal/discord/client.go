// Package discord is a client for the local Discord IPC socket.
//
// A [Client] logs in with an application ID, answers keepalive pings in the
// background and sends SET_ACTIVITY commands. Socket discovery is platform
// specific and lives in conn_unix.go and conn_windows.go.
package discord

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ///////////////////////////////////////////////
// Errors
// ///////////////////////////////////////////////

// closeClearTimeout bounds the best-effort clear sent by Close.
const closeClearTimeout = time.Second

// commandWriteTimeout bounds every other frame written to the socket.
var commandWriteTimeout = 2 * time.Second

// ErrNotConnected is returned when an operation requires a logged-in client.
var ErrNotConnected = errors.New("not connected")

// ErrAlreadyConnected is returned by Login on a client that is logged in.
var ErrAlreadyConnected = errors.New("already connected")

// Error is an ERROR dispatch or CLOSE frame sent by Discord.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("discord error %d: %s", e.Code, e.Message)
}

// ///////////////////////////////////////////////
// Messages
// ///////////////////////////////////////////////

type handshakeRequest struct {
	V        int    `json:"v"`
	ClientID string `json:"client_id"`
}

type command struct {
	Cmd   string `json:"cmd"`
	Args  any    `json:"args"`
	Nonce string `json:"nonce"`
}

type activityArgs struct {
	PID      int       `json:"pid"`
	Activity *Activity `json:"activity"`
}

// message is an incoming FRAME payload.
type message struct {
	Cmd   string          `json:"cmd"`
	Evt   string          `json:"evt"`
	Nonce string          `json:"nonce"`
	Data  json.RawMessage `json:"data"`
}

type readyData struct {
	V    int   `json:"v"`
	User *User `json:"user"`
}

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// Client is a single Discord IPC connection. The zero value is not usable;
// construct one with [NewClient]. A Client can log in again after Close.
type Client struct {
	// dial opens the IPC socket; replaced in tests.
	dial func(ctx context.Context) (net.Conn, error)

	// mu guards the fields below and serializes socket writes.
	mu      sync.Mutex
	conn    net.Conn
	user    *User
	onReady func()
	// readerDone is closed when the read loop of conn exits.
	readerDone chan struct{}
}

// NewClient returns a disconnected client that dials the local Discord
// desktop app.
func NewClient() *Client {
	return &Client{dial: dialDiscord}
}

// OnReady registers fn to run once after the next successful login. It runs
// on the goroutine that called Login, after Login has released its locks.
func (c *Client) OnReady(fn func()) {
	c.mu.Lock()
	c.onReady = fn
	c.mu.Unlock()
}

// Login dials Discord and performs the handshake for clientID. It returns
// once Discord answers with READY (success) or ERROR. Cancelling ctx aborts
// the dial and the handshake.
func (c *Client) Login(ctx context.Context, clientID string) error {
	c.mu.Lock()
	busy := c.conn != nil
	c.mu.Unlock()
	if busy {
		return ErrAlreadyConnected
	}

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	user, err := handshake(conn, clientID)
	if !stop() {
		conn.Close()
		return fmt.Errorf("login: %w", ctx.Err())
	}
	if err != nil {
		conn.Close()
		return err
	}

	done := make(chan struct{})
	c.mu.Lock()
	c.conn = conn
	c.user = user
	c.readerDone = done
	ready := c.onReady
	c.onReady = nil
	c.mu.Unlock()

	slog.Info("discord login complete", "user", userName(user))
	go c.readLoop(conn, done)

	if ready != nil {
		ready()
	}
	return nil
}

// SetActivity replaces the presence card.
func (c *Client) SetActivity(a *Activity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendCommand("SET_ACTIVITY", activityArgs{PID: os.Getpid(), Activity: a}, commandWriteTimeout)
}

// ClearActivity removes the presence card.
func (c *Client) ClearActivity() error {
	return c.SetActivity(nil)
}

// Close clears the presence card (best effort), closes the socket and waits
// for the read loop to exit. Closing a disconnected client is a no-op.
func (c *Client) Close() error {
	c.mu.Lock()
	conn, done := c.conn, c.readerDone
	if conn == nil {
		c.mu.Unlock()
		return nil
	}
	_ = c.sendCommand("SET_ACTIVITY", activityArgs{PID: os.Getpid()}, closeClearTimeout)
	c.conn, c.user, c.readerDone = nil, nil, nil
	c.mu.Unlock()

	err := conn.Close()
	if done != nil {
		<-done
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("closing discord socket: %w", err)
	}
	return nil
}

// Connected reports whether the client is logged in.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn != nil
}

// User returns the account from the READY dispatch, or nil when
// disconnected.
func (c *Client) User() *User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

// ///////////////////////////////////////////////
// Wire
// ///////////////////////////////////////////////

// handshake sends the version 1 handshake and waits for the first dispatch.
func handshake(conn net.Conn, clientID string) (*User, error) {
	payload, err := json.Marshal(handshakeRequest{V: 1, ClientID: clientID})
	if err != nil {
		return nil, fmt.Errorf("marshaling handshake: %w", err)
	}
	if err := WriteFrame(conn, OpHandshake, payload); err != nil {
		return nil, err
	}

	op, data, err := DecodeFrame(conn)
	if err != nil {
		return nil, fmt.Errorf("reading handshake response: %w", err)
	}
	switch op {
	case OpFrame:
	case OpClose:
		return nil, fmt.Errorf("handshake rejected: %w", parseError(data))
	default:
		return nil, fmt.Errorf("unexpected handshake response opcode: %s", op)
	}

	var msg message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("parsing handshake response: %w", err)
	}
	switch msg.Evt {
	case "READY":
		var rd readyData
		if len(msg.Data) > 0 {
			if err := json.Unmarshal(msg.Data, &rd); err != nil {
				return nil, fmt.Errorf("parsing READY data: %w", err)
			}
		}
		return rd.User, nil
	case "ERROR":
		return nil, fmt.Errorf("handshake rejected: %w", parseError(msg.Data))
	default:
		return nil, fmt.Errorf("unexpected handshake event %q", msg.Evt)
	}
}

// sendCommand writes a command frame within timeout. A failed write may
// leave a partial frame behind, so it also drops the connection. The caller
// must hold c.mu.
func (c *Client) sendCommand(cmd string, args any, timeout time.Duration) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	payload, err := json.Marshal(command{Cmd: cmd, Args: args, Nonce: uuid.NewString()})
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", cmd, err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(timeout))
	if err := WriteFrame(c.conn, OpFrame, payload); err != nil {
		c.conn.Close()
		c.conn, c.user, c.readerDone = nil, nil, nil
		slog.Warn("discord connection lost", "cmd", cmd, "error", err)
		return fmt.Errorf("sending %s: %w: %w", cmd, ErrNotConnected, err)
	}
	return nil
}

// readLoop consumes frames until the socket fails or Discord closes it,
// answering PING with PONG.
func (c *Client) readLoop(conn net.Conn, done chan struct{}) {
	defer close(done)
	for {
		op, data, err := DecodeFrame(conn)
		if err != nil {
			c.drop(conn, err)
			return
		}
		switch op {
		case OpPing:
			c.mu.Lock()
			if c.conn == conn {
				_ = conn.SetWriteDeadline(time.Now().Add(commandWriteTimeout))
				err = WriteFrame(conn, OpPong, data)
			}
			c.mu.Unlock()
			if err != nil {
				c.drop(conn, err)
				return
			}
		case OpClose:
			c.drop(conn, parseError(data))
			return
		case OpFrame:
			var msg message
			if err := json.Unmarshal(data, &msg); err != nil {
				slog.Debug("unparsable discord frame", "error", err)
				continue
			}
			if msg.Evt == "ERROR" {
				slog.Warn("discord command failed", "cmd", msg.Cmd, "nonce", msg.Nonce, "error", parseError(msg.Data))
			}
		}
	}
}

// drop forgets conn if it is still the active connection.
func (c *Client) drop(conn net.Conn, reason error) {
	c.mu.Lock()
	active := c.conn == conn
	if active {
		c.conn, c.user, c.readerDone = nil, nil, nil
	}
	c.mu.Unlock()

	if active {
		conn.Close()
		slog.Warn("discord connection lost", "error", reason)
	}
}

func parseError(data []byte) error {
	e := &Error{}
	if err := json.Unmarshal(data, e); err != nil || (e.Code == 0 && e.Message == "") {
		return &Error{Message: string(data)}
	}
	return e
}

func userName(u *User) string {
	if u == nil {
		return ""
	}
	return u.Username
}
