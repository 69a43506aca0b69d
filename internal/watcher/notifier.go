package watcher

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/vk/bndl/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// RebuildEvent is the socket.io event emitted after a successful rebuild.
const RebuildEvent = "rebuild"

const connectTimeout = 15 * time.Second

// conn is the part of a socket.io client connection the notifier uses.
// *socket.Socket satisfies it.
type conn interface {
	Connected() bool
	Emit(ev string, args ...any) error
	Disconnect() *socket.Socket
}

// SocketNotifier emits RebuildEvent to a socket.io server, for dev servers
// that reload when the build output changes.
type SocketNotifier struct {
	baseURL   string
	path      string
	namespace string
	dial      func(ctx context.Context) (conn, error)

	mu     sync.Mutex
	client conn
}

// NewSocketNotifier parses rawURL ("http://host:port/socket.io#/ns"). The
// URL path is the socket.io endpoint path; the fragment, if any, selects the
// namespace.
func NewSocketNotifier(rawURL string) (*SocketNotifier, error) {
	base, path, namespace, err := parseNotifyURL(rawURL)
	if err != nil {
		return nil, err
	}
	n := &SocketNotifier{baseURL: base, path: path, namespace: namespace}
	n.dial = n.dialSocket
	return n, nil
}

func parseNotifyURL(rawURL string) (base, path, namespace string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to parse notify URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", "", "", fmt.Errorf("notify URL %q needs a scheme and a host", rawURL)
	}
	path = u.Path
	if path == "" || path == "/" {
		path = "/socket.io"
	}
	namespace = u.Fragment
	if namespace == "" {
		namespace = "/"
	}
	return fmt.Sprintf("%s://%s", u.Scheme, u.Host), path, namespace, nil
}

// Connect dials the server and waits for the connection to be confirmed.
func (n *SocketNotifier) Connect(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.connectLocked(ctx)
}

func (n *SocketNotifier) connectLocked(ctx context.Context) error {
	if n.client != nil {
		n.client.Disconnect()
		n.client = nil
	}
	c, err := n.dial(ctx)
	if err != nil {
		return err
	}
	n.client = c
	return nil
}

// dialSocket opens a socket.io connection and waits until the server
// confirms it.
func (n *SocketNotifier) dialSocket(ctx context.Context) (conn, error) {
	logger := ctxlog.FromContext(ctx).With("notifier", n.baseURL)

	opts := socket.DefaultOptions()
	opts.SetPath(n.path)
	opts.SetTransports(types.NewSet(transports.WebSocket))

	manager := socket.NewManager(n.baseURL, opts)
	io := manager.Socket(n.namespace, opts)

	connectChan := make(chan error, 1)
	io.Once(types.EventName("connect"), func(...any) {
		logger.Debug("Notifier connected.", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		err := fmt.Errorf("connect_error")
		if len(errs) > 0 {
			if e, ok := errs[0].(error); ok {
				err = e
			}
		}
		connectChan <- err
	})
	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return io, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context canceled while waiting for socket.io connection")
	case <-time.After(connectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", connectTimeout)
	}
}

// Notify implements Notifier. A dropped connection is re-established first.
func (n *SocketNotifier) Notify(ctx context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.client == nil || !n.client.Connected() {
		if err := n.connectLocked(ctx); err != nil {
			return err
		}
	}
	err := n.client.Emit(RebuildEvent, map[string]any{
		"path": path,
		"time": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("failed to emit %s: %w", RebuildEvent, err)
	}
	return nil
}

// Close disconnects from the server.
func (n *SocketNotifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.client != nil {
		n.client.Disconnect()
		n.client = nil
	}
}
