// Package streamclient connects to a solve stream and collects its frames.
package streamclient

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/lawnchairsociety/wavecollapse/internal/generator"
	"github.com/lawnchairsociety/wavecollapse/internal/server"
)

var (
	ErrTimeout      = errors.New("streamclient: timed out waiting for the solve")
	ErrStreamFailed = errors.New("streamclient: stream ended without a result")
)

// Client represents one connection to a /ws solve stream
type Client struct {
	conn     *websocket.Conn
	messages []server.Message
	last     *server.Message // done or error frame
	readErr  error
	mu       sync.Mutex
	finished chan struct{}

	onMessage func(server.Message)
}

// Dial connects to the stream at address, e.g. ws://localhost:4000/ws.
// A nil seed uses the server's configured seed.
func Dial(address string, seed *int64, header http.Header) (*Client, error) {
	return DialWithHook(address, seed, header, nil)
}

// DialWithHook is Dial with a callback run on the reading goroutine for
// every frame as it arrives.
func DialWithHook(address string, seed *int64, header http.Header, onMessage func(server.Message)) (*Client, error) {
	u, err := url.Parse(address)
	if err != nil {
		return nil, fmt.Errorf("invalid stream address: %w", err)
	}
	if seed != nil {
		q := u.Query()
		q.Set("seed", strconv.FormatInt(*seed, 10))
		u.RawQuery = q.Encode()
	}

	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("failed to connect: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	client := &Client{
		conn:      conn,
		finished:  make(chan struct{}),
		onMessage: onMessage,
	}

	// Start reading messages in background
	go client.readMessages()

	return client, nil
}

// readMessages reads frames until the final frame or a read error.
func (c *Client) readMessages() {
	defer close(c.finished)

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.mu.Lock()
			c.readErr = err
			c.mu.Unlock()
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}

		c.mu.Lock()
		if msg.Type == server.MessageCollapse {
			c.messages = append(c.messages, msg)
		} else {
			c.last = &msg
		}
		c.mu.Unlock()

		if msg.Type != server.MessageCollapse {
			return
		}
	}
}

// GetMessages returns the collapse frames received so far.
func (c *Client) GetMessages() []server.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	result := make([]server.Message, len(c.messages))
	copy(result, c.messages)
	return result
}

// WaitForDone blocks until the stream ends and returns the done frame.
// An error frame from the server is returned as an error.
func (c *Client) WaitForDone(timeout time.Duration) (server.Message, error) {
	select {
	case <-c.finished:
	case <-time.After(timeout):
		return server.Message{}, ErrTimeout
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.last == nil:
		return server.Message{}, fmt.Errorf("%w: %v", ErrStreamFailed, c.readErr)
	case c.last.Type == server.MessageError:
		return *c.last, fmt.Errorf("%w: %s", ErrStreamFailed, c.last.Error)
	default:
		return *c.last, nil
	}
}

// Result assembles the solved field from the frames of the final attempt.
// It must be called after WaitForDone succeeded.
func (c *Client) Result() (*generator.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last == nil || c.last.Type != server.MessageDone {
		return nil, ErrStreamFailed
	}
	done := c.last

	var cells []generator.Placement
	for _, msg := range c.messages {
		if msg.Attempt == done.Attempt && msg.Placement != nil {
			cells = append(cells, *msg.Placement)
		}
	}

	// Field order: rows by y, then x.
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Y != cells[j].Y {
			return cells[i].Y < cells[j].Y
		}
		return cells[i].X < cells[j].X
	})

	return &generator.Result{
		Shape:       done.Shape,
		Width:       done.Width,
		Height:      done.Height,
		Radius:      done.Radius,
		ModuleSet:   done.ModuleSet,
		Fingerprint: done.Fingerprint,
		Seed:        done.Seed,
		Attempts:    done.Attempts,
		Cells:       cells,
	}, nil
}

// Close closes the client connection
func (c *Client) Close() error {
	return c.conn.Close()
}
