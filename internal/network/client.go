package network

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"bergbridge/internal/types"
)

// Client sends envelopes to a bridge and reads responses, one at a time.
type Client struct {
	conn         net.Conn
	maxFrameSize int
	mu           sync.Mutex
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	return &Client{conn: conn, maxFrameSize: DefaultMaxFrameSize}, nil
}

// Send writes one envelope and waits for its response. The context
// deadline, if any, applies to the whole exchange.
func (c *Client) Send(ctx context.Context, env *types.CommandEnvelope) (types.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
		defer c.conn.SetDeadline(time.Time{})
	}

	if err := WriteFrame(c.conn, MarshalEnvelope(env)); err != nil {
		return types.Response{}, fmt.Errorf("write envelope: %w", err)
	}
	buf, err := ReadFrame(c.conn, c.maxFrameSize)
	if err != nil {
		return types.Response{}, fmt.Errorf("read response: %w", err)
	}
	resp, err := UnmarshalResponse(buf)
	if err != nil {
		return types.Response{}, err
	}
	if resp.CommandID != env.Header.CommandID {
		return resp, fmt.Errorf("response for command id %d, sent %d", resp.CommandID, env.Header.CommandID)
	}
	return resp, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
