package mcp

import (
	"context"
	"errors"
	"io"
	"sync"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/errgroup"
)

// InProcessTransport connects a go-sdk client to an mcp-go server running
// in the same process. Messages travel over a pair of pipes using the same
// newline-delimited JSON-RPC framing as stdio.
type InProcessTransport struct {
	server *mcpserver.MCPServer
}

// NewInProcessTransport returns a transport serving srv.
func NewInProcessTransport(srv *mcpserver.MCPServer) *InProcessTransport {
	return &InProcessTransport{server: srv}
}

// Connect starts the server loop and returns the client side of the pipes.
// The server loop is stopped when the returned connection is closed.
func (t *InProcessTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	serverIn, clientOut := io.Pipe()
	clientIn, serverOut := io.Pipe()

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	g, gctx := errgroup.WithContext(loopCtx)
	g.Go(func() error {
		defer serverOut.Close()
		err := mcpserver.NewStdioServer(t.server).Listen(gctx, serverIn, serverOut)
		if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
			return nil
		}
		return err
	})

	conn, err := (&mcp.IOTransport{Reader: clientIn, Writer: clientOut}).Connect(ctx)
	if err != nil {
		cancel()
		clientOut.Close()
		clientIn.Close()
		_ = g.Wait()
		return nil, err
	}

	stop := func() error {
		cancel()
		clientOut.Close()
		serverIn.Close()
		return g.Wait()
	}
	return &inProcessConn{Connection: conn, stop: stop}, nil
}

type inProcessConn struct {
	mcp.Connection

	once sync.Once
	stop func() error
	err  error
}

func (c *inProcessConn) Close() error {
	c.once.Do(func() {
		c.err = errors.Join(c.Connection.Close(), c.stop())
	})
	return c.err
}
