// Package ide hosts the IDE communication controller: an MCP server
// listening on a TCP address that translates IDE requests into bus messages
// and cache reads. The wire format belongs to the MCP layer, not to the
// application core.
package ide

import (
	"context"
	"log"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"codegraph/internal/cache"
	"codegraph/internal/messaging"
)

const (
	// ServerName is the MCP server name announced to clients
	ServerName = "codegraph-ide"
	// ServerVersion is the announced server version
	ServerVersion = "1.0.0"
)

// Controller owns the MCP server for one listening address. It holds
// non-owning references to the storage cache and the bus; the application
// outlives it.
type Controller struct {
	addr  string
	cache *cache.StorageCache
	queue *messaging.Queue

	mcp *server.MCPServer
	sse *server.SSEServer
}

// NewController creates a controller bound to addr, with all tools
// registered but the listener not yet started.
func NewController(addr string, c *cache.StorageCache, q *messaging.Queue) *Controller {
	ctrl := &Controller{
		addr:  addr,
		cache: c,
		queue: q,
		mcp:   server.NewMCPServer(ServerName, ServerVersion),
	}
	ctrl.registerTools()
	return ctrl
}

func (c *Controller) registerTools() {
	c.mcp.AddTool(loadProjectTool(), c.handleLoadProject)
	c.mcp.AddTool(refreshTool(), c.handleRefresh)
	c.mcp.AddTool(searchFulltextTool(), c.handleSearchFulltext)
	c.mcp.AddTool(getStatusTool(), c.handleGetStatus)
	c.mcp.AddTool(activateWindowTool(), c.handleActivateWindow)
}

// StartListening starts serving on the controller's address. The listener
// runs on its own goroutine; request handlers publish to the bus rather
// than touching application state.
func (c *Controller) StartListening() error {
	c.sse = server.NewSSEServer(c.mcp)
	go func() {
		if err := c.sse.Start(c.addr); err != nil {
			log.Printf("ide: listener on %s stopped: %v", c.addr, err)
		}
	}()
	return nil
}

// StopListening shuts the listener down.
func (c *Controller) StopListening() {
	if c.sse == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := c.sse.Shutdown(ctx); err != nil {
		log.Printf("ide: shutdown: %v", err)
	}
}
