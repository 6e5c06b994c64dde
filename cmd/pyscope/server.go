package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pyscope-dev/pyscope/internal/depgraph"
	"github.com/pyscope-dev/pyscope/internal/sourceenv"
	"github.com/pyscope-dev/pyscope/internal/typeenv"
)

var serverAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run a long-running JSON-RPC-shaped server over stdin/stdout or TCP",
	Long: `server keeps the layered environment resident in memory and
serves speculative edits through a sourceenv.Overlay: didOpen/didChange
requests patch the overlay, and a checkQualifier request returns the
diagnostics that result — without ever touching the on-disk cache. The
wire shape is a minimal newline-delimited JSON-RPC, not full LSP (out of
scope).`,
	RunE: runServer,
}

func init() {
	serverCmd.Flags().StringVar(&serverAddr, "listen", "", "TCP address to listen on (default: serve over stdin/stdout)")
}

// overlayAdapter makes *sourceenv.Overlay satisfy typeenv.New's
// sourceUpdater constraint. An Overlay's content only ever changes through
// UpdateOverlaidCode, never through a FileEvent batch, so the adapter
// queues edits (via stageEdit) and flushes them into the real
// UpdateOverlaidCode call the next time the layered Environment calls
// Update — that's what carries TriggeredDependencies up through the
// Alias/ClassSummary/... chain.
type overlayAdapter struct {
	*sourceenv.Overlay

	mu      sync.Mutex
	pending map[string]string
}

func newOverlayAdapter(o *sourceenv.Overlay) *overlayAdapter {
	return &overlayAdapter{Overlay: o, pending: make(map[string]string)}
}

func (a *overlayAdapter) stageEdit(qualifier, content string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending[qualifier] = content
}

func (a *overlayAdapter) Update(events []sourceenv.FileEvent) sourceenv.UpdateResult {
	a.mu.Lock()
	updates := a.pending
	a.pending = make(map[string]string)
	a.mu.Unlock()

	if len(updates) == 0 {
		return sourceenv.UpdateResult{}
	}
	return a.Overlay.UpdateOverlaidCode(updates)
}

// rpcRequest and rpcResponse define the newline-delimited JSON protocol:
// one request object per line in, one response object per line out.
type rpcRequest struct {
	ID     int               `json:"id"`
	Method string            `json:"method"`
	Params map[string]string `json:"params"`
}

type rpcResponse struct {
	ID     int         `json:"id"`
	Result interface{} `json:"result,omitempty"`
	Error  string      `json:"error,omitempty"`
}

func runServer(cmd *cobra.Command, args []string) error {
	proj, err := loadProject(settingsCur)
	if err != nil {
		return err
	}

	overlay := sourceenv.NewOverlay(proj.source)
	adapter := newOverlayAdapter(overlay)
	tracker := depgraph.NewTracker()
	types := typeenv.New(adapter, tracker)

	ctx := context.Background()
	if serverAddr != "" {
		return serveTCP(ctx, serverAddr, adapter, types)
	}
	return serveConn(ctx, os.Stdin, os.Stdout, adapter, types)
}

func serveTCP(ctx context.Context, addr string, overlay *overlayAdapter, types *typeenv.Environment) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	defer ln.Close()
	logger.Info("pyscope server listening", zap.String("addr", addr))

	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		go func() {
			defer conn.Close()
			if err := serveConn(ctx, conn, conn, overlay, types); err != nil && err != io.EOF {
				logger.Warn("connection ended", zap.Error(err))
			}
		}()
	}
}

func serveConn(ctx context.Context, r io.Reader, w io.Writer, overlay *overlayAdapter, types *typeenv.Environment) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req rpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(rpcResponse{Error: fmt.Sprintf("malformed request: %v", err)})
			continue
		}
		resp := handleRPC(overlay, types, req)
		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func handleRPC(overlay *overlayAdapter, types *typeenv.Environment, req rpcRequest) rpcResponse {
	switch req.Method {
	case "didOpen", "didChange":
		qualifier := req.Params["qualifier"]
		content := req.Params["content"]
		overlay.stageEdit(qualifier, content)
		result := types.Update(nil)
		return rpcResponse{ID: req.ID, Result: map[string]interface{}{
			"invalidated": result.InvalidatedModules,
		}}

	case "checkQualifier":
		qualifier := req.Params["qualifier"]
		ds := types.Diagnostics(qualifier)
		return rpcResponse{ID: req.ID, Result: ds}

	default:
		return rpcResponse{ID: req.ID, Error: fmt.Sprintf("unknown method %q", req.Method)}
	}
}
