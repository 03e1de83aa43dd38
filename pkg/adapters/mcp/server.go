package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/undolog"
	"github.com/aretw0/undolog/internal/demo"
	"github.com/aretw0/undolog/internal/logging"
	"github.com/aretw0/undolog/pkg/domain"
	"github.com/aretw0/undolog/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Sessions is the registry the tools drive.
type Sessions = session.Manager[*demo.Session]

// Result is the structured output of every tool.
type Result struct {
	Remaining int         `json:"remaining" jsonschema_description:"Transactions left in the log"`
	Nothing   bool        `json:"nothing,omitempty" jsonschema_description:"True when there was nothing to do"`
	Reason    string      `json:"reason,omitempty" jsonschema_description:"Why nothing happened"`
	TxID      domain.TxID `json:"tx,omitempty" jsonschema_description:"Transaction created or targeted"`
	Words     []string    `json:"words,omitempty" jsonschema_description:"Words written by a greeting"`
	Session   demo.View   `json:"session" jsonschema_description:"Board and log after the call"`
}

type sessionArgs struct {
	Session string `json:"session"`
}

type greetArgs struct {
	Session string `json:"session"`
	Name    string `json:"name"`
}

type countArgs struct {
	Session string `json:"session"`
	Count   *int   `json:"count,omitempty"`
	All     bool   `json:"all,omitempty"`
}

type handleArgs struct {
	Session string `json:"session"`
	TxID    uint64 `json:"tx"`
}

// Server exposes demo sessions as MCP tools.
type Server struct {
	sessions  *Sessions
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP Server instance. A nil logger discards output.
func NewServer(sessions *Sessions, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{
		sessions:  sessions,
		logger:    logger,
		mcpServer: server.NewMCPServer("undolog-mcp", strings.TrimSpace(undolog.Version)),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutdown signal received, shutting down MCP server")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionParam := mcp.WithString("session", mcp.Required(), mcp.Description("Session ID"))

	// TOOL: greet
	s.mcpServer.AddTool(mcp.NewTool("greet",
		mcp.WithDescription("Write a greeting on the session board as one undoable transaction. Creates the session if needed."),
		sessionParam,
		mcp.WithString("name", mcp.Required(), mcp.Description("Who to greet")),
		mcp.WithOutputSchema[Result](),
	), mcp.NewStructuredToolHandler(s.handleGreet))

	// TOOL: undo
	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Reverse the newest transactions of the session log."),
		sessionParam,
		mcp.WithNumber("count", mcp.Description("How many transactions to reverse (default 1)")),
		mcp.WithBoolean("all", mcp.Description("Reverse the whole log")),
		mcp.WithOutputSchema[Result](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	// TOOL: purge
	s.mcpServer.AddTool(mcp.NewTool("purge",
		mcp.WithDescription("Finalize the newest transactions without reversing them. Purges everything unless count is given."),
		sessionParam,
		mcp.WithNumber("count", mcp.Description("How many transactions to finalize")),
		mcp.WithBoolean("all", mcp.Description("Finalize the whole log")),
		mcp.WithOutputSchema[Result](),
	), mcp.NewStructuredToolHandler(s.handlePurge))

	// TOOL: merge
	s.mcpServer.AddTool(mcp.NewTool("merge",
		mcp.WithDescription("Coalesce the newest transactions into one. Merges everything unless count is given."),
		sessionParam,
		mcp.WithNumber("count", mcp.Description("How many of the newest transactions to merge")),
		mcp.WithBoolean("all", mcp.Description("Merge the whole log")),
		mcp.WithOutputSchema[Result](),
	), mcp.NewStructuredToolHandler(s.handleMerge))

	// TOOL: undo_handle
	s.mcpServer.AddTool(mcp.NewTool("undo_handle",
		mcp.WithDescription("Reverse one specific transaction, wherever it sits in the log. Each transaction can be targeted once."),
		sessionParam,
		mcp.WithNumber("tx", mcp.Required(), mcp.Description("Transaction ID returned by greet or merge")),
		mcp.WithOutputSchema[Result](),
	), mcp.NewStructuredToolHandler(s.handleUndoHandle))

	// TOOL: list_log
	s.mcpServer.AddTool(mcp.NewTool("list_log",
		mcp.WithDescription("Show the session board and its transaction log."),
		sessionParam,
		mcp.WithOutputSchema[Result](),
	), mcp.NewStructuredToolHandler(s.handleListLog))
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource("undolog://sessions", "Active Sessions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.sessions.List())
		if err != nil {
			return nil, fmt.Errorf("failed to encode sessions: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "undolog://sessions",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

// run executes fn under the session lock. Outcomes with nothing to do are
// reported in the result, not as tool errors.
func (s *Server) run(ctx context.Context, id string, fn func(*demo.Session) (Result, error)) (Result, error) {
	if id == "" {
		return Result{}, errors.New("session is required")
	}

	var res Result
	err := s.sessions.WithLock(ctx, id, func(_ context.Context, sess *demo.Session) error {
		var err error
		res, err = fn(sess)
		res.Session = sess.View()
		return err
	})
	if undolog.IsNothing(err) {
		res.Nothing = true
		res.Reason = err.Error()
		return res, nil
	}
	if err != nil {
		s.logger.Debug("MCP tool failed", "session_id", id, "err", err)
		return Result{}, err
	}
	return res, nil
}

func (s *Server) handleGreet(ctx context.Context, _ mcp.CallToolRequest, args greetArgs) (Result, error) {
	if strings.TrimSpace(args.Name) == "" {
		return Result{}, errors.New("name is required")
	}
	if args.Session != "" {
		if _, err := s.sessions.Create(ctx, args.Session); err != nil && !errors.Is(err, session.ErrSessionExists) {
			return Result{}, err
		}
	}
	return s.run(ctx, args.Session, func(sess *demo.Session) (Result, error) {
		tx, words, err := sess.Greet(args.Name)
		return Result{Remaining: sess.Log.Len(), TxID: tx, Words: words}, err
	})
}

func (s *Server) handleUndo(ctx context.Context, _ mcp.CallToolRequest, args countArgs) (Result, error) {
	count := 1
	if args.Count != nil {
		count = *args.Count
	}
	return s.run(ctx, args.Session, func(sess *demo.Session) (Result, error) {
		remaining, err := sess.Undo(count, args.All)
		return Result{Remaining: remaining}, err
	})
}

func (s *Server) handlePurge(ctx context.Context, _ mcp.CallToolRequest, args countArgs) (Result, error) {
	count, all := 0, args.All || args.Count == nil
	if args.Count != nil {
		count = *args.Count
	}
	return s.run(ctx, args.Session, func(sess *demo.Session) (Result, error) {
		remaining, err := sess.Purge(count, all)
		return Result{Remaining: remaining}, err
	})
}

func (s *Server) handleMerge(ctx context.Context, _ mcp.CallToolRequest, args countArgs) (Result, error) {
	last, all := 0, args.All || args.Count == nil
	if args.Count != nil {
		last = *args.Count
	}
	return s.run(ctx, args.Session, func(sess *demo.Session) (Result, error) {
		tx := sess.Merge(last, all)
		return Result{Remaining: sess.Log.Len(), TxID: tx}, nil
	})
}

func (s *Server) handleUndoHandle(ctx context.Context, _ mcp.CallToolRequest, args handleArgs) (Result, error) {
	return s.run(ctx, args.Session, func(sess *demo.Session) (Result, error) {
		remaining, err := sess.UndoHandle(domain.TxID(args.TxID))
		return Result{Remaining: remaining, TxID: domain.TxID(args.TxID)}, err
	})
}

func (s *Server) handleListLog(ctx context.Context, _ mcp.CallToolRequest, args sessionArgs) (Result, error) {
	return s.run(ctx, args.Session, func(sess *demo.Session) (Result, error) {
		return Result{Remaining: sess.Log.Len()}, nil
	})
}
