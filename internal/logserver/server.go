// Package logserver collects syslog messages sent over UDP by cellveyor runs
// that log to the syslog destination. Messages are appended to a rotated log
// file, echoed to the console, and the newest lines are served over HTTP.
package logserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hyperjump/cellveyor/internal/config"
	"github.com/hyperjump/cellveyor/internal/output"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gopkg.in/natefinch/lumberjack.v2"
)

const maxPacket = 64 * 1024

var priorityPrefix = regexp.MustCompile(`^<\d{1,3}>`)

// StripPriority removes a leading syslog priority such as "<15>".
func StripPriority(msg string) string {
	return priorityPrefix.ReplaceAllString(msg, "")
}

// Server is the telemetry collector.
type Server struct {
	cfg     config.LogServerConfig
	console *output.Console
	logger  *zap.Logger
	sink    *lumberjack.Logger
	recent  *recentLines

	mu         sync.Mutex
	conn       net.PacketConn
	httpServer *http.Server
}

// NewServer creates a collector. HTTPPort < 0 disables the HTTP API.
func NewServer(cfg config.LogServerConfig, c *output.Console) *Server {
	return &Server{
		cfg:     cfg,
		console: c,
		logger:  c.Logger(),
		sink: &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
		},
		recent: newRecentLines(cfg.RecentLines),
	}
}

// Listen binds the UDP socket and returns its address.
func (s *Server) Listen() (net.Addr, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		return s.conn.LocalAddr(), nil
	}
	if dir := filepath.Dir(s.cfg.LogFile); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	conn, err := net.ListenPacket("udp", s.cfg.Address())
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", s.cfg.Address(), err)
	}
	s.conn = conn
	return conn.LocalAddr(), nil
}

// Serve receives messages until ctx is canceled. It calls Listen if needed
// and starts the HTTP API alongside the collector.
func (s *Server) Serve(ctx context.Context) error {
	if _, err := s.Listen(); err != nil {
		return err
	}
	defer s.sink.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.collect(gctx) })
	if s.cfg.HTTPPort >= 0 {
		g.Go(func() error { return s.serveHTTP(gctx) })
	}
	return g.Wait()
}

func (s *Server) collect(ctx context.Context) error {
	defer s.conn.Close()
	s.logger.Info("collecting log messages", zap.String("addr", s.conn.LocalAddr().String()))

	buf := make([]byte, maxPacket)
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		if err := s.conn.SetReadDeadline(time.Now().Add(s.cfg.PollInterval)); err != nil {
			return err
		}
		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read failed: %w", err)
		}
		s.handleMessage(buf[:n])
	}
}

func (s *Server) handleMessage(packet []byte) {
	line := strings.ToValidUTF8(string(packet), "�")
	line = StripPriority(strings.TrimRight(line, "\r\n\x00"))
	if line == "" {
		return
	}
	if _, err := s.sink.Write([]byte(line + "\n")); err != nil {
		s.logger.Warn("failed to write log file", zap.Error(err))
	}
	s.recent.add(line)
	s.console.Println(line)
}

// Recent returns up to n of the newest lines, oldest first. n <= 0 returns none.
func (s *Server) Recent(n int) []string {
	return s.recent.last(n)
}

// Handler returns the HTTP API.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/logs", s.handleLogs)
	return r
}

func (s *Server) serveHTTP(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddress(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("serving log API", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
