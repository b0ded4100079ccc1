package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"sort"
	"time"
)

// Server exposes /metrics, /healthz and a plain-text status page.
type Server struct {
	srv         *http.Server
	enablePprof bool
	startTime   time.Time
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithPprof enables /debug/pprof/* endpoints.
func WithPprof(enable bool) ServerOption {
	return func(s *Server) { s.enablePprof = enable }
}

func NewServer(addr string, opts ...ServerOption) *Server {
	s := &Server{startTime: time.Now()}
	for _, opt := range opts {
		opt(s)
	}
	s.srv = &http.Server{Addr: addr, Handler: s.mux(), ReadHeaderTimeout: 5 * time.Second}
	return s
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/debug/status/text", s.handleTextStatus)
	if s.enablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// Serve accepts on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(ln) }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errCh
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ListenAndServe listens on the configured address and calls Serve.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) handleTextStatus(w http.ResponseWriter, r *http.Request) {
	st := SnapshotData()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	fmt.Fprintf(w, "=== awg junk status ===\n\n")
	fmt.Fprintf(w, "Uptime:       %s\n", time.Since(s.startTime).Truncate(time.Second))
	fmt.Fprintf(w, "Go Version:   %s\n", runtime.Version())
	fmt.Fprintf(w, "Goroutines:   %d\n\n", runtime.NumGoroutine())

	fmt.Fprintf(w, "--- Specs ---\n")
	fmt.Fprintf(w, "Builds:       %d ok, %d invalid, %d nomem, %d inert\n",
		st.SpecBuildsOK, st.SpecBuildsInvalid, st.SpecBuildsNoMem, st.SpecBuildsInert)
	fmt.Fprintf(w, "Applies:      %d\n\n", st.SpecApplies)

	fmt.Fprintf(w, "--- Headers ---\n")
	fmt.Fprintf(w, "Checks:       %d accepted, %d rejected\n", st.HeaderAccepted, st.HeaderRejected)
	fmt.Fprintf(w, "Generated:    %d\n\n", st.HeadersGenerated)

	fmt.Fprintf(w, "--- Junk ---\n")
	fmt.Fprintf(w, "Sent:         %d packets, %s\n", st.JunkPacketsSent, formatBytes(uint64(st.JunkBytesSent)))
	fmt.Fprintf(w, "Errors:       %d\n", st.SendErrors)
	fmt.Fprintf(w, "Reloads:      %d\n\n", st.ConfigReloads)

	fmt.Fprintf(w, "--- Entropy ---\n")
	classes := make([]string, 0, len(st.EntropyBytes))
	for class := range st.EntropyBytes {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Fprintf(w, "%-13s %s\n", class+":", formatBytes(uint64(st.EntropyBytes[class])))
	}
	fmt.Fprintf(w, "Reseeds:      %d\n", st.EntropyReseedsTotal)
}

func formatBytes(b uint64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := uint64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}
