// Package serve implements the hosting platform's HTTP contract: GET /ping
// for liveness and POST /invocations for inference. Input is accepted only
// as JSON and output is only JSON; everything else is refused up front.
package serve

import (
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/diffuserd/diffuserd/internal/config"
	"github.com/diffuserd/diffuserd/internal/errdefs"
	"github.com/diffuserd/diffuserd/internal/handler"
	"github.com/diffuserd/diffuserd/internal/log"
	"github.com/diffuserd/diffuserd/internal/request"
	"github.com/samber/do"
)

const (
	readHeaderTimeout = 15 * time.Second
	shutdownTimeout   = 30 * time.Second

	// maxBodyBytes bounds the request body; prompts are at most 1000
	// characters so anything near this limit is garbage.
	maxBodyBytes = 1 << 20
)

type Server struct {
	handler *handler.Handler
	addr    string
}

func NewServer(i *do.Injector) (*Server, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return &Server{
		handler: do.MustInvoke[*handler.Handler](i),
		addr:    cfg.Addr,
	}, nil
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ping", s.ping)
	mux.HandleFunc("/invocations", s.invoke)
	return mux
}

// ListenAndServe blocks until ctx is canceled, then drains in-flight
// requests. The logger in ctx becomes the base logger for every request.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	log.FromContextOrDiscard(ctx).Info("serving", "addr", s.addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) ping(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func (s *Server) invoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, errdefs.InvalidInput("method not allowed: %s", r.Method))
		return
	}
	if ct := r.Header.Get("Content-Type"); !isJSON(ct) {
		writeError(w, http.StatusUnsupportedMediaType, errdefs.InvalidInput("unsupported content type: %s", ct))
		return
	}
	if accept := r.Header.Get("Accept"); !acceptsJSON(accept) {
		writeError(w, http.StatusNotAcceptable, errdefs.InvalidInput("unsupported accept type: %s", accept))
		return
	}

	var req request.Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, errdefs.InvalidInput("decoding request body: %v", err))
		return
	}

	artifact, err := s.handler.Handle(ctx, req)
	if err != nil {
		log.FromContextOrDiscard(ctx).WithGroup("serve").Error("invocation failed", "error", err)
		writeError(w, statusFor(err), err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(artifact)
}

func isJSON(contentType string) bool {
	mt, _, err := mime.ParseMediaType(contentType)
	return err == nil && mt == "application/json"
}

func acceptsJSON(accept string) bool {
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		switch mt {
		case "application/json", "application/*", "*/*":
			return true
		}
	}
	return false
}

// statusFor maps the error taxonomy to the externally visible status. Only
// invalid input is the client's fault; model load, generation, and storage
// failures are all server-side.
func statusFor(err error) int {
	var e *errdefs.Error
	if errors.As(err, &e) && e.Kind == errdefs.KindInvalidInput {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
