package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/hupe1980/agentgraph/core"
	"github.com/hupe1980/agentgraph/dispatch"
	"github.com/hupe1980/agentgraph/internal/util"
	"github.com/hupe1980/agentgraph/logging"
)

// Dispatcher runs one agent turn. *dispatch.Dispatcher implements it.
type Dispatcher interface {
	Dispatch(ctx context.Context, agentName, message string, dctx core.DispatchContext) dispatch.Result
}

// AgentRequest is the body of POST /api/agent.
type AgentRequest struct {
	AgentName  string  `json:"agent_name"`
	Message    string  `json:"message"`
	Identifier *string `json:"identifier,omitempty"`
}

// Options configures the HTTP handler.
type Options struct {
	// AllowedOrigins for CORS. Defaults to all origins.
	AllowedOrigins []string
	// Agents lists the dispatchable agent ids for GET /api/agents. The route
	// is not mounted when nil.
	Agents func() []string
	Logger logging.Logger
}

// New returns the HTTP handler exposing d.
func New(d Dispatcher, optFns ...func(o *Options)) http.Handler {
	opts := Options{
		AllowedOrigins: []string{"*"},
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{dispatcher: d, logger: logging.OrNoOp(opts.Logger)}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(h.logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", healthHandler)
	r.Route("/api", func(r chi.Router) {
		r.Post("/agent", h.callAgent)
		if opts.Agents != nil {
			r.Get("/agents", listAgentsHandler(opts.Agents))
		}
	})

	return r
}

type handler struct {
	dispatcher Dispatcher
	logger     logging.Logger
}

// callAgent dispatches the request and answers with the JSON object found in
// the agent's final reply.
func (h *handler) callAgent(w http.ResponseWriter, r *http.Request) {
	var req AgentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return
	}

	h.logger.Info("http.agent.dispatch", "agent", req.AgentName, "identifier", req.Identifier, "request_id", chimw.GetReqID(r.Context()))

	dctx := core.DispatchContext{core.KeyIdentifier: nil}
	if req.Identifier != nil {
		dctx[core.KeyIdentifier] = *req.Identifier
	}

	res := h.dispatcher.Dispatch(r.Context(), req.AgentName, req.Message, dctx)
	if res.Failed() {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": res.Error})
		return
	}

	content, err := util.ExtractJSON(res.Text())
	if err != nil {
		h.logger.Error("http.agent.unparsable", "agent", req.AgentName, "error", err)
		writeJSON(w, http.StatusOK, map[string]string{"error": (&core.ParseError{}).Error()})
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func listAgentsHandler(agents func() []string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ids := agents()
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, http.StatusOK, map[string][]string{"agents": ids})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
