package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/soaringjerry/SurveyForge/internal/middleware"
	"github.com/soaringjerry/SurveyForge/internal/services"
)

// Deps are the collaborators built once in cmd/server.
type Deps struct {
	Store       Store
	Tokens      *middleware.TokenService
	Completion  services.CompletionClient // nil disables /support/ai with a 500
	Logger      *logrus.Logger
	Metrics     *middleware.Metrics // nil disables /metrics
	CORSOrigins []string
}

type Router struct {
	store     Store
	auth      *services.AuthService
	surveys   *services.SurveyService
	responses *services.ResponseService
	support   *services.SupportService
	gateway   *middleware.AuthGateway
	metrics   *middleware.Metrics
	log       *logrus.Logger
	origins   []string
}

func NewRouter(d Deps) *Router {
	logger := d.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	surveys := services.NewSurveyService(d.Store)
	return &Router{
		store:     d.Store,
		auth:      services.NewAuthService(d.Store, d.Tokens.Issue),
		surveys:   surveys,
		responses: services.NewResponseService(d.Store, surveys),
		support:   services.NewSupportService(d.Store, d.Completion),
		gateway:   middleware.NewAuthGateway(d.Tokens),
		metrics:   d.Metrics,
		log:       logger,
		origins:   d.CORSOrigins,
	}
}

// Register mounts every route on m.
func (rt *Router) Register(m *mux.Router) {
	if rt.metrics != nil {
		m.Use(rt.metrics.Middleware)
		m.Handle("/metrics", rt.metrics.Handler()).Methods(http.MethodGet)
	}
	m.HandleFunc("/ping", rt.handlePing).Methods(http.MethodGet)
	m.HandleFunc("/register", rt.handleRegister).Methods(http.MethodPost)
	m.HandleFunc("/login", rt.handleLogin).Methods(http.MethodPost)

	protected := func(path string, h http.HandlerFunc, method string) {
		m.Handle(path, rt.gateway.Require(h)).Methods(method)
	}
	protected("/surveys", rt.handleCreateSurvey, http.MethodPost)
	protected("/my-surveys", rt.handleMySurveys, http.MethodGet)
	protected("/all-surveys", rt.handleAllSurveys, http.MethodGet)
	protected("/survey/{id}", rt.handleGetSurvey, http.MethodGet)
	protected("/surveys/{id}", rt.handleDeleteSurvey, http.MethodDelete)
	protected("/responses/{surveyId}", rt.handleSubmitResponse, http.MethodPost)
	protected("/getresponses/{surveyId}", rt.handleListResponses, http.MethodGet)
	protected("/support/ai", rt.handleSupport, http.MethodPost)

	m.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	m.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// Handler returns the full middleware chain around a fresh mux.
func (rt *Router) Handler() http.Handler {
	m := mux.NewRouter()
	rt.Register(m)
	var h http.Handler = m
	h = middleware.RequestLogger(rt.log)(h)
	h = middleware.SecureHeaders(h)
	h = middleware.CORS(rt.origins)(h)
	return h
}

func (rt *Router) handlePing(w http.ResponseWriter, r *http.Request) {
	if err := rt.store.Ping(r.Context()); err != nil {
		rt.log.WithError(err).Warn("store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeError maps service errors to their status; anything else is an
// unexpected store or encoding failure and is logged, not echoed.
func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		if se.Code == services.ErrorDependency {
			rt.log.WithField("path", r.URL.Path).WithError(err).Error("dependency failure")
		}
		writeDetail(w, se.HTTPStatus(), se.Message)
		return
	}
	rt.log.WithFields(logrus.Fields{"method": r.Method, "path": r.URL.Path}).WithError(err).Error("request failed")
	writeDetail(w, http.StatusInternalServerError, "internal error")
}

const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return services.NewInvalidError("request body too large")
		}
		return services.NewInvalidError("invalid JSON body")
	}
	return nil
}

// actor is only called behind the gateway, which guarantees a username.
func actor(r *http.Request) string {
	u, _ := middleware.Username(r.Context())
	return u
}
