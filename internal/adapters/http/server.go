package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oapi-codegen/runtime"
	"go.uber.org/zap"

	api "vantage/internal/api"
	"vantage/internal/domain"
	"vantage/internal/loader"
	"vantage/internal/ports"
	"vantage/internal/views"
)

const SessionCookie = "session_token"

// Server exposes the drill-down views to signed-in analysts and, optionally,
// the portfolio backend contract itself under /api.
type Server struct {
	guard      ports.SessionGuard
	workspaces *views.Workspaces
	backend    ports.Portfolio
	metrics    http.Handler
	log        *zap.Logger
	unobserve  func()
}

type Option func(*Server)

// WithBackendRoutes serves p under /api.
func WithBackendRoutes(p ports.Portfolio) Option { return func(s *Server) { s.backend = p } }

func WithMetrics(h http.Handler) Option { return func(s *Server) { s.metrics = h } }

func WithLogger(l *zap.Logger) Option { return func(s *Server) { s.log = l } }

// New wires the server. A workspace is dropped as soon as its session ends.
func New(guard ports.SessionGuard, workspaces *views.Workspaces, opts ...Option) *Server {
	s := &Server{guard: guard, workspaces: workspaces, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.unobserve = guard.Observe(func(ev ports.SessionEvent) {
		if ev.Kind == ports.SessionLoggedOut || ev.Kind == ports.SessionExpired {
			if workspaces.Drop(ev.Token) {
				s.log.Debug("workspace dropped", zap.String("reason", string(ev.Kind)), zap.String("email", ev.User.Email))
			}
		}
	})
	return s
}

// Close stops following session events.
func (s *Server) Close() { s.unobserve() }

// Routes returns the chi.Router serving every endpoint.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}
	r.Get("/login", s.loginPage)
	r.Post("/login", s.login)
	r.Post("/logout", s.logout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/dashboard", s.dashboard)
		r.Post("/dashboard/companies/{id}/select", s.selectCompany)
		r.Get("/synergy-analysis/{id}", s.synergyAnalysis)
		r.Post("/synergy-analysis/{id}/targets/{targetId}", s.selectTarget)
		r.Get("/company-analysis/{id}", s.companyAnalysis)
	})

	// The backend contract needs a session too; anonymous callers get a 401
	// in the envelope shape rather than a redirect.
	if s.backend != nil {
		r.Route("/api", func(r chi.Router) {
			r.Use(s.requireAPISession)
			r.Get("/organizations", s.apiOrganizations)
			r.Get("/portfolio", s.apiPortfolio)
			r.Get("/portfolio/target", s.apiTargetSynergy)
		})
	}
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type ctxKey struct{}

func sessionToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); len(h) > len("Bearer ") && h[:len("Bearer ")] == "Bearer " {
		return h[len("Bearer "):]
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

func ownerFrom(ctx context.Context) string {
	v, _ := ctx.Value(ctxKey{}).(string)
	return v
}

// requireSession redirects anonymous requests to /login without a body.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if !s.guard.IsAuthenticated(r.Context(), token) {
			redirectToLogin(w)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, token)))
	})
}

func (s *Server) requireAPISession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.guard.IsAuthenticated(r.Context(), sessionToken(r)) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func redirectToLogin(w http.ResponseWriter) {
	w.Header().Set("Location", "/login")
	w.WriteHeader(http.StatusFound)
}

func (s *Server) loginPage(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Sign in with POST /login {email, token}"})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var creds ports.Credentials
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid login request")
		return
	}
	sess, err := s.guard.Login(r.Context(), creds)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		_ = s.guard.Logout(r.Context(), token)
	}
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	w.WriteHeader(http.StatusNoContent)
}

// renderView writes a view state. A rejected session leads back to /login and
// a request overtaken by another one for a different id gets a 409.
func (s *Server) renderView(w http.ResponseWriter, state any, unauthorized bool, err error) {
	switch {
	case unauthorized:
		redirectToLogin(w)
	case errors.Is(err, loader.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer request for this view")
	case err != nil:
		s.log.Warn("view load interrupted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		writeJSON(w, http.StatusOK, state)
	}
}

func (s *Server) renderTransition(w http.ResponseWriter, tr views.Transition, err error) {
	switch {
	case tr.Unauthorized:
		redirectToLogin(w)
	case errors.Is(err, loader.ErrSuperseded):
		writeError(w, http.StatusConflict, "superseded by a newer selection")
	case err != nil:
		s.log.Warn("selection interrupted", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		loc := tr.Location()
		w.Header().Set("Location", loc)
		writeJSON(w, http.StatusSeeOther, map[string]any{
			"location": loc,
			"carried":  tr.Carried,
			"message":  tr.Message,
		})
	}
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	// optional parameters bind through a pointer
	var orgID *int64
	if err := runtime.BindQueryParameter("form", true, false, "orgId", r.URL.Query(), &orgID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid orgId")
		return
	}
	var org int64
	if orgID != nil {
		org = *orgID
	}
	st, err := s.workspaces.Get(ownerFrom(r.Context())).Dashboard.Open(r.Context(), org)
	s.renderView(w, st, st.Unauthorized, err)
}

func (s *Server) selectCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tr, err := s.workspaces.Get(ownerFrom(r.Context())).Dashboard.Select(r.Context(), id, r.URL.Query().Get(views.ParamCompanyName))
	s.renderTransition(w, tr, err)
}

func (s *Server) synergyAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	st, err := s.workspaces.Get(ownerFrom(r.Context())).Synergy.Open(r.Context(), id, q.Get(views.ParamCompanyName), q.Get(views.ParamTransition))
	s.renderView(w, st, st.Unauthorized, err)
}

func (s *Server) selectTarget(w http.ResponseWriter, r *http.Request) {
	buyer, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	target, ok := pathID(w, r, "targetId")
	if !ok {
		return
	}
	tr, err := s.workspaces.Get(ownerFrom(r.Context())).Synergy.SelectTarget(r.Context(), buyer, target)
	s.renderTransition(w, tr, err)
}

func (s *Server) companyAnalysis(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	q := r.URL.Query()
	buyer := domain.ParseCompanyID(q.Get(views.ParamBuyerCompany))
	st, err := s.workspaces.Get(ownerFrom(r.Context())).Company.Open(r.Context(), id, buyer, q.Get(views.ParamTransition))
	s.renderView(w, st, st.Unauthorized, err)
}

// pathID binds a company id path segment. Ids may be numeric or tokens.
func pathID(w http.ResponseWriter, r *http.Request, name string) (domain.CompanyID, bool) {
	var raw string
	if err := runtime.BindStyledParameterWithLocation("simple", false, name, runtime.ParamLocationPath, chi.URLParam(r, name), &raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return domain.CompanyID{}, false
	}
	id := domain.ParseCompanyID(raw)
	if id.IsZero() {
		writeError(w, http.StatusBadRequest, "missing "+name)
		return id, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers in the backend envelope shape.
func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, api.Fail[any](msg))
}

// writeEnvelope maps a backend answer onto a status code: unsuccessful
// answers are 404s that still carry their envelope.
func (s *Server) writeEnvelope(w http.ResponseWriter, success bool, body any, err error) {
	switch {
	case errors.Is(err, api.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, api.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "backend timed out")
	case err != nil:
		s.log.Error("backend call failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "backend unavailable")
	case !success:
		writeJSON(w, http.StatusNotFound, body)
	default:
		writeJSON(w, http.StatusOK, body)
	}
}
