package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/labtrack/core"
	"github.com/trezcool/labtrack/core/assessment"
	"github.com/trezcool/labtrack/core/roster"
	"github.com/trezcool/labtrack/core/teaching"
	"github.com/trezcool/labtrack/core/user"
)

type (
	// ServerDeps regroups everything the API needs; all fields are required.
	ServerDeps struct {
		Conf          *core.Config
		Logger        core.Logger
		UserSvc       user.ServiceInterface
		RosterSvc     roster.ServiceInterface
		TeachingSvc   teaching.ServiceInterface
		AssessmentSvc assessment.ServiceInterface
		Validate      *validator.Validate
		Translator    ut.Translator
	}

	Server struct {
		deps ServerDeps
		app  *echo.Echo

		errs     chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newAppJWTConfig(conf))
	auth := &authenticator{
		conf:        conf,
		usrSvc:      s.deps.UserSvc,
		rosterSvc:   s.deps.RosterSvc,
		teachingSvc: s.deps.TeachingSvc,
	}

	registerUserAPI(v1, jwt, auth, s.deps.UserSvc, s.deps.Validate, s.deps.Translator)
	registerAdminAPI(v1, jwt, s.deps.RosterSvc, s.deps.TeachingSvc, s.deps.Validate)
	registerRosterAPI(v1, jwt, s.deps.RosterSvc, s.deps.TeachingSvc, s.deps.AssessmentSvc)
	registerAssessmentAPI(v1, jwt, s.deps.AssessmentSvc)
}

// Start runs the listener; a failure lands on Errors().
func (s *Server) Start() {
	s.errs <- s.app.Start(s.deps.Conf.Server.Addr)
}

// Errors reports fatal server errors.
func (s *Server) Errors() <-chan error { return s.errs }

// ShutdownSignal fires on SIGINT/SIGTERM or an integrity-compromising error.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

// SignalShutdown requests a graceful shutdown without an OS signal.
func (s *Server) SignalShutdown() { s.shutdown <- syscall.SIGTERM }

func (s *Server) Shutdown(ctx context.Context) error { return s.app.Shutdown(ctx) }
func (s *Server) Close() error                       { return s.app.Close() }

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to LabTrack API!")
}
