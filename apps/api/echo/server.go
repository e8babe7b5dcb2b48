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
	"go.uber.org/dig"

	"github.com/trezcool/kidcare/core"
	"github.com/trezcool/kidcare/core/assessment"
	"github.com/trezcool/kidcare/core/blog"
	"github.com/trezcool/kidcare/core/center"
	"github.com/trezcool/kidcare/core/child"
	"github.com/trezcool/kidcare/core/counseling"
	"github.com/trezcool/kidcare/core/payment"
	"github.com/trezcool/kidcare/core/push"
	"github.com/trezcool/kidcare/core/schedule"
	"github.com/trezcool/kidcare/core/seo"
	"github.com/trezcool/kidcare/core/therapist"
	"github.com/trezcool/kidcare/core/traffic"
	"github.com/trezcool/kidcare/core/user"
)

// ServerDeps are the dependencies of the API Server.
type ServerDeps struct {
	dig.In

	Conf       *core.Config
	Logger     core.Logger
	Validate   *validator.Validate
	Translator ut.Translator

	Users       *user.Service
	Centers     *center.Service
	Therapists  *therapist.Service
	Children    *child.Service
	Schedules   *schedule.Service
	Counseling  *counseling.Service
	Assessments *assessment.Service
	Payments    *payment.Service
	Traffic     *traffic.Service
	Push        *push.Service
	Pinger      *seo.Pinger
	Blog        *blog.Fetcher
}

type Server struct {
	app      *echo.Echo
	deps     ServerDeps
	auth     authenticator
	errors   chan error
	shutdown chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		app:      echo.New(),
		deps:     deps,
		auth:     authenticator{conf: deps.Conf, users: deps.Users},
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	if !deps.Conf.TestMode {
		signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowHeaders: []string{
			echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, conf.Tenancy.CenterHeader,
		},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	requireCenter := centerMiddleware(s.deps.Centers, conf.Tenancy.CenterHeader, false)
	optionalCenter := centerMiddleware(s.deps.Centers, conf.Tenancy.CenterHeader, true)
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	member := centerMemberMiddleware()

	s.app.GET("/", s.home)
	registerSEORoutes(s.app, requireCenter, s.deps)

	v1 := s.app.Group("/v1")
	registerPublicAPI(v1.Group("/public", requireCenter), s.deps)

	authed := func(prefix string) *echo.Group {
		return v1.Group(prefix, optionalCenter, jwt, member)
	}
	registerUserAPI(v1.Group("/users", optionalCenter), jwt, member, s.auth, s.deps)
	registerCenterAPI(v1.Group("/centers", jwt, roleMiddleware(user.RoleSuper)), s.deps)
	registerTherapistAPI(authed("/therapists"), s.deps)
	registerChildAPI(authed("/children"), s.deps)
	registerScheduleAPI(authed("/schedules"), s.deps)
	registerCounselingAPI(authed("/counseling-logs"), s.deps)
	registerAssessmentAPI(authed("/assessments"), s.deps)
	registerPaymentAPI(authed("/payments"), s.deps)
	registerTrafficAPI(authed("/traffic"), s.deps)
	registerPushAPI(authed("/push"), s.auth, s.deps)
	registerPingAPI(authed("/seo"), s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the errors that stopped the Server.
func (s *Server) Errors() <-chan error { return s.errors }

// ShutdownSignal receives the OS signals & internal requests to shut the Server down.
func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+" API!")
}
