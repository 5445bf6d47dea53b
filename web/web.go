// Package web assembles the HTTP server: middleware, session store,
// controllers and background jobs.
package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/JosKno/CapaIntermedia/config"
	"github.com/JosKno/CapaIntermedia/logger"
	"github.com/JosKno/CapaIntermedia/util/common"
	"github.com/JosKno/CapaIntermedia/util/photo"
	"github.com/JosKno/CapaIntermedia/util/random"
	"github.com/JosKno/CapaIntermedia/web/cache"
	"github.com/JosKno/CapaIntermedia/web/controller"
	"github.com/JosKno/CapaIntermedia/web/entity"
	"github.com/JosKno/CapaIntermedia/web/job"
	"github.com/JosKno/CapaIntermedia/web/locale"
	"github.com/JosKno/CapaIntermedia/web/middleware"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

const (
	SessionCookie = "capa_session"
	// maxBodySize leaves room for the form fields around a full size photo.
	maxBodySize = photo.MaxUploadSize + 1<<20
)

// Server is the HTTP API server together with its scheduled jobs.
type Server struct {
	httpServer *http.Server
	listener   net.Listener

	index *controller.IndexController
	user  *controller.UserController
	admin *controller.UserAdminController

	cron *cron.Cron

	ctx    context.Context
	cancel context.CancelFunc
}

// NewServer creates a new web server instance with a cancellable context.
func NewServer() *Server {
	ctx, cancel := context.WithCancel(context.Background())
	return &Server{ctx: ctx, cancel: cancel}
}

func newSessionStore() sessions.Store {
	secret := config.GetSessionSecret()
	if secret == "" {
		logger.Warning("CAPA_SESSION_SECRET is not set, sessions will not survive a restart")
		secret = random.Seq(32)
	}
	store := cache.NewRedisStore(cache.GetClient(), []byte(secret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   config.GetSessionMaxAge() * 60,
		HttpOnly: true,
		Secure:   config.IsSecureCookie(),
		SameSite: http.SameSiteLaxMode,
	})
	return store
}

// initRouter initializes Gin, registers middleware and controllers and
// returns the configured engine. cache.InitRedis must have been called.
func (s *Server) initRouter() *gin.Engine {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.Default()
	engine.HandleMethodNotAllowed = true

	engine.Use(middleware.RequestID())
	if domain := config.GetDomain(); domain != "" {
		engine.Use(middleware.DomainValidatorMiddleware(domain))
	}
	// photos are already compressed
	engine.Use(gzip.Gzip(
		gzip.DefaultCompression,
		gzip.WithExcludedPaths([]string{"/api/photo/"}),
	))
	engine.Use(sessions.Sessions(SessionCookie, newSessionStore()))
	engine.Use(locale.LocalizerMiddleware())
	engine.Use(middleware.AuditMiddleware())
	engine.Use(middleware.RedirectMiddleware())

	api := engine.Group("/api", middleware.BodyLimit(maxBodySize))
	s.index = controller.NewIndexController(api)
	s.user = controller.NewUserController(api)
	s.admin = controller.NewUserAdminController(api)

	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, entity.Msg{Message: locale.I18n(c, "request.methodNotAllowed")})
	})
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, entity.Msg{Message: locale.I18n(c, "request.notFound")})
	})

	return engine
}

func (s *Server) startTask() {
	if _, err := s.cron.AddJob("@every 1h", job.NewCheckpointJob()); err != nil {
		logger.Warning("Add checkpoint job failed:", err)
	}
}

// Start connects the cache, binds the listener and serves in the background.
func (s *Server) Start() (err error) {
	defer func() {
		if err != nil {
			_ = s.Stop()
		}
	}()

	if err = cache.InitRedis(config.GetRedisAddr()); err != nil {
		return err
	}
	if cache.IsEmbedded() {
		logger.Info("Using embedded Redis for sessions and rate limiting")
	}

	s.cron = cron.New(cron.WithSeconds())
	s.cron.Start()

	engine := s.initRouter()

	listenAddr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return err
	}
	logger.Info("Web server running HTTP on", listener.Addr())

	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("web server stopped:", err)
		}
	}()

	s.startTask()
	return nil
}

// Stop shuts the server down and releases the cache connection.
func (s *Server) Stop() error {
	s.cancel()
	if s.cron != nil {
		s.cron.Stop()
	}
	var err1, err2 error
	if s.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err1 = s.httpServer.Shutdown(ctx)
	}
	err2 = cache.Close()
	return common.Combine(err1, err2)
}

// GetCtx returns the server's context.
func (s *Server) GetCtx() context.Context { return s.ctx }
