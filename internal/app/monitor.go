package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"ramwatch/internal/chart"
	"ramwatch/internal/config"
	"ramwatch/internal/controllers"
	apperrors "ramwatch/internal/errors"
	"ramwatch/internal/logging"
	"ramwatch/internal/middleware"
	"ramwatch/internal/routes"
	"ramwatch/internal/services"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

var (
	// errTerminated ends the run group after the terminate command.
	errTerminated = errors.New("terminated")
	// errInterrupted ends the run group after ctrl+c in the TUI.
	errInterrupted = errors.New("interrupted")
)

// runMonitor samples until the terminate command, a signal, or a fatal
// error in one of its components.
func (a *Application) runMonitor(ctx context.Context) error {
	cfg := a.Config
	telemetry := services.NewTelemetry()
	history := services.NewHistoryRecorder()

	var (
		display services.Renderer
		tui     *chart.TUIRenderer
	)
	if cfg.Display.Mode == config.ModeTUI {
		tui = chart.NewTUIRenderer(cfg.Display.Width, cfg.Display.Height)
		display = tui
	} else {
		display = chart.NewTerminalRenderer(a.Out, cfg.Display.Width, cfg.Display.Height, cfg.Display.Clear)
	}

	renderers := services.FanoutRenderer{display, history}

	var (
		hub    *services.WebSocketHub
		server *http.Server
	)
	if cfg.HTTP.Enabled {
		hub = services.NewWebSocketHub(a.logger)
		renderers = append(renderers, hub)
		server = &http.Server{
			Addr:              cfg.HTTP.Addr,
			Handler:           a.newRouter(telemetry, history, hub),
			ReadHeaderTimeout: 10 * time.Second,
		}
	}

	loop := services.NewSamplingLoop(a.Sampler, services.JSONCodec{}, renderers,
		services.WithInterval(cfg.Sampling.Interval),
		services.WithSampleTimeout(cfg.Sampling.SampleTimeout),
		services.WithRenderTimeout(cfg.Sampling.RenderTimeout),
		services.WithLogger(a.logger),
		services.WithTelemetry(telemetry),
	)

	a.logger.Info("monitor starting",
		logging.String("mode", cfg.Display.Mode),
		logging.Duration("interval", cfg.Sampling.Interval),
		logging.Duration("sample_timeout", cfg.Sampling.SampleTimeout),
		logging.Duration("render_timeout", cfg.Sampling.RenderTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return ignoreCancel(loop.Run(gctx))
	})

	if tui != nil {
		g.Go(func() error { return a.runTUI(gctx, tui) })
	} else {
		g.Go(func() error { return a.waitForTerminate(gctx) })
	}

	if hub != nil {
		g.Go(func() error { return ignoreCancel(hub.Run(gctx)) })
		g.Go(func() error { return a.serveHTTP(gctx, server) })
	}

	err := g.Wait()
	a.logger.Info("monitor stopped", logging.Int("samples", loop.Len()))
	if err == nil {
		// Every component returned cleanly, which only happens once the
		// parent context is done.
		return ctx.Err()
	}
	return err
}

// waitForTerminate runs the plain-mode command loop. When the input ends the
// monitor keeps sampling until it is signalled.
func (a *Application) waitForTerminate(ctx context.Context) error {
	err := services.NewCommandLoop(a.In, a.logger).Wait(ctx)
	switch {
	case err == nil:
		return errTerminated
	case errors.Is(err, apperrors.ErrInputClosed):
		a.logger.Warn("command input closed; sampling continues until interrupted")
		<-ctx.Done()
		return nil
	default:
		return ignoreCancel(err)
	}
}

func (a *Application) runTUI(ctx context.Context, tui *chart.TUIRenderer) error {
	err := tui.Run(ctx, a.In, a.Out)
	switch {
	case err == nil:
		return errTerminated
	case errors.Is(err, chart.ErrInterrupted):
		return errInterrupted
	default:
		return ignoreCancel(err)
	}
}

func (a *Application) newRouter(telemetry *services.Telemetry, history *services.HistoryRecorder, hub *services.WebSocketHub) http.Handler {
	cfg := a.Config
	gin.SetMode(gin.ReleaseMode)
	security := middleware.NewSecurityLogger(a.logger)

	deps := routes.Dependencies{
		Memory:      controllers.NewMemoryController(services.NewCachedSampler(a.Sampler, cfg.Sampling.Interval), a.logger),
		History:     controllers.NewHistoryController(history),
		Metrics:     telemetry.Handler(),
		Logger:      a.logger,
		Security:    security,
		Whitelist:   middleware.NewIPWhitelist(cfg.HTTP.AllowedIPs),
		RateLimiter: middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateBurst),
	}

	auth, err := a.authService()
	if err != nil {
		a.logger.Warn("live stream disabled", logging.Err(err))
	} else {
		deps.Stream = controllers.NewStreamController(hub, auth, history, security, a.logger)
	}
	return routes.NewRouter(deps)
}

// serveHTTP runs server until ctx is done, then shuts it down gracefully.
func (a *Application) serveHTTP(ctx context.Context, server *http.Server) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return apperrors.WrapError(err, "starting dashboard API")
	}
	a.logger.Info("dashboard API listening", logging.String("addr", ln.Addr().String()))

	serveErr := make(chan error, 1)
	go func() { serveErr <- server.Serve(ln) }()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return apperrors.WrapError(err, "serving dashboard API")
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("dashboard API shutdown", logging.Err(err))
		}
		return nil
	}
}

// authService builds the token service from the configured secret, or the
// key file when none is configured.
func (a *Application) authService() (*services.AuthService, error) {
	cfg := a.Config.Auth
	secret := cfg.Secret
	if secret == "" {
		path := cfg.SecretFile
		if path == "" {
			path = services.DefaultSecretPath()
		}
		var err error
		secret, err = services.LoadOrCreateSecret(path)
		if secret == "" {
			return nil, err
		}
		if err != nil {
			a.logger.Warn("secret key not persisted; tokens will not survive a restart", logging.Err(err))
		}
	}
	return services.NewAuthService(secret, cfg.TokenTTL)
}

// runIssueToken prints a stream token for the configured client name.
func (a *Application) runIssueToken() int {
	name := a.Config.IssueToken
	if !middleware.NewInputValidator().ValidateClientName(name) {
		fmt.Fprintf(a.ErrWriter, "%s: invalid client name %q\n", programName, name)
		return apperrors.ExitErrorConfig
	}

	auth, err := a.authService()
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "%s: %v\n", programName, err)
		return apperrors.ExitErrorGeneric
	}
	token, expiresAt, err := auth.GenerateToken(name)
	if err != nil {
		fmt.Fprintf(a.ErrWriter, "%s: %v\n", programName, err)
		return apperrors.ExitErrorGeneric
	}
	middleware.NewSecurityLogger(a.logger).LogTokenIssued(name, expiresAt)

	fmt.Fprintf(a.Out, "Token:   %s\n", token)
	fmt.Fprintf(a.Out, "Expires: %s\n", expiresAt.Format(time.RFC3339))
	fmt.Fprintf(a.Out, "Stream:  ws://%s/ws?token=%s\n", a.Config.HTTP.Addr, token)
	return apperrors.ExitSuccess
}

func ignoreCancel(err error) error {
	if apperrors.IsContextError(err) {
		return nil
	}
	return err
}
