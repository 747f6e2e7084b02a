// Package web serves editing sessions over HTTP for browser front ends.
package web

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

// maxUploadBytes bounds request bodies; uploads arrive whole.
const maxUploadBytes = 64 << 20

type Config struct {
	Addr        string
	CORSOrigins []string
	Options     editor.Options

	// Store is shared with other transports when set.
	Store *editor.Store

	OnReady          func(addr string)
	OnBeforeShutdown func()
}

type WebApp struct {
	config   Config
	sessions *editor.Store
	app      *fiber.App
}

func NewWebApp(config Config) *WebApp {
	if config.Store == nil {
		config.Store = editor.NewStore()
	}
	a := &WebApp{
		config:   config,
		sessions: config.Store,
	}

	a.app = fiber.New(fiber.Config{
		Immutable:             true,
		DisableStartupMessage: true,
		BodyLimit:             maxUploadBytes,
		ErrorHandler:          errorHandler,
	})

	a.app.Hooks().OnListen(func(listen fiber.ListenData) error {
		if fn := a.config.OnReady; fn != nil {
			fn(fmt.Sprintf("http://%s:%s", listen.Host, listen.Port))
		}
		return nil
	})

	a.app.Use(adaptor.HTTPMiddleware(cors.New(cors.Options{
		AllowedOrigins: config.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
		ExposedHeaders: []string{"X-Image-Width", "X-Image-Height"},
	}).Handler))

	a.app.Use(func(c *fiber.Ctx) error {
		logger := log.With().Str("method", c.Method()).Str("path", c.Path()).Logger()
		c.SetUserContext(logger.WithContext(c.UserContext()))
		return c.Next()
	})

	a.routes()
	return a
}

func (a *WebApp) routes() {
	api := a.app.Group("/api")
	api.Get("/presets", a.handlePresets)

	api.Post("/sessions", a.handleOpen)
	s := api.Group("/sessions/:id")
	s.Get("/", a.handleState)
	s.Delete("/", a.handleCancel)
	s.Post("/drag/begin", a.handleBeginDrag)
	s.Post("/drag/update", a.handleUpdateDrag)
	s.Post("/drag/end", a.handleEndDrag)
	s.Post("/crop", a.handleSetCrop)
	s.Post("/aspect", a.handleSetAspect)
	s.Post("/rotate", a.handleRotate)
	s.Post("/flip", a.handleFlip)
	s.Post("/preset", a.handleApplyPreset)
	s.Post("/adjust", a.handleSetAdjustment)
	s.Post("/reset", a.handleReset)
	s.Get("/preview", a.handlePreview)
	s.Get("/filters", a.handleFilterPreviews)
	s.Post("/save", a.handleSave)
}

// Run listens on the configured address until ctx is cancelled. Idle
// sessions are expired in the background while it runs.
func (a *WebApp) Run(ctx context.Context) error {
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sessions.Run(sweepCtx)

	go func() {
		<-ctx.Done()
		if fn := a.config.OnBeforeShutdown; fn != nil {
			fn()
		}
		if err := a.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			log.Ctx(ctx).Error().Err(err).Msg("Failed to shutdown web application")
		}
	}()

	listener, err := net.Listen("tcp", a.config.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	if err := a.app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// statusFor maps editor errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, editor.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, editor.ErrSessionNotFound), errors.Is(err, editor.ErrSessionClosed):
		return http.StatusNotFound
	case errors.Is(err, editor.ErrDragActive), errors.Is(err, editor.ErrNoDrag), errors.Is(err, editor.ErrPrecondition):
		return http.StatusConflict
	case errors.Is(err, editor.ErrLoad):
		return http.StatusUnprocessableEntity
	case errors.Is(err, editor.ErrUnknownHint),
		errors.Is(err, editor.ErrUnknownHandle),
		errors.Is(err, editor.ErrUnknownAspect),
		errors.Is(err, editor.ErrUnknownPreset),
		errors.Is(err, editor.ErrUnknownAdjustment):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		if fiberErr.Code >= http.StatusInternalServerError {
			log.Ctx(c.UserContext()).Error().Err(err).Msg("Request failed")
		}
		return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
	}

	code := statusFor(err)
	if code == http.StatusInternalServerError {
		log.Ctx(c.UserContext()).Error().Err(err).Msg("Request failed")
		return c.Status(code).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	log.Ctx(c.UserContext()).Debug().Err(err).Int("status", code).Msg("Request rejected")
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}
