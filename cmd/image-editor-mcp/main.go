package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/image-editor-mcp/internal/config"
	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/geometry"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
	"github.com/ironsheep/image-editor-mcp/internal/server"
	"github.com/ironsheep/image-editor-mcp/internal/web"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Send()
	}
}

type cliArgs struct {
	Verbose bool   `help:"Enable debug logging" short:"v"`
	EnvFile string `help:"Environment file to load" default:".env" type:"path"`

	Serve   serveCmd   `cmd:"" default:"1" help:"Serve editing tools over MCP on stdin/stdout"`
	Web     webCmd     `cmd:"" help:"Serve editing sessions over HTTP"`
	Edit    editCmd    `cmd:"" help:"Apply edits to an image file and save the result"`
	Version versionCmd `cmd:"" help:"Print version information"`
}

// runtime is what every command receives after configuration is loaded.
type runtime struct {
	ctx context.Context
	cfg config.Config
}

func run() error {
	var args cliArgs
	cliCtx := kong.Parse(
		&args,
		kong.Name("image-editor-mcp"),
		kong.Description("Interactive image editing: crop, rotate, flip and filter images over MCP, HTTP or the command line."),
		kong.UsageOnError(),
	)

	// stdout carries MCP traffic and edit output; logs go to stderr.
	log.Logger = log.Output(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) {
		w.Out = os.Stderr
	}))
	zerolog.DefaultContextLogger = &log.Logger

	config.LoadDotEnv(args.EnvFile)
	cfg := config.LoadConfig()

	level := cfg.LogLevel
	if args.Verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)

	return cliCtx.Run(&runtime{ctx: ctx, cfg: cfg})
}

type serveCmd struct{}

func (cmd *serveCmd) Run(rt *runtime) error {
	log.Ctx(rt.ctx).Debug().
		Str("version", Version).
		Str("built", BuildTime).
		Str("commit", GitCommit).
		Msg("Image editor MCP server starting")

	srv := server.New(rt.cfg.EditorOptions(),
		server.WithVersion(Version),
		server.WithStore(editor.NewStore(rt.cfg.StoreOptions()...)),
	)
	return srv.Run(rt.ctx)
}

type webCmd struct {
	Addr string `help:"Listen address (defaults to IMAGE_EDITOR_HTTP_ADDR)"`
}

func (cmd *webCmd) Run(rt *runtime) error {
	addr := cmd.Addr
	if addr == "" {
		addr = rt.cfg.HTTPAddr
	}

	app := web.NewWebApp(web.Config{
		Addr:        addr,
		CORSOrigins: rt.cfg.CORSOrigins,
		Options:     rt.cfg.EditorOptions(),
		Store:       editor.NewStore(rt.cfg.StoreOptions()...),
		OnReady: func(addr string) {
			log.Ctx(rt.ctx).Info().Msgf("Server started at %s", addr)
		},
		OnBeforeShutdown: func() {
			log.Ctx(rt.ctx).Info().Msg("Shutting down web application...")
		},
	})
	return app.Run(rt.ctx)
}

type editCmd struct {
	Input  string `arg:"" help:"Image to edit" type:"existingfile"`
	Output string `arg:"" help:"Where to write the result" type:"path"`

	Hint    string             `help:"Opening crop: none, profile (1:1) or cover (16:9)" default:"none" enum:"none,profile,cover"`
	Aspect  string             `help:"Aspect mode: free, 1:1, 4:3, 16:9 or 3:4"`
	Crop    string             `help:"Crop rectangle in display space as x,y,w,h"`
	Rotate  int                `help:"Clockwise rotation in degrees, a multiple of 90"`
	FlipH   bool               `help:"Mirror left to right" name:"flip-h"`
	FlipV   bool               `help:"Mirror top to bottom" name:"flip-v"`
	Preset  string             `help:"Filter preset to apply"`
	Set     map[string]float64 `help:"Adjustment overrides as key=value, applied after the preset"`
	Format  string             `help:"Output format (jpeg or png); inferred from the output name when empty"`
	Quality int                `help:"JPEG quality (1-100); defaults to IMAGE_EDITOR_JPEG_QUALITY"`
}

func parseCrop(s string) (geometry.Rect, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return geometry.Rect{}, fmt.Errorf("crop must be x,y,w,h: %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return geometry.Rect{}, fmt.Errorf("crop must be x,y,w,h: %q", s)
		}
		v[i] = n
	}
	return geometry.Rect{X: v[0], Y: v[1], W: v[2], H: v[3]}, nil
}

// apply replays the command's edits on s in the order the editor UI offers
// them: crop, transform, then adjustments.
func (cmd *editCmd) apply(s *editor.Session) error {
	if cmd.Aspect != "" {
		m, err := editor.ParseAspectMode(cmd.Aspect)
		if err != nil {
			return err
		}
		s.CropEngine().SetAspectMode(m)
	}
	if cmd.Crop != "" {
		r, err := parseCrop(cmd.Crop)
		if err != nil {
			return err
		}
		s.CropEngine().SetCrop(r)
	}

	if cmd.Rotate%90 != 0 {
		return fmt.Errorf("rotation must be a multiple of 90, got %d", cmd.Rotate)
	}
	for i := 0; i < ((cmd.Rotate/90)%4+4)%4; i++ {
		s.Transform().RotateRight()
	}
	if cmd.FlipH {
		s.Transform().ToggleFlipH()
	}
	if cmd.FlipV {
		s.Transform().ToggleFlipV()
	}

	if cmd.Preset != "" {
		if err := s.Pipeline().ApplyPreset(cmd.Preset); err != nil {
			return err
		}
	}
	for k, v := range cmd.Set {
		key, err := editor.ParseAdjustmentKey(k)
		if err != nil {
			return err
		}
		if _, err := s.Pipeline().SetAdjustment(key, v); err != nil {
			return err
		}
	}
	return nil
}

func (cmd *editCmd) Run(rt *runtime) error {
	opts := rt.cfg.EditorOptions()
	format := cmd.Format
	if format == "" {
		format = strings.TrimPrefix(filepath.Ext(cmd.Output), ".")
	}
	f, err := imaging.ParseFormat(format)
	if err != nil {
		return err
	}
	opts.Format = f
	if cmd.Quality != 0 {
		opts.JPEGQuality = cmd.Quality
	}

	data, err := os.ReadFile(cmd.Input)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	s, err := editor.Open(rt.ctx, data, editor.AspectHint(cmd.Hint), opts)
	if err != nil {
		return err
	}
	if err := cmd.apply(s); err != nil {
		return err
	}

	st := s.State()
	out, err := s.Save(rt.ctx)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cmd.Output, out, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	log.Ctx(rt.ctx).Info().
		Str("output", cmd.Output).
		Stringer("size", st.Output).
		Str("filter", st.ActiveFilter).
		Str("css", st.FilterCSS).
		Msg("Image saved")
	return nil
}

type versionCmd struct{}

func (cmd *versionCmd) Run() error {
	fmt.Printf("image-editor-mcp %s\n", Version)
	fmt.Printf("  Build time: %s\n", BuildTime)
	fmt.Printf("  Git commit: %s\n", GitCommit)
	return nil
}
