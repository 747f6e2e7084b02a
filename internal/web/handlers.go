package web

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ironsheep/image-editor-mcp/internal/editor"
	"github.com/ironsheep/image-editor-mcp/internal/geometry"
	"github.com/ironsheep/image-editor-mcp/internal/imaging"
)

const maxThumbnailSize = 512

// withState runs fn on the session named in the path and replies with its
// state.
func (a *WebApp) withState(c *fiber.Ctx, fn func(*editor.Session) error) error {
	var st editor.State
	err := a.sessions.With(c.Params("id"), func(s *editor.Session) error {
		if err := fn(s); err != nil {
			return err
		}
		st = s.State()
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	}
	return nil
}

func (a *WebApp) handlePresets(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"presets":     editor.Presets(),
		"adjustments": editor.AdjustmentRanges(),
		"aspects":     editor.AspectModes(),
	})
}

// handleOpen accepts a multipart upload in the "image" field, a JSON body
// carrying a data URI, or the raw image bytes as the body. The aspect hint
// and output format come from the form or the query string.
func (a *WebApp) handleOpen(c *fiber.Ctx) error {
	var request struct {
		DataURI string `json:"data_uri" form:"data_uri"`
		Aspect  string `json:"aspect" form:"aspect"`
		Format  string `json:"format" form:"format"`
	}

	var data []byte
	switch ct := string(c.Request().Header.ContentType()); {
	case strings.HasPrefix(ct, fiber.MIMEMultipartForm):
		if err := c.BodyParser(&request); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		fh, err := c.FormFile("image")
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "missing image file")
		}
		f, err := fh.Open()
		if err != nil {
			return fmt.Errorf("failed to open upload: %w", err)
		}
		defer f.Close()
		if data, err = io.ReadAll(f); err != nil {
			return fmt.Errorf("failed to read upload: %w", err)
		}
	case strings.HasPrefix(ct, fiber.MIMEApplicationJSON):
		if err := parseBody(c, &request); err != nil {
			return err
		}
		raw, err := imaging.ParseDataURI(request.DataURI)
		if err != nil {
			return fmt.Errorf("%w: %w", editor.ErrLoad, err)
		}
		data = raw
	default:
		data = c.Body()
	}
	if len(data) == 0 {
		return fiber.NewError(http.StatusBadRequest, "empty image")
	}

	if request.Aspect == "" {
		request.Aspect = c.Query("aspect")
	}
	if request.Format == "" {
		request.Format = c.Query("format")
	}

	opts := a.config.Options
	if request.Format != "" {
		f, err := imaging.ParseFormat(request.Format)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		opts.Format = f
	}

	s, err := editor.Open(c.UserContext(), data, editor.AspectHint(request.Aspect), opts)
	if err != nil {
		return err
	}
	st := s.State()
	if _, err := a.sessions.Add(s); err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(st)
}

func (a *WebApp) handleState(c *fiber.Ctx) error {
	return a.withState(c, func(*editor.Session) error { return nil })
}

func (a *WebApp) handleCancel(c *fiber.Ctx) error {
	err := a.sessions.With(c.Params("id"), func(s *editor.Session) error {
		s.Cancel(c.UserContext())
		return nil
	})
	if err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

func (a *WebApp) handleBeginDrag(c *fiber.Ctx) error {
	var request struct {
		Handle string  `json:"handle"`
		X      float64 `json:"x"`
		Y      float64 `json:"y"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	h, err := editor.ParseHandle(request.Handle)
	if err != nil {
		return err
	}
	return a.withState(c, func(s *editor.Session) error {
		return s.CropEngine().BeginDrag(h, editor.Point{X: request.X, Y: request.Y})
	})
}

func (a *WebApp) handleUpdateDrag(c *fiber.Ctx) error {
	var request editor.Point
	if err := parseBody(c, &request); err != nil {
		return err
	}
	return a.withState(c, func(s *editor.Session) error {
		_, err := s.CropEngine().UpdateDrag(request)
		return err
	})
}

func (a *WebApp) handleEndDrag(c *fiber.Ctx) error {
	return a.withState(c, func(s *editor.Session) error {
		s.CropEngine().EndDrag()
		return nil
	})
}

func (a *WebApp) handleSetCrop(c *fiber.Ctx) error {
	var request geometry.Rect
	if err := parseBody(c, &request); err != nil {
		return err
	}
	return a.withState(c, func(s *editor.Session) error {
		s.CropEngine().SetCrop(request)
		return nil
	})
}

func (a *WebApp) handleSetAspect(c *fiber.Ctx) error {
	var request struct {
		Aspect string `json:"aspect"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	m, err := editor.ParseAspectMode(request.Aspect)
	if err != nil {
		return err
	}
	return a.withState(c, func(s *editor.Session) error {
		s.CropEngine().SetAspectMode(m)
		return nil
	})
}

func (a *WebApp) handleRotate(c *fiber.Ctx) error {
	var request struct {
		Direction string `json:"direction"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	var rotate func(*editor.Transform)
	switch strings.ToLower(request.Direction) {
	case "", "right":
		rotate = (*editor.Transform).RotateRight
	case "left":
		rotate = (*editor.Transform).RotateLeft
	default:
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown rotation direction %q", request.Direction))
	}
	return a.withState(c, func(s *editor.Session) error {
		rotate(s.Transform())
		return nil
	})
}

func (a *WebApp) handleFlip(c *fiber.Ctx) error {
	var request struct {
		Axis string `json:"axis"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	var flip func(*editor.Transform)
	switch strings.ToLower(request.Axis) {
	case "horizontal", "h":
		flip = (*editor.Transform).ToggleFlipH
	case "vertical", "v":
		flip = (*editor.Transform).ToggleFlipV
	default:
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown flip axis %q", request.Axis))
	}
	return a.withState(c, func(s *editor.Session) error {
		flip(s.Transform())
		return nil
	})
}

func (a *WebApp) handleApplyPreset(c *fiber.Ctx) error {
	var request struct {
		Preset string `json:"preset"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	return a.withState(c, func(s *editor.Session) error {
		return s.Pipeline().ApplyPreset(request.Preset)
	})
}

func (a *WebApp) handleSetAdjustment(c *fiber.Ctx) error {
	var request struct {
		Key   string   `json:"key"`
		Value *float64 `json:"value"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	key, err := editor.ParseAdjustmentKey(request.Key)
	if err != nil {
		return err
	}
	if request.Value == nil {
		return fiber.NewError(http.StatusBadRequest, "value is required")
	}
	return a.withState(c, func(s *editor.Session) error {
		_, err := s.Pipeline().SetAdjustment(key, *request.Value)
		return err
	})
}

// handleReset resets one part of the session, or all of it when no scope
// is given.
func (a *WebApp) handleReset(c *fiber.Ctx) error {
	var request struct {
		Scope string `json:"scope"`
	}
	if err := parseBody(c, &request); err != nil {
		return err
	}
	var reset func(*editor.Session)
	switch request.Scope {
	case "", "all":
		reset = (*editor.Session).Reset
	case "crop":
		reset = (*editor.Session).ResetCrop
	case "transform":
		reset = func(s *editor.Session) { s.Transform().Reset() }
	case "adjustments":
		reset = func(s *editor.Session) { s.Pipeline().Reset() }
	default:
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("unknown reset scope %q", request.Scope))
	}
	return a.withState(c, func(s *editor.Session) error {
		reset(s)
		return nil
	})
}

func (a *WebApp) handlePreview(c *fiber.Ctx) error {
	showCrop := c.QueryBool("crop", true)
	style := imaging.ParseOverlayStyle(c.Query("shade"), c.Query("grid"))

	var buf bytes.Buffer
	err := a.sessions.With(c.Params("id"), func(s *editor.Session) error {
		return imaging.Encode(&buf, s.Preview(showCrop, style), imaging.FormatPNG, 0)
	})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Set(fiber.HeaderContentType, imaging.FormatPNG.MimeType())
	return c.Send(buf.Bytes())
}

func (a *WebApp) handleFilterPreviews(c *fiber.Ctx) error {
	size := c.QueryInt("size", 0)
	if size < 0 || size > maxThumbnailSize {
		return fiber.NewError(http.StatusBadRequest, fmt.Sprintf("size must be 0 (default) or 1-%d", maxThumbnailSize))
	}

	type filterPreview struct {
		Preset string `json:"preset"`
		Label  string `json:"label"`
		Active bool   `json:"active"`
		*imaging.EncodedImage
	}
	var previews []filterPreview
	err := a.sessions.With(c.Params("id"), func(s *editor.Session) error {
		thumbs, err := s.PresetThumbnails(c.UserContext(), size)
		if err != nil {
			return err
		}
		for _, p := range editor.Presets() {
			enc, err := imaging.EncodeBase64(thumbs[p.Name], imaging.FormatPNG, 0)
			if err != nil {
				return err
			}
			previews = append(previews, filterPreview{
				Preset:       p.Name,
				Label:        p.Label,
				Active:       s.ActiveFilter() == p.Name,
				EncodedImage: enc,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"previews": previews})
}

// handleSave replies with the encoded image and ends the session.
func (a *WebApp) handleSave(c *fiber.Ctx) error {
	var (
		data []byte
		out  geometry.Size
		mime string
	)
	err := a.sessions.With(c.Params("id"), func(s *editor.Session) error {
		out = s.State().Output
		mime = s.Options().Format.MimeType()
		var err error
		data, err = s.Save(c.UserContext())
		return err
	})
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, mime)
	c.Set("X-Image-Width", strconv.Itoa(out.W))
	c.Set("X-Image-Height", strconv.Itoa(out.H))
	return c.Send(data)
}
