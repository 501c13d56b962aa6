package main

import (
	"fmt"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cheggaaa/pb/v3"
	"github.com/gogpu/gogpu"
	"github.com/gogpu/gpucontext"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/spritegrid/spritegrid"
	"github.com/spritegrid/spritegrid/gpu"
	"github.com/spritegrid/spritegrid/imageutil"
)

func init() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:  "version, V",
		Usage: "print the version",
	}
}

// paletteFlags configure the sprite palette and are shared by the run
// and convert commands.
var paletteFlags = []cli.Flag{
	&cli.StringFlag{
		Name:  "sprites",
		Usage: "directory of sprite images to load, in filename order",
	},
	&cli.StringFlag{
		Name:  "glyphs",
		Usage: "characters to rasterize as glyph sprites",
	},
	&cli.StringFlag{
		Name:  "font",
		Usage: "TrueType font file for glyph sprites",
	},
	&cli.StringFlag{
		Name:  "text-color",
		Value: "#ffffff",
		Usage: "glyph fill color as #rrggbb",
	},
	&cli.StringFlag{
		Name:  "swatches",
		Usage: "image to quantize into solid color sprites",
	},
	&cli.IntFlag{
		Name:  "colors",
		Value: 8,
		Usage: "number of swatch colors to extract",
	},
	&cli.IntFlag{
		Name:  "grid-width",
		Value: 64,
		Usage: "mosaic width in cells",
	},
	&cli.IntFlag{
		Name:  "grid-height",
		Value: 48,
		Usage: "mosaic height in cells",
	},
	&cli.Float64Flag{
		Name:  "threshold",
		Value: 0.25,
		Usage: "posterization threshold",
	},
	&cli.StringFlag{
		Name:  "mode",
		Value: "color",
		Usage: "sprite matching metric: color or brightness",
	},
}

func main() {
	app := cli.NewApp()

	app.Name = "spritegrid"
	app.Usage = "Render video and images as animated sprite mosaics"
	app.Version = "1.0.0"

	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose, v",
			Usage: "increase verbosity",
		},
	}

	app.Commands = []*cli.Command{
		{
			Name:  "run",
			Usage: "Render a live mosaic in a window",
			Flags: append([]cli.Flag{
				&cli.IntFlag{
					Name:  "camera",
					Value: -1,
					Usage: "capture device id (-1 to disable)",
				},
				&cli.StringFlag{
					Name:  "video",
					Usage: "video file to play",
				},
				&cli.StringFlag{
					Name:  "image",
					Usage: "still image to display",
				},
				&cli.IntFlag{
					Name:  "width",
					Value: 960,
					Usage: "window width",
				},
				&cli.IntFlag{
					Name:  "height",
					Value: 720,
					Usage: "window height",
				},
			}, paletteFlags...),
			Action: runAction,
		},
		{
			Name:      "convert",
			Usage:     "Convert a still image to a mosaic offline",
			ArgsUsage: "INPUT OUTPUT",
			Flags:     paletteFlags,
			Action:    convertAction,
		},
		{
			Name:      "glyphs",
			Usage:     "Preview a glyph palette as a PNG strip",
			ArgsUsage: "OUTPUT",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:     "font",
					Required: true,
					Usage:    "TrueType font file",
				},
				&cli.StringFlag{
					Name:  "charset",
					Value: " .:-=+*#%@",
					Usage: "characters to rasterize",
				},
				&cli.StringFlag{
					Name:  "text-color",
					Value: "#ffffff",
					Usage: "glyph fill color as #rrggbb",
				},
				&cli.IntFlag{
					Name:  "size",
					Value: spritegrid.DefaultSpriteSize,
					Usage: "tile size in pixels",
				},
			},
			Action: glyphsAction,
		},
	}

	app.Before = func(c *cli.Context) error {
		if c.Bool("verbose") {
			log.SetLevel(log.DebugLevel)
		}
		return nil
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func parseMode(s string) (spritegrid.SelectionMode, error) {
	switch strings.ToLower(s) {
	case "color":
		return spritegrid.SelectByColor, nil
	case "brightness":
		return spritegrid.SelectByBrightness, nil
	default:
		return 0, fmt.Errorf("unknown mode %q, want color or brightness", s)
	}
}

// buildSession constructs a Session from the palette flags and fills
// its palette from the requested sources.
func buildSession(c *cli.Context) (*spritegrid.Session, error) {
	mode, err := parseMode(c.String("mode"))
	if err != nil {
		return nil, err
	}

	sess := spritegrid.NewSession(
		spritegrid.WithGridSize(c.Int("grid-width"), c.Int("grid-height")),
		spritegrid.WithThreshold(c.Float64("threshold")),
		spritegrid.WithSelectionMode(mode),
		spritegrid.WithTextColor(c.String("text-color")),
	)

	if dir := c.String("sprites"); dir != "" {
		if err := loadSpriteDir(sess, dir); err != nil {
			return nil, err
		}
	}
	if charset := c.String("glyphs"); charset != "" {
		fontPath := c.String("font")
		if fontPath == "" {
			return nil, fmt.Errorf("--glyphs requires --font")
		}
		if err := sess.AddGlyphSprites(fontPath, charset); err != nil {
			return nil, err
		}
	}
	if path := c.String("swatches"); path != "" {
		img, err := imageutil.LoadImage(path)
		if err != nil {
			return nil, err
		}
		if err := sess.LoadSwatches(img, c.Int("colors")); err != nil {
			return nil, err
		}
	}

	if sess.SpriteCount() == 0 {
		return nil, fmt.Errorf("no sprites loaded, use --sprites, --glyphs or --swatches")
	}
	return sess, nil
}

// loadSpriteDir adds every decodable image in dir as a sprite, sorted
// by filename so palette order is stable across runs.
func loadSpriteDir(sess *spritegrid.Session, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read sprite dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg", ".gif":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	bar := pb.StartNew(len(names))
	defer bar.Finish()
	for _, name := range names {
		img, err := imageutil.LoadImage(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("load sprite %s: %w", name, err)
		}
		if _, err := sess.AddSprite(name, img); err != nil {
			return fmt.Errorf("add sprite %s: %w", name, err)
		}
		bar.Increment()
	}
	return nil
}

// openSource picks the frame source from the run command's flags, in
// precedence order: camera, video, image.
func openSource(c *cli.Context) (imageutil.Source, error) {
	if id := c.Int("camera"); id >= 0 {
		return imageutil.OpenCamera(id)
	}
	if path := c.String("video"); path != "" {
		return imageutil.OpenVideo(path)
	}
	if path := c.String("image"); path != "" {
		return imageutil.OpenImage(path)
	}
	return nil, fmt.Errorf("no input, use --camera, --video or --image")
}

func runAction(c *cli.Context) error {
	sess, err := buildSession(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	source, err := openSource(c)
	if err != nil {
		return cli.Exit(err, 1)
	}
	defer source.Close()

	app := gogpu.NewApp(gogpu.DefaultConfig().
		WithTitle("spritegrid").
		WithSize(c.Int("width"), c.Int("height")).
		WithContinuousRender(false))

	var renderer *gpu.Renderer
	var animToken *gogpu.AnimationToken
	paused := false

	app.OnDraw(func(dc *gogpu.Context) {
		if renderer == nil {
			provider := app.GPUContextProvider()
			if provider == nil {
				return
			}
			r, err := gpu.NewRendererFromProvider(provider)
			if err != nil {
				log.WithError(err).Error("create renderer")
				return
			}
			renderer = r
			if err := sess.ResumeContext(renderer); err != nil {
				log.WithError(err).Error("attach renderer")
				return
			}
			animToken = app.StartAnimation()
		}

		// Window events still fire draws while paused; leave the
		// source untouched so playback resumes where it stopped.
		if paused {
			return
		}

		frame, err := source.Next()
		if err != nil {
			log.WithError(err).Warn("frame source finished")
			if animToken != nil {
				animToken.Stop()
				animToken = nil
			}
			return
		}

		sw, sh := dc.SurfaceSize()
		if err := renderer.SetSurfaceTarget(dc.SurfaceView(), sw, sh); err != nil {
			log.WithError(err).Error("bind surface")
			return
		}
		if err := sess.Frame(frame, source.Mirrored(), sw, sh); err != nil {
			log.WithError(err).Error("render frame")
		}
	})

	app.EventSource().OnKeyPress(func(key gpucontext.Key, _ gpucontext.Modifiers) {
		switch key {
		case gpucontext.KeyM:
			if sess.SelectionMode() == spritegrid.SelectByColor {
				sess.SetSelectionMode(spritegrid.SelectByBrightness)
			} else {
				sess.SetSelectionMode(spritegrid.SelectByColor)
			}
		case gpucontext.KeySpace:
			paused = !paused
			if paused {
				if animToken != nil {
					animToken.Stop()
					animToken = nil
				}
			} else {
				animToken = app.StartAnimation()
			}
		}
	})

	app.OnClose(func() {
		if animToken != nil {
			animToken.Stop()
		}
		sess.Close()
	})

	if err := app.Run(); err != nil {
		return cli.Exit(err, 1)
	}
	return nil
}

func convertAction(c *cli.Context) error {
	if c.NArg() < 2 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
	input := c.Args().Get(0)
	output := c.Args().Get(1)

	sess, err := buildSession(c)
	if err != nil {
		return cli.Exit(err, 1)
	}

	img, err := imageutil.LoadImage(input)
	if err != nil {
		return cli.Exit(err, 1)
	}

	grid, err := sess.MapFrame(img, false)
	if err != nil {
		return cli.Exit(err, 1)
	}
	out, err := spritegrid.RenderImage(sess.Atlas(), grid)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := imageutil.SavePNG(out, output); err != nil {
		return cli.Exit(err, 1)
	}

	log.WithFields(log.Fields{
		"input":  input,
		"output": output,
		"cells":  grid.Cells(),
	}).Info("converted")
	return nil
}

func glyphsAction(c *cli.Context) error {
	if c.NArg() < 1 {
		cli.ShowCommandHelpAndExit(c, c.Command.FullName(), 1)
	}
	output := c.Args().First()

	size := c.Int("size")
	gr, err := spritegrid.NewGlyphRenderer(c.String("font"), size, size)
	if err != nil {
		return cli.Exit(err, 1)
	}
	if err := gr.SetColorHex(c.String("text-color")); err != nil {
		return cli.Exit(err, 1)
	}

	sess := spritegrid.NewSession()
	charset := c.String("charset")
	tiles, err := gr.RenderString(charset)
	if err != nil {
		return cli.Exit(err, 1)
	}
	runes := []rune(charset)
	for i, tile := range tiles {
		if _, err := sess.AddSprite(string(runes[i]), tile); err != nil {
			return cli.Exit(err, 1)
		}
	}

	atlas := sess.Atlas()
	if atlas == nil {
		return cli.Exit("no glyphs rendered", 1)
	}
	if err := imageutil.SavePNG(atlas.Image, output); err != nil {
		return cli.Exit(err, 1)
	}

	log.WithFields(log.Fields{
		"glyphs": len(tiles),
		"output": output,
	}).Info("glyph palette written")
	return nil
}
