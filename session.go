package spritegrid

import (
	"image"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/spritegrid/spritegrid/imageutil"
)

// ThrottleCellCount is the grid size above which frame mapping drops to
// roughly 30fps. Mapping cost grows with cell count; past a quarter
// million cells a 60fps source outruns the mapper on typical hardware.
const ThrottleCellCount = 250000

// throttleInterval is the minimum spacing between mapped frames while
// the throttle is active.
const throttleInterval = 33 * time.Millisecond

// FrameRenderer is the drawing backend a Session presents through. The
// GPU implementation lives in the gpu package; tests substitute a fake
// so the full pipeline runs without a device.
type FrameRenderer interface {
	// UploadAtlas replaces the backend's atlas texture. The previous
	// texture must stay usable until the new one is live.
	UploadAtlas(atlas *Atlas) error
	// Draw renders one grid into the viewport region of the current
	// output surface.
	Draw(grid *Grid, atlas *Atlas, viewport Viewport) error
	// Release frees every backend resource. The Session calls this when
	// the rendering context is lost or the session closes.
	Release()
}

// Session owns the full mosaic pipeline for one output surface: the
// sprite palette, the built atlas, the selector, the grid mapper and the
// attached renderer. All methods are safe for concurrent use; a single
// mutex serializes palette edits against frame mapping so a frame never
// observes a half-rebuilt atlas.
type Session struct {
	mu sync.Mutex

	// Configuration, fixed by options at construction except where a
	// setter exists.
	gridW, gridH int
	threshold    float64
	maxTexture   int
	textColor    string
	logger       *log.Logger

	palette  *Palette
	atlas    *Atlas
	selector Selector
	mapper   *GridMapper
	grid     *Grid

	renderer  FrameRenderer
	suspended bool

	fps       *FPSMeter
	lastFrame time.Time
	now       func() time.Time
}

// SessionOption is a functional option for configuring a Session.
type SessionOption func(*Session)

// NewSession creates a Session with the given options.
// Defaults: 64x48 grid, threshold 0.25, color selection, white glyph
// text, DefaultMaxTextureSize atlas cap and the standard logger.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		gridW:      64,
		gridH:      48,
		threshold:  0.25,
		maxTexture: DefaultMaxTextureSize,
		textColor:  "#ffffff",
		logger:     log.StandardLogger(),
		palette:    NewPalette(),
		selector:   ColorSelector{},
		mapper:     NewGridMapper(),
		fps:        NewFPSMeter(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.grid = NewGrid(s.gridW, s.gridH)
	return s
}

// WithGridSize sets the mosaic dimensions in cells.
func WithGridSize(w, h int) SessionOption {
	return func(s *Session) {
		if w > 0 && h > 0 {
			s.gridW, s.gridH = w, h
		}
	}
}

// WithThreshold sets the posterization threshold. The quantization
// level count is the sprite count scaled by this factor, never below 2.
// Non-positive values are ignored.
func WithThreshold(t float64) SessionOption {
	return func(s *Session) {
		if t > 0 {
			s.threshold = t
		}
	}
}

// WithSelectionMode sets the initial sprite matching metric.
func WithSelectionMode(mode SelectionMode) SessionOption {
	return func(s *Session) {
		s.selector = NewSelector(mode)
	}
}

// WithTextColor sets the glyph sprite fill color as a "#rrggbb" string.
func WithTextColor(hex string) SessionOption {
	return func(s *Session) {
		s.textColor = hex
	}
}

// WithMaxTextureSize caps atlas pixel dimensions to the device limit.
func WithMaxTextureSize(max int) SessionOption {
	return func(s *Session) {
		if max > 0 {
			s.maxTexture = max
		}
	}
}

// WithLogger routes session logging to a specific logger.
func WithLogger(l *log.Logger) SessionOption {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithFrameRenderer attaches the drawing backend at construction.
func WithFrameRenderer(r FrameRenderer) SessionOption {
	return func(s *Session) {
		s.renderer = r
	}
}

// GridSize returns the mosaic dimensions in cells.
func (s *Session) GridSize() (w, h int) { return s.gridW, s.gridH }

// TextColor returns the configured glyph fill color string.
func (s *Session) TextColor() string { return s.textColor }

// AddSprite normalizes img, appends it to the palette and rebuilds the
// atlas. The returned id identifies the sprite for RemoveSprite. Adding
// beyond the palette capacity fails with a PaletteFullError, and a
// failed rebuild rolls the add back, so the palette and atlas stay
// consistent either way.
func (s *Session) AddSprite(name string, img image.Image) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, err := s.palette.Add(img, name, false)
	if err != nil {
		return 0, err
	}
	if err := s.rebuildLocked(); err != nil {
		s.palette.Remove(entry.ID)
		return 0, err
	}
	return entry.ID, nil
}

// AddGlyphSprites rasterizes each rune of charset with the font at
// fontPath and adds the tiles as generated sprites. The add is all or
// nothing: a render failure, a capacity overflow or a failed rebuild
// leaves the palette as it was.
func (s *Session) AddGlyphSprites(fontPath, charset string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	runes := []rune(charset)
	if s.palette.Len()+len(runes) > MaxSprites {
		return &PaletteFullError{Cap: MaxSprites}
	}

	w, h := s.palette.SpriteSize()
	if w == 0 {
		w, h = DefaultSpriteSize, DefaultSpriteSize
	}
	gr, err := NewGlyphRenderer(fontPath, w, h)
	if err != nil {
		return err
	}
	if err := gr.SetColorHex(s.textColor); err != nil {
		return err
	}

	// Render every tile before touching the palette.
	tiles := make([]*image.RGBA, len(runes))
	for i, r := range runes {
		tile, err := gr.Render(r)
		if err != nil {
			return err
		}
		tiles[i] = tile
	}

	ids := make([]int64, 0, len(runes))
	rollback := func() {
		for _, id := range ids {
			s.palette.Remove(id)
		}
	}
	for i, tile := range tiles {
		entry, err := s.palette.Add(tile, string(runes[i]), true)
		if err != nil {
			rollback()
			return err
		}
		ids = append(ids, entry.ID)
	}
	if err := s.rebuildLocked(); err != nil {
		rollback()
		return err
	}
	return nil
}

// LoadSwatches quantizes img to n dominant colors and adds them as
// solid sprites. A failed rebuild removes the swatches again.
func (s *Session) LoadSwatches(img image.Image, n int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entries, err := s.palette.FromImage(img, n)
	if err != nil {
		return err
	}
	if err := s.rebuildLocked(); err != nil {
		for _, e := range entries {
			s.palette.Remove(e.ID)
		}
		return err
	}
	return nil
}

// RemoveSprite deletes a sprite by id and rebuilds the atlas. Removing
// an unknown id is a no-op.
func (s *Session) RemoveSprite(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.palette.Remove(id) {
		return nil
	}
	if s.palette.Len() == 0 {
		s.atlas = nil
		return nil
	}
	return s.rebuildLocked()
}

// ClearSprites empties the palette and drops the atlas. The session
// goes idle until enough sprites are added again.
func (s *Session) ClearSprites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.palette.Clear()
	s.atlas = nil
}

// SpriteCount returns the current palette size.
func (s *Session) SpriteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette.Len()
}

// Sprites returns a snapshot of the palette entries in index order.
func (s *Session) Sprites() []*SpriteEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.palette.Sprites()
}

// SetSelectionMode switches the matching metric. The swap is just a
// selector replacement; the atlas already carries both color and
// luminance statistics so no rebuild or re-upload happens.
func (s *Session) SetSelectionMode(mode SelectionMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selector.Mode() == mode {
		return
	}
	s.selector = NewSelector(mode)
	s.logger.WithField("mode", mode.String()).Info("selection mode changed")
}

// SelectionMode returns the active matching metric.
func (s *Session) SelectionMode() SelectionMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selector.Mode()
}

// SetThreshold changes the posterization threshold for subsequent
// frames. Non-positive values are ignored.
func (s *Session) SetThreshold(t float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t > 0 {
		s.threshold = t
	}
}

// rebuildLocked builds a fresh atlas from the palette and pushes it to
// the attached renderer. The caller holds s.mu.
//
// Rebuilds are last-writer-wins: an atlas built from an older palette
// generation never replaces one built from a newer generation.
func (s *Session) rebuildLocked() error {
	atlas, err := BuildAtlas(s.palette, s.maxTexture)
	if err != nil {
		return err
	}
	if s.atlas != nil && atlas.Generation < s.atlas.Generation {
		return nil
	}
	s.atlas = atlas
	if s.renderer != nil && !s.suspended {
		if err := s.renderer.UploadAtlas(atlas); err != nil {
			return err
		}
	}
	return nil
}

// RebuildAtlas forces an atlas rebuild and re-upload from the current
// palette.
func (s *Session) RebuildAtlas() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rebuildLocked()
}

// Frame runs the full per-frame pipeline: downsample src to the grid
// dimensions (mirroring if asked), posterize and match every cell, then
// draw the batch letterboxed into a surfaceW by surfaceH output.
//
// Frame returns ErrPaletteTooSmall while the palette holds fewer than
// MinSprites entries, ErrContextLost while suspended, and ErrNoAtlas if
// no atlas has been built. Oversized grids are throttled: when the cell
// count exceeds ThrottleCellCount, frames arriving within 33ms of the
// previous mapped frame are skipped without error.
func (s *Session) Frame(src image.Image, mirrored bool, surfaceW, surfaceH int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.suspended {
		return ErrContextLost
	}
	if err := s.palette.ReadyToRender(); err != nil {
		return err
	}
	if s.atlas == nil {
		return ErrNoAtlas
	}

	now := s.now()
	if s.grid.Cells() > ThrottleCellCount && !s.lastFrame.IsZero() && now.Sub(s.lastFrame) < throttleInterval {
		return nil
	}
	s.lastFrame = now

	small := imageutil.Downsample(src, s.gridW, s.gridH, mirrored)
	levels := PosterizeLevels(s.palette.Len(), s.threshold)
	if err := s.mapper.Map(s.grid, small, s.atlas.Stats, s.selector, levels, s.atlas.Generation); err != nil {
		return err
	}
	s.grid.ClampIndices(s.atlas.Len())

	if s.renderer != nil {
		vp := FitViewport(surfaceW, surfaceH, s.gridW, s.gridH)
		if err := s.renderer.Draw(s.grid, s.atlas, vp); err != nil {
			return err
		}
		s.fps.Tick()
	}
	return nil
}

// MapFrame runs the downsample and selection stages only, returning a
// copy of the resulting grid. The convert command pairs this with
// RenderImage for offline output.
func (s *Session) MapFrame(src image.Image, mirrored bool) (*Grid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.palette.ReadyToRender(); err != nil {
		return nil, err
	}
	if s.atlas == nil {
		return nil, ErrNoAtlas
	}

	small := imageutil.Downsample(src, s.gridW, s.gridH, mirrored)
	levels := PosterizeLevels(s.palette.Len(), s.threshold)
	g := NewGrid(s.gridW, s.gridH)
	if err := s.mapper.Map(g, small, s.atlas.Stats, s.selector, levels, s.atlas.Generation); err != nil {
		return nil, err
	}
	g.ClampIndices(s.atlas.Len())
	return g, nil
}

// Atlas returns the current atlas, or nil before the first build.
func (s *Session) Atlas() *Atlas {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.atlas
}

// SuspendContext tears down the rendering backend after a context loss.
// CPU-side state, the palette, atlas image and statistics, survives;
// frames fail with ErrContextLost until ResumeContext.
func (s *Session) SuspendContext() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.suspended {
		return
	}
	s.suspended = true
	if s.renderer != nil {
		s.renderer.Release()
	}
	s.logger.Warn("rendering context suspended")
}

// ResumeContext attaches a fresh backend after a context loss and
// re-uploads the atlas. Rendering resumes on the next Frame call.
func (s *Session) ResumeContext(r FrameRenderer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.renderer = r
	s.suspended = false
	if s.atlas != nil && r != nil {
		if err := r.UploadAtlas(s.atlas); err != nil {
			return err
		}
	}
	s.logger.Info("rendering context resumed")
	return nil
}

// Close releases the backend. The session cannot be reused afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.renderer != nil {
		s.renderer.Release()
		s.renderer = nil
	}
}

// FPS reports the sampled presentation rate.
func (s *Session) FPS() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fps.Rate()
}

// CacheStats returns selection cache hit and miss counts.
func (s *Session) CacheStats() (hits, misses uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapper.cache.stats()
}
