package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"go.uber.org/multierr"

	"github.com/ironsheep/arbook-tracker/internal/book"
	"github.com/ironsheep/arbook-tracker/internal/geometry"
	"github.com/ironsheep/arbook-tracker/internal/imaging"
	"github.com/ironsheep/arbook-tracker/internal/tracker"
)

// ErrNoBook is returned by book tools before book_open succeeded.
var ErrNoBook = errors.New("no book is open")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		s.logger.Warn("tool failed", "tool", params.Name, "error", err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	case "book_open":
		return s.handleBookOpen(args)
	case "book_media":
		return s.handleBookMedia(args)

	case "training_add":
		return s.handleTrainingAdd(args)
	case "training_finalize":
		return s.handleTrainingFinalize()
	case "training_clear":
		return s.handleTrainingClear()

	case "frame_process":
		return s.handleFrameProcess(args)
	case "frame_annotate":
		return s.handleFrameAnnotate(args)
	case "frame_crop_page":
		return s.handleFrameCropPage(args)
	case "tracker_status":
		return s.handleTrackerStatus()

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Book Handlers ===

type pathArgs struct {
	Path string `json:"path"`
}

type bookOpenResult struct {
	book.Summary
	Registered []tracker.TrainingInfo `json:"registered"`
	Errors     []string               `json:"errors,omitempty"`
}

func (s *Server) handleBookOpen(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	b, err := book.Open(a.Path)
	if err != nil {
		return nil, err
	}
	s.cache.Clear()
	loadErr := b.LoadInto(s.tracker, s.cache)
	s.book = b

	res := bookOpenResult{Summary: b.Summary(), Registered: s.tracker.Images()}
	for _, e := range multierr.Errors(loadErr) {
		res.Errors = append(res.Errors, e.Error())
	}
	s.logger.Info("book opened", "title", b.Title, "pages", len(res.Registered), "errors", len(res.Errors))
	return res, nil
}

type bookMediaArgs struct {
	Page int `json:"page"`
}

type mediaResult struct {
	Page  int    `json:"page"`
	Image string `json:"image,omitempty"`
	Sound string `json:"sound,omitempty"`
	Video string `json:"video,omitempty"`
}

func (s *Server) mediaFor(page int) *mediaResult {
	if s.book == nil || page == tracker.NoPage {
		return nil
	}
	m := &mediaResult{Page: page}
	m.Image, _ = s.book.ImagePath(page)
	m.Sound, _ = s.book.AudioPath(page)
	m.Video, _ = s.book.VideoPath(page)
	return m
}

func (s *Server) handleBookMedia(args json.RawMessage) (interface{}, error) {
	var a bookMediaArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if s.book == nil {
		return nil, ErrNoBook
	}
	return s.mediaFor(a.Page), nil
}

// === Training Handlers ===

type trainingAddArgs struct {
	Path string `json:"path"`
	Page *int   `json:"page"`
}

func (s *Server) handleTrainingAdd(args json.RawMessage) (interface{}, error) {
	var a trainingAddArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Page == nil {
		return nil, fmt.Errorf("page is required")
	}
	frame, err := s.cache.LoadFrame(a.Path)
	if err != nil {
		return nil, err
	}
	if err := s.tracker.Register(frame, *a.Page); err != nil {
		return nil, err
	}
	return s.tracker.Image(s.tracker.Len() - 1).Info(), nil
}

type trainingResult struct {
	Ready  bool                   `json:"ready"`
	Images []tracker.TrainingInfo `json:"images"`
}

func (s *Server) handleTrainingFinalize() (interface{}, error) {
	s.tracker.Finalize()
	return trainingResult{Ready: s.tracker.Ready(), Images: s.tracker.Images()}, nil
}

func (s *Server) handleTrainingClear() (interface{}, error) {
	s.tracker.Clear()
	s.cache.Clear()
	return trainingResult{Ready: s.tracker.Ready(), Images: s.tracker.Images()}, nil
}

// === Recognition Handlers ===

type eulerAngles struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type frameResult struct {
	tracker.Result
	Width  int          `json:"width"`
	Height int          `json:"height"`
	Euler  *eulerAngles `json:"euler,omitempty"`
	Media  *mediaResult `json:"media,omitempty"`
}

func (s *Server) process(path string) (imaging.Frame, frameResult, error) {
	frame, err := imaging.LoadFrame(path)
	if err != nil {
		return imaging.Frame{}, frameResult{}, err
	}
	res := s.tracker.ProcessFrame(frame)
	out := frameResult{Result: res, Width: frame.Width, Height: frame.Height}
	if res.Found {
		x, y, z := res.EulerAngles()
		out.Euler = &eulerAngles{X: x, Y: y, Z: z}
		out.Media = s.mediaFor(res.Page)
	}
	return frame, out, nil
}

func (s *Server) handleFrameProcess(args json.RawMessage) (interface{}, error) {
	var a pathArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	_, res, err := s.process(a.Path)
	if err != nil {
		return nil, err
	}
	return res, nil
}

type frameAnnotateArgs struct {
	Path          string `json:"path"`
	Color         string `json:"color"`
	MaxSize       int    `json:"max_size"`
	ShowKeypoints bool   `json:"show_keypoints"`
}

type annotateResult struct {
	*imaging.OverlayResult
	Recognition frameResult `json:"recognition"`
}

func (s *Server) handleFrameAnnotate(args json.RawMessage) (interface{}, error) {
	var a frameAnnotateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	frame, res, err := s.process(a.Path)
	if err != nil {
		return nil, err
	}

	var anns []imaging.Annotation
	if res.Found || a.ShowKeypoints {
		ann := imaging.Annotation{Page: tracker.NoPage}
		if res.Found {
			ann.Page = res.Page
			ann.Center = res.Center.Point()
			for i, c := range res.Corners {
				ann.Corners[i] = c.Round()
			}
		}
		if a.ShowKeypoints {
			ann.Keypoints = s.frameKeypoints(frame)
		}
		anns = append(anns, ann)
	}

	overlay, err := imaging.DrawOverlay(frame.Image(), anns, imaging.OverlayOptions{
		Color:   a.Color,
		MaxSize: a.MaxSize,
	})
	if err != nil {
		return nil, err
	}
	return annotateResult{OverlayResult: overlay, Recognition: res}, nil
}

// frameKeypoints detects keypoints the way the tracker does and maps them
// back to frame pixels.
func (s *Server) frameKeypoints(frame imaging.Frame) []image.Point {
	gray := imaging.ResizeShortSide(imaging.ToGray(frame), s.tracker.Params().QuerySize)
	b := gray.Bounds()
	sx := float64(frame.Width) / float64(b.Dx())
	sy := float64(frame.Height) / float64(b.Dy())

	kps := s.tracker.Provider().Detect(gray)
	pts := make([]image.Point, len(kps))
	for i, kp := range kps {
		pts[i] = geometry.Pt(kp.X, kp.Y).Scale(sx, sy).Round()
	}
	return pts
}

type frameCropArgs struct {
	Path   string  `json:"path"`
	Margin int     `json:"margin"`
	Scale  float64 `json:"scale"`
}

type cropResult struct {
	*imaging.CropResult
	Recognition frameResult `json:"recognition"`
}

func (s *Server) handleFrameCropPage(args json.RawMessage) (interface{}, error) {
	var a frameCropArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Margin < 0 {
		return nil, fmt.Errorf("margin must not be negative, got %d", a.Margin)
	}
	frame, res, err := s.process(a.Path)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return cropResult{Recognition: res}, nil
	}

	var corners [4]image.Point
	for i, c := range res.Corners {
		corners[i] = c.Round()
	}
	crop, err := imaging.Crop(frame.Image(), imaging.QuadBounds(corners, a.Margin), a.Scale)
	if err != nil {
		return nil, err
	}
	return cropResult{CropResult: crop, Recognition: res}, nil
}

type predictionStatus struct {
	Page      int `json:"page"`
	Index     int `json:"index"`
	Remaining int `json:"remaining"`
}

type statusResult struct {
	Provider   string                 `json:"provider"`
	Ready      bool                   `json:"ready"`
	Params     tracker.Params         `json:"params"`
	Images     []tracker.TrainingInfo `json:"images"`
	Prediction *predictionStatus      `json:"prediction,omitempty"`
	Book       *book.Summary          `json:"book,omitempty"`
	Cached     int                    `json:"cached_images"`
}

func (s *Server) handleTrackerStatus() (interface{}, error) {
	res := statusResult{
		Provider: s.tracker.Provider().Name(),
		Ready:    s.tracker.Ready(),
		Params:   s.tracker.Params(),
		Images:   s.tracker.Images(),
		Cached:   s.cache.Len(),
	}
	if idx, rem := s.tracker.Prediction(); idx >= 0 {
		res.Prediction = &predictionStatus{Page: s.tracker.Image(idx).Page, Index: idx, Remaining: rem}
	}
	if s.book != nil {
		sum := s.book.Summary()
		res.Book = &sum
	}
	return res, nil
}
