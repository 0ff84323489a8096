package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"image"
	"image/png"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
)

// writePNG encodes img into dir/name and returns the path.
func writePNG(t *testing.T, dir, name string, img image.Image) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("failed to create %s: %v", name, err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	return path
}

// texturedPage returns a page of random 8 pixel cells.
func texturedPage(size int, seed int64) *image.Gray {
	rng := rand.New(rand.NewSource(seed))
	cols := size / 8
	img := image.NewGray(image.Rect(0, 0, size, size))
	levels := make([]uint8, cols*cols)
	for i := range levels {
		levels[i] = uint8(rng.Intn(256))
	}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			img.Pix[y*img.Stride+x] = levels[(y/8)*cols+x/8]
		}
	}
	return img
}

// createBook writes a one page book (page 7, with an AR image) and returns
// its directory.
func createBook(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	config := "title: Test Book\npage 7:\n  image: overlay.png\n  sound: missing.ogg\n"
	if err := os.WriteFile(filepath.Join(dir, "config.txt"), []byte(config), 0o644); err != nil {
		t.Fatal(err)
	}
	writePNG(t, dir, "page7.png", texturedPage(240, 3))
	writePNG(t, dir, "overlay.png", image.NewGray(image.Rect(0, 0, 4, 4)))
	return dir
}

// writePageFrame renders the tracker's first training image doubled in size
// at the centre of a 720x720 frame.
func writePageFrame(t *testing.T, s *Server) string {
	t.Helper()
	train := s.tracker.Image(0).Gray
	frame := image.NewGray(image.Rect(0, 0, 720, 720))
	for i := range frame.Pix {
		frame.Pix[i] = 128
	}
	for y := 0; y < 480; y++ {
		for x := 0; x < 480; x++ {
			frame.Pix[(120+y)*frame.Stride+120+x] = train.Pix[(y/2)*train.Stride+x/2]
		}
	}
	return writePNG(t, t.TempDir(), "frame.png", frame)
}

// callTool runs a tool through handleRequest and decodes its text result.
func callTool(t *testing.T, s *Server, name string, args interface{}) (*MCPResponse, map[string]interface{}) {
	t.Helper()
	params := map[string]interface{}{"name": name, "arguments": args}
	paramsJSON, _ := json.Marshal(params)

	resp := s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: paramsJSON})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	if resp.Error != nil {
		return resp, nil
	}

	content := resp.Result.(map[string]interface{})["content"].([]map[string]interface{})
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(content[0]["text"].(string)), &out); err != nil {
		t.Fatalf("failed to decode %s result: %v", name, err)
	}
	return resp, out
}

func mustCall(t *testing.T, s *Server, name string, args interface{}) map[string]interface{} {
	t.Helper()
	resp, out := callTool(t, s, name, args)
	if resp.Error != nil {
		t.Fatalf("%s failed: %v (%v)", name, resp.Error.Message, resp.Error.Data)
	}
	return out
}

func TestHandleToolsCall_BookOpen(t *testing.T) {
	s := newTestServer(t)
	dir := createBook(t)

	out := mustCall(t, s, "book_open", map[string]interface{}{"path": dir})
	if out["title"] != "Test Book" {
		t.Errorf("title: got %v", out["title"])
	}
	if out["images"] != float64(1) || out["sounds"] != float64(0) {
		t.Errorf("media counts: images=%v sounds=%v", out["images"], out["sounds"])
	}
	registered, _ := out["registered"].([]interface{})
	if len(registered) != 1 {
		t.Fatalf("registered: got %v", out["registered"])
	}
	if page := registered[0].(map[string]interface{})["page"]; page != float64(7) {
		t.Errorf("registered page: got %v, want 7", page)
	}
	if !s.tracker.Ready() {
		t.Error("tracker not finalized after book_open")
	}
}

func TestHandleToolsCall_BookOpenMissing(t *testing.T) {
	s := newTestServer(t)
	resp, _ := callTool(t, s, "book_open", map[string]interface{}{"path": t.TempDir()})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("expected tool error for a directory without config.txt, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_FrameProcess(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s, "book_open", map[string]interface{}{"path": createBook(t)})
	framePath := writePageFrame(t, s)

	out := mustCall(t, s, "frame_process", map[string]interface{}{"path": framePath})
	if out["found"] != true || out["page"] != float64(7) {
		t.Fatalf("got %v, want page 7", out)
	}
	center := out["center"].(map[string]interface{})
	if x := center["x"].(float64); x < 356 || x > 364 {
		t.Errorf("center X: got %v, want about 360", x)
	}
	media, ok := out["media"].(map[string]interface{})
	if !ok || media["image"] != filepath.Join(filepath.Dir(s.book.Pages[0].Path), "overlay.png") {
		t.Errorf("media: got %v", out["media"])
	}
	if _, ok := media["sound"]; ok {
		t.Error("missing sound file reported")
	}
	if _, ok := out["euler"].(map[string]interface{}); !ok {
		t.Error("euler angles missing")
	}

	status := mustCall(t, s, "tracker_status", nil)
	prediction, ok := status["prediction"].(map[string]interface{})
	if !ok || prediction["page"] != float64(7) || prediction["remaining"] != float64(3) {
		t.Errorf("prediction: got %v", status["prediction"])
	}
}

func TestHandleToolsCall_FrameAnnotate(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s, "book_open", map[string]interface{}{"path": createBook(t)})
	framePath := writePageFrame(t, s)

	out := mustCall(t, s, "frame_annotate", map[string]interface{}{
		"path":           framePath,
		"max_size":       360,
		"show_keypoints": true,
	})
	if out["width"] != float64(360) || out["height"] != float64(360) {
		t.Errorf("size: got %vx%v, want 360x360", out["width"], out["height"])
	}
	data, err := base64.StdEncoding.DecodeString(out["image_base64"].(string))
	if err != nil {
		t.Fatalf("bad base64: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(data)); err != nil {
		t.Fatalf("bad PNG: %v", err)
	}
	recognition := out["recognition"].(map[string]interface{})
	if recognition["page"] != float64(7) {
		t.Errorf("recognition page: got %v", recognition["page"])
	}
}

func TestHandleToolsCall_FrameCropPage(t *testing.T) {
	s := newTestServer(t)
	mustCall(t, s, "book_open", map[string]interface{}{"path": createBook(t)})
	framePath := writePageFrame(t, s)

	out := mustCall(t, s, "frame_crop_page", map[string]interface{}{"path": framePath, "margin": 10})
	if w := out["width"].(float64); w < 490 || w > 510 {
		t.Errorf("width: got %v, want about 500", w)
	}
	if h := out["height"].(float64); h < 490 || h > 510 {
		t.Errorf("height: got %v, want about 500", h)
	}
	if _, err := base64.StdEncoding.DecodeString(out["image_base64"].(string)); err != nil {
		t.Errorf("bad base64: %v", err)
	}

	blank := writePNG(t, t.TempDir(), "blank.png", image.NewGray(image.Rect(0, 0, 320, 240)))
	out = mustCall(t, s, "frame_crop_page", map[string]interface{}{"path": blank})
	if _, ok := out["image_base64"]; ok {
		t.Error("crop returned for a frame without a page")
	}
	if recognition := out["recognition"].(map[string]interface{}); recognition["page"] != float64(-1) {
		t.Errorf("recognition page: got %v, want -1", recognition["page"])
	}

	resp, _ := callTool(t, s, "frame_crop_page", map[string]interface{}{"path": framePath, "margin": -1})
	if resp.Error == nil {
		t.Error("negative margin should fail")
	}
}

func TestHandleToolsCall_FrameBeforeFinalize(t *testing.T) {
	s := newTestServer(t)
	framePath := writePNG(t, t.TempDir(), "frame.png", texturedPage(240, 5))

	out := mustCall(t, s, "frame_process", map[string]interface{}{"path": framePath})
	if out["found"] != false || out["page"] != float64(-1) {
		t.Errorf("got %v, want no page", out)
	}
}

func TestHandleToolsCall_TrainingLifecycle(t *testing.T) {
	s := newTestServer(t)
	dir := t.TempDir()
	pagePath := writePNG(t, dir, "a.png", texturedPage(240, 9))

	added := mustCall(t, s, "training_add", map[string]interface{}{"path": pagePath, "page": 0})
	if added["page"] != float64(0) || added["index"] != float64(0) {
		t.Errorf("training_add: got %v", added)
	}

	resp, _ := callTool(t, s, "training_add", map[string]interface{}{"path": pagePath})
	if resp.Error == nil {
		t.Error("training_add without page should fail")
	}

	finalized := mustCall(t, s, "training_finalize", nil)
	if finalized["ready"] != true {
		t.Errorf("training_finalize: got %v", finalized)
	}

	resp, _ = callTool(t, s, "training_add", map[string]interface{}{"path": pagePath, "page": 1})
	if resp.Error == nil {
		t.Error("training_add after finalize should fail")
	}

	cleared := mustCall(t, s, "training_clear", nil)
	if cleared["ready"] != false {
		t.Errorf("training_clear: got %v", cleared)
	}
	if images, _ := cleared["images"].([]interface{}); len(images) != 0 {
		t.Errorf("images after clear: %v", cleared["images"])
	}
}

func TestHandleToolsCall_BookMedia(t *testing.T) {
	s := newTestServer(t)
	resp, _ := callTool(t, s, "book_media", map[string]interface{}{"page": 7})
	if resp.Error == nil {
		t.Error("book_media without a book should fail")
	}

	mustCall(t, s, "book_open", map[string]interface{}{"path": createBook(t)})
	out := mustCall(t, s, "book_media", map[string]interface{}{"page": 7})
	if out["image"] == nil {
		t.Errorf("page 7 image missing: %v", out)
	}
	out = mustCall(t, s, "book_media", map[string]interface{}{"page": 8})
	if _, ok := out["image"]; ok {
		t.Errorf("page 8 should have no media: %v", out)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := newTestServer(t)

	resp, _ := callTool(t, s, "image_crop", map[string]interface{}{})
	if resp.Error == nil || resp.Error.Code != -32000 {
		t.Errorf("unknown tool: got %+v", resp.Error)
	}

	resp = s.handleRequest(&MCPRequest{JSONRPC: "2.0", ID: 1, Method: "tools/call", Params: json.RawMessage(`"bad"`)})
	if resp.Error == nil || resp.Error.Code != -32602 {
		t.Errorf("invalid params: got %+v", resp.Error)
	}

	resp, _ = callTool(t, s, "frame_process", map[string]interface{}{"path": "/nonexistent/frame.png"})
	if resp.Error == nil {
		t.Error("missing frame should fail")
	}
}
