package book

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// ConfigFile is the name of the book description inside a book directory.
const ConfigFile = "config.txt"

var (
	// ErrNoConfig is returned by Open when the directory has no config.txt.
	ErrNoConfig = errors.New("book directory has no " + ConfigFile)
	// ErrNoTitle is returned when config.txt does not name the book.
	ErrNoTitle = errors.New("book config has no title")
)

// imageExts are the page file extensions the image loader can decode.
var imageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".bmp": true, ".tif": true, ".tiff": true, ".webp": true,
}

// Media kinds attached to a page.
const (
	MediaImage = "image"
	MediaSound = "sound"
	MediaVideo = "video"
)

// PageFile is a reference image of one page.
type PageFile struct {
	Page int    `json:"page"`
	Path string `json:"path"`
}

// Book is a parsed book directory.
type Book struct {
	Dir   string
	Title string
	// Pages are the page images, ordered by page number then file name.
	Pages []PageFile
	// Entries is the number of page entries in config.txt.
	Entries int

	media map[string]map[int]string
}

// Open reads the book in dir.
func Open(dir string) (*Book, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open book: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("failed to open book: %s is not a directory", dir)
	}

	f, err := os.Open(filepath.Join(dir, ConfigFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoConfig, dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read book config: %w", err)
	}
	defer f.Close()

	cfg, err := parseConfig(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFile, err)
	}

	b := &Book{
		Dir:     dir,
		Title:   cfg.title,
		Entries: len(cfg.pages),
		media: map[string]map[int]string{
			MediaImage: {},
			MediaSound: {},
			MediaVideo: {},
		},
	}
	for _, e := range cfg.media {
		path := filepath.Join(dir, filepath.FromSlash(e.path))
		if _, err := os.Stat(path); err != nil {
			continue
		}
		b.media[e.kind][e.page] = path
	}

	pages, err := pageFiles(dir)
	if err != nil {
		return nil, err
	}
	b.Pages = pages
	return b, nil
}

func pageFiles(dir string) ([]PageFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list book directory: %w", err)
	}
	var pages []PageFile
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "page") || !imageExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		n, err := PageNumber(name)
		if err != nil {
			continue
		}
		pages = append(pages, PageFile{Page: n, Path: filepath.Join(dir, name)})
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Page < pages[j].Page })
	return pages, nil
}

// PageNumber extracts the page number from a page file name: the run of
// digits that follows the last "page". Anything after the digits, such as
// "-left" in "page3-left.png", is ignored.
func PageNumber(name string) (int, error) {
	base := filepath.Base(name)
	i := strings.LastIndex(base, "page")
	if i < 0 {
		return 0, fmt.Errorf("%q is not a page file", name)
	}
	rest := base[i+len("page"):]
	end := strings.IndexFunc(rest, func(r rune) bool { return r < '0' || r > '9' })
	if end < 0 {
		end = len(rest)
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0, fmt.Errorf("%q has no page number", name)
	}
	return n, nil
}

// MediaPath returns the file of the given kind attached to page.
func (b *Book) MediaPath(kind string, page int) (string, bool) {
	p, ok := b.media[kind][page]
	return p, ok
}

// ImagePath returns the AR image shown over page.
func (b *Book) ImagePath(page int) (string, bool) { return b.MediaPath(MediaImage, page) }

// AudioPath returns the sound played for page.
func (b *Book) AudioPath(page int) (string, bool) { return b.MediaPath(MediaSound, page) }

// VideoPath returns the video played for page.
func (b *Book) VideoPath(page int) (string, bool) { return b.MediaPath(MediaVideo, page) }

// Summary describes a book.
type Summary struct {
	Title   string `json:"title"`
	Pages   int    `json:"pages"`
	Entries int    `json:"entries"`
	Images  int    `json:"images"`
	Sounds  int    `json:"sounds"`
	Videos  int    `json:"videos"`
}

// Summary counts the book's pages and media.
func (b *Book) Summary() Summary {
	return Summary{
		Title:   b.Title,
		Pages:   len(b.Pages),
		Entries: b.Entries,
		Images:  len(b.media[MediaImage]),
		Sounds:  len(b.media[MediaSound]),
		Videos:  len(b.media[MediaVideo]),
	}
}

func (s Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Title: %s\n", s.Title)
	fmt.Fprintf(&sb, "Page images: %d\n", s.Pages)
	fmt.Fprintf(&sb, "Pages with content: %d\n", s.Entries)
	fmt.Fprintf(&sb, "Pages with image content: %d\n", s.Images)
	fmt.Fprintf(&sb, "Pages with audio content: %d\n", s.Sounds)
	fmt.Fprintf(&sb, "Pages with video content: %d\n", s.Videos)
	return sb.String()
}
