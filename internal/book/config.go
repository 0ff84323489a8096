package book

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type mediaEntry struct {
	page int
	kind string
	path string
}

type config struct {
	title string
	pages []int
	media []mediaEntry
}

// parseConfig reads a book description:
//
//	title: The Little Book
//	page 1:
//	  image: media/one.png
//	  sound: media/one.ogg
//	page 2:
//	  video: media/two.mp4
//
// Media lines belong to the closest page header above them. Unknown keys
// and media lines outside a page are ignored.
func parseConfig(r io.Reader) (*config, error) {
	cfg := &config{}
	page := -1
	scanner := bufio.NewScanner(r)
	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		switch {
		case key == "title":
			if cfg.title == "" {
				cfg.title = value
			}
		case strings.HasPrefix(key, "page"):
			n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(key, "page")))
			if err != nil || n < 0 {
				return nil, fmt.Errorf("line %d: bad page header %q", lineNo, line)
			}
			page = n
			cfg.pages = append(cfg.pages, n)
		case key == MediaImage || key == MediaSound || key == MediaVideo:
			if page < 0 || value == "" {
				continue
			}
			cfg.media = append(cfg.media, mediaEntry{page: page, kind: key, path: value})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if cfg.title == "" {
		return nil, ErrNoTitle
	}
	return cfg, nil
}
