package opening

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var cacheHeader = []string{"id", "title", "videoId", "animeTitle", "listened"}

const embedPrefix = "https://www.youtube.com/embed/"

// readCache loads a previously fetched playlist. A missing file yields nil.
func readCache(path string) ([]Opening, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) <= 1 {
		return nil, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[strings.TrimSpace(h)] = i
	}
	// older caches misspelled the title column
	if _, ok := idx["title"]; !ok {
		if i, ok := idx["tittle"]; ok {
			idx["title"] = i
		}
	}
	field := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	out := make([]Opening, 0, len(records)-1)
	for _, rec := range records[1:] {
		id, videoID := field(rec, "id"), field(rec, "videoId")
		if id == "" || videoID == "" {
			continue
		}
		listened, _ := strconv.ParseBool(field(rec, "listened"))
		out = append(out, Opening{
			ID:           id,
			OpeningTitle: field(rec, "title"),
			AnimeTitle:   field(rec, "animeTitle"),
			AudioURL:     embedPrefix + videoID,
			Listened:     listened,
		})
	}
	return out, nil
}

// writeCache replaces the cache file atomically.
func writeCache(path string, openings []Opening) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.Write(cacheHeader); err != nil {
		tmp.Close()
		return err
	}
	for _, o := range openings {
		rec := []string{
			o.ID,
			o.OpeningTitle,
			strings.TrimPrefix(o.AudioURL, embedPrefix),
			o.AnimeTitle,
			strconv.FormatBool(o.Listened),
		}
		if err := w.Write(rec); err != nil {
			tmp.Close()
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
