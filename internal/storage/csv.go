package storage

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/DoyleJ11/op-quiz-backend/internal/player"
)

var csvHeader = []string{"id", "name", "score", "correct", "attempted"}

// CSV stores the whole player set in one flat file, rewritten on every change.
type CSV struct {
	mu   sync.Mutex
	path string
	log  *zap.Logger
}

func NewCSV(path string) *CSV {
	return &CSV{path: path, log: zap.NewNop()}
}

// WithLogger reports rows dropped on read.
func (c *CSV) WithLogger(log *zap.Logger) *CSV {
	c.log = log
	return c
}

// ReadAll treats a missing file or a file with an unexpected header as empty.
// Rows that do not parse are dropped; the rest of the file still loads.
func (c *CSV) ReadAll(_ context.Context) ([]player.Player, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Open(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	var (
		records [][]string
		skipped int
	)
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			skipped++
			c.log.Warn("skipping malformed player row", zap.String("path", c.path), zap.Int("line", perr.Line), zap.Error(err))
			continue
		}
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if skipped > 0 {
		c.log.Warn("player file had malformed rows", zap.String("path", c.path), zap.Int("skipped", skipped))
	}
	if len(records) <= 1 {
		return nil, nil
	}

	idx := make(map[string]int, len(records[0]))
	for i, h := range records[0] {
		idx[h] = i
	}
	for _, h := range csvHeader {
		if _, ok := idx[h]; !ok {
			return nil, nil
		}
	}

	field := func(rec []string, name string) string {
		if i := idx[name]; i < len(rec) {
			return rec[i]
		}
		return ""
	}
	number := func(rec []string, name string) int {
		n, err := strconv.Atoi(field(rec, name))
		if err != nil {
			return 0
		}
		return n
	}

	players := make([]player.Player, 0, len(records)-1)
	for _, rec := range records[1:] {
		players = append(players, player.Player{
			ID:        field(rec, "id"),
			Name:      field(rec, "name"),
			Score:     number(rec, "score"),
			Correct:   number(rec, "correct"),
			Attempted: number(rec, "attempted"),
		})
	}
	return players, nil
}

// WriteAll writes to a sibling temp file and renames it over the old one.
func (c *CSV) WriteAll(_ context.Context, players []player.Player) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(c.path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	rows := make([][]string, 0, len(players)+1)
	rows = append(rows, slices.Clone(csvHeader))
	for _, p := range players {
		rows = append(rows, []string{
			p.ID,
			p.Name,
			strconv.Itoa(p.Score),
			strconv.Itoa(p.Correct),
			strconv.Itoa(p.Attempted),
		})
	}
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), c.path)
}
