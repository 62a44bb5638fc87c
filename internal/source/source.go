// Package source reads the raw line-oriented dataset dumps. Each file holds
// one record per line, optionally gzip-compressed. Two line dialects exist:
// JSON objects (the games catalog) and Python-literal dicts (reviews and
// items). Malformed lines are logged, counted, and skipped; the file itself
// being unreadable aborts the read.
package source

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/klauspost/compress/gzip"
	"go.uber.org/zap"

	"github.com/steamops/vapor/pkg/errors"
	"github.com/steamops/vapor/pkg/logger"
	"github.com/steamops/vapor/pkg/pyliteral"
)

// Lines in the reviews dump run long; a review body alone can exceed the
// default bufio limit.
const maxLineBytes = 16 * 1024 * 1024

// Stats reports what a read pass saw.
type Stats struct {
	Lines     int
	Records   int
	Malformed int
}

// Reader streams records out of a single dataset file.
type Reader struct {
	log *zap.Logger
}

func NewReader() *Reader {
	return &Reader{log: logger.Get().Named("source")}
}

// ReadJSON reads every line of path as a JSON object.
func (r *Reader) ReadJSON(path string) ([]map[string]interface{}, Stats, error) {
	return r.read(path, func(line string) (map[string]interface{}, error) {
		var rec map[string]interface{}
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, err
		}
		normalizeNumbers(rec)
		return rec, nil
	})
}

// ReadLiterals reads every line of path as a Python-literal dict.
func (r *Reader) ReadLiterals(path string) ([]map[string]interface{}, Stats, error) {
	return r.read(path, pyliteral.ParseDict)
}

func (r *Reader) read(path string, decode func(string) (map[string]interface{}, error)) ([]map[string]interface{}, Stats, error) {
	var stats Stats

	f, err := os.Open(path) //nolint:gosec // G304: source paths come from config
	if err != nil {
		return nil, stats, errors.Wrap(err, errors.ErrorTypeSourceUnavailable,
			fmt.Sprintf("failed to open source %s", path))
	}
	defer f.Close()

	var in io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, stats, errors.Wrap(err, errors.ErrorTypeSourceUnavailable,
				fmt.Sprintf("failed to decompress source %s", path))
		}
		defer gz.Close()
		in = gz
	}

	records := make([]map[string]interface{}, 0, 1024)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := decode(line)
		if err != nil {
			stats.Malformed++
			r.log.Warn("skipping malformed record",
				zap.String("file", path),
				zap.Int("line", stats.Lines),
				zap.Error(err))
			continue
		}
		records = append(records, rec)
		stats.Records++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, errors.Wrap(err, errors.ErrorTypeSourceUnavailable,
			fmt.Sprintf("failed reading source %s", path))
	}

	r.log.Info("source read complete",
		zap.String("file", path),
		zap.Int("records", stats.Records),
		zap.Int("malformed", stats.Malformed))
	return records, stats, nil
}

// normalizeNumbers rewrites integral JSON floats to int64 in place so both
// line dialects yield the same numeric types.
func normalizeNumbers(rec map[string]interface{}) {
	for k, v := range rec {
		rec[k] = normalizeValue(v)
	}
}

func normalizeValue(v interface{}) interface{} {
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return int64(n)
		}
		return n
	case []interface{}:
		for i, e := range n {
			n[i] = normalizeValue(e)
		}
		return n
	case map[string]interface{}:
		normalizeNumbers(n)
		return n
	default:
		return v
	}
}
