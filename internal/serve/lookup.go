package serve

import (
	"fmt"

	"github.com/steamops/vapor/pkg/artifact"
	"github.com/steamops/vapor/pkg/errors"
	stringpool "github.com/steamops/vapor/pkg/strings"
	"github.com/steamops/vapor/pkg/table"
)

// lookupTable is a key-indexed view over one aggregate artifact: the key
// column maps to a record of the remaining columns. First occurrence of a
// duplicate key wins, matching positional index lookup.
type lookupTable struct {
	key     string
	columns []string
	rows    map[string]map[string]interface{}
}

func loadLookup(path, key string) (*lookupTable, error) {
	t, err := artifact.Read(path)
	if err != nil {
		return nil, err
	}
	if !t.Has(key) {
		return nil, errors.New(errors.ErrorTypeInternal,
			fmt.Sprintf("artifact %s has no key column %s", path, key))
	}

	var columns []string
	for _, name := range t.Columns() {
		if name != key {
			columns = append(columns, name)
		}
	}

	l := &lookupTable{
		key:     key,
		columns: columns,
		rows:    make(map[string]map[string]interface{}, t.NumRows()),
	}
	for i := 0; i < t.NumRows(); i++ {
		k := t.Cell(i, key)
		if k == nil {
			continue
		}
		ks := stringpool.ValueToString(k)
		if _, exists := l.rows[ks]; exists {
			continue
		}
		record := make(map[string]interface{}, len(columns))
		for _, name := range columns {
			record[name] = t.Cell(i, name)
		}
		l.rows[ks] = record
	}
	return l, nil
}

func (l *lookupTable) get(key string) (map[string]interface{}, bool) {
	record, ok := l.rows[key]
	return record, ok
}

func (l *lookupTable) size() int { return len(l.rows) }

// yearTable answers "top developer for year" queries by scanning a small
// two-column artifact, first match wins.
type yearTable struct {
	t *table.Table
}

func loadYearTable(path string) (*yearTable, error) {
	t, err := artifact.Read(path)
	if err != nil {
		return nil, err
	}
	return &yearTable{t: t}, nil
}

func (y *yearTable) bestDeveloper(year int64) (string, bool) {
	for i := 0; i < y.t.NumRows(); i++ {
		if cellYear(y.t.Cell(i, "release_date")) != year {
			continue
		}
		if dev, ok := y.t.Cell(i, "developer").(string); ok {
			return dev, true
		}
	}
	return "", false
}

// cellYear reads a year cell that may be stored numerically or as a string.
func cellYear(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case string:
		var year int64
		if _, err := fmt.Sscanf(n, "%d", &year); err == nil {
			return year
		}
	}
	return -1
}
