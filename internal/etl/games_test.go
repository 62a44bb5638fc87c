package etl

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steamops/vapor/pkg/table"
)

func gameRecord(id, developer string, price interface{}, date string, genres ...interface{}) map[string]interface{} {
	return map[string]interface{}{
		"id":           id,
		"app_name":     "game " + id,
		"developer":    developer,
		"price":        price,
		"release_date": date,
		"genres":       genres,
		"specs":        []interface{}{"Single-player"},
	}
}

func TestNormalizePrice(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{"number passes through", 9.99, 9.99},
		{"integer becomes float", int64(5), float64(5)},
		{"free tier string", "Free to Play", float64(0)},
		{"demo string", "Free Demo", float64(0)},
		{"numeric string coerces", "4.99", 4.99},
		{"missing token", "NaN", nil},
		{"empty string", "", nil},
		{"missing", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePrice(tt.input))
		})
	}
}

func TestNormalizePriceIsIdempotent(t *testing.T) {
	inputs := []interface{}{9.99, "Free to Play", "NaN", nil, int64(3)}
	for _, in := range inputs {
		once := normalizePrice(in)
		assert.Equal(t, once, normalizePrice(once))
	}
}

func TestResolveYear(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{"iso date", "2018-01-04", int64(2018)},
		{"long form", "Jun 24, 2014", int64(2014)},
		{"bare year", "1997", int64(1997)},
		{"coming soon", "Soon..", "Unknown"},
		{"missing", nil, "Unknown"},
		{"unparseable", "when it is done", "Unknown"},
		{"empty", "", "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resolveYear(tt.input))
		})
	}
}

func TestExpandIndicatorsCorpusWide(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "1", "genres": []interface{}{"Action", "Indie"}},
		{"id": "2", "genres": []interface{}{"Action"}},
		{"id": "3", "genres": "not a list"},
		{"id": "4", "genres": nil},
	}
	out, err := expandIndicators(table.FromRows(rows), "genres", "genre_")
	require.NoError(t, err)

	assert.False(t, out.Has("genres"))
	assert.Equal(t, []string{"id", "genre_Action", "genre_Indie"}, out.Columns())

	assert.Equal(t, int64(1), out.Cell(0, "genre_Action"))
	assert.Equal(t, int64(1), out.Cell(0, "genre_Indie"))
	assert.Equal(t, int64(0), out.Cell(1, "genre_Indie"))
	// Malformed and missing lists expand to all zeros.
	assert.Equal(t, int64(0), out.Cell(2, "genre_Action"))
	assert.Equal(t, int64(0), out.Cell(3, "genre_Action"))
}

func TestExpandIndicatorsStableAcrossRowOrder(t *testing.T) {
	rows := []map[string]interface{}{
		{"id": "1", "genres": []interface{}{"Indie"}},
		{"id": "2", "genres": []interface{}{"Action"}},
	}
	reversed := []map[string]interface{}{rows[1], rows[0]}

	first, err := expandIndicators(table.FromRows(rows), "genres", "genre_")
	require.NoError(t, err)
	second, err := expandIndicators(table.FromRows(reversed), "genres", "genre_")
	require.NoError(t, err)
	assert.Equal(t, first.Columns(), second.Columns())
}

func TestIndicatorValuesAreZeroOrOne(t *testing.T) {
	rows := []map[string]interface{}{
		gameRecord("1", "acme", 1.0, "2018-01-04", "Action"),
		gameRecord("2", "acme", 2.0, "2019-05-01", "Action", "Indie"),
	}
	base, err := cleanGames(table.FromRows(rows))
	require.NoError(t, err)

	for _, name := range columnsWithPrefix(base, "genre_") {
		col, _ := base.Column(name)
		for i := 0; i < col.Len(); i++ {
			v, ok := col.Get(i).(int64)
			require.True(t, ok)
			assert.True(t, v == 0 || v == 1)
		}
	}
}

func TestGenreMatrixThresholdIsInclusive(t *testing.T) {
	var rows []map[string]interface{}
	for i := 0; i < genreMatrixMinPositives; i++ {
		rows = append(rows, gameRecord(fmt.Sprintf("c%d", i), "acme", 1.0, "2018-01-04", "Common"))
	}
	for i := 0; i < genreMatrixMinPositives-1; i++ {
		rows = append(rows, gameRecord(fmt.Sprintf("r%d", i), "acme", 1.0, "2018-01-04", "Rare"))
	}
	base, err := cleanGames(table.FromRows(rows))
	require.NoError(t, err)

	matrix, err := buildGenreMatrix(base)
	require.NoError(t, err)

	// Exactly 20 positives is kept; 19 is dropped.
	assert.True(t, matrix.Has("genre_Common"))
	assert.False(t, matrix.Has("genre_Rare"))
	assert.Equal(t, []string{"id", "genre_Common"}, matrix.Columns())
}

func TestFeatureMatrixThresholdIsExclusive(t *testing.T) {
	var rows []map[string]interface{}
	for i := 0; i < featureMatrixMinPositives+1; i++ {
		genres := []interface{}{"Popular"}
		if i < featureMatrixMinPositives {
			genres = append(genres, "Borderline")
		}
		rows = append(rows, gameRecord(fmt.Sprintf("g%d", i), "acme", 1.0, "2018-01-04", genres...))
	}
	base, err := cleanGames(table.FromRows(rows))
	require.NoError(t, err)

	matrix, err := buildFeatureMatrix(base)
	require.NoError(t, err)

	// 501 positives passes the strictly-greater test; exactly 500 does not.
	assert.True(t, matrix.Has("genre_Popular"))
	assert.False(t, matrix.Has("genre_Borderline"))
	// The specs indicator is present on every row, so it clears the bar too.
	assert.True(t, matrix.Has("spec_Single-player"))
}

func TestReleaseCatalogExcludesUnknownYearsAndNullDevelopers(t *testing.T) {
	rows := []map[string]interface{}{
		gameRecord("1", "acme", 9.99, "2018-01-04", "Action"),
		gameRecord("2", "acme", "Free to Play", "Soon..", "Action", "Indie"),
		{"id": "3", "app_name": "orphan", "developer": nil, "price": 1.0,
			"release_date": "2017-03-01", "genres": []interface{}{"Action"}, "specs": nil},
	}
	base, err := cleanGames(table.FromRows(rows))
	require.NoError(t, err)

	catalog, err := buildReleaseCatalog(base)
	require.NoError(t, err)

	assert.Equal(t, []string{"app_name", "release_date", "price", "id", "developer"}, catalog.Columns())
	require.Equal(t, 1, catalog.NumRows())
	assert.Equal(t, "1", catalog.Cell(0, "id"))
	assert.Equal(t, "2018", catalog.Cell(0, "release_date"))
}

func TestFreeToPlayComingSoonRow(t *testing.T) {
	rows := []map[string]interface{}{
		gameRecord("42", "Acme", "Free to Play", "Soon..", "Action", "Indie"),
		gameRecord("43", "Acme", 5.0, "2018-01-04", "Action"),
	}
	base, err := cleanGames(table.FromRows(rows))
	require.NoError(t, err)

	// The price collapsed to 0 and the date resolved to the sentinel.
	var scenario table.Row
	found := false
	for i := 0; i < base.NumRows(); i++ {
		if base.Cell(i, "id") == "42" {
			scenario = base.Row(i)
			found = true
		}
	}
	require.True(t, found)
	assert.Equal(t, float64(0), scenario.Get("price"))
	assert.Equal(t, "Unknown", scenario.Get("release_date"))

	// Absent from the release catalog, which filters unresolved years.
	catalog, err := buildReleaseCatalog(base)
	require.NoError(t, err)
	for i := 0; i < catalog.NumRows(); i++ {
		assert.NotEqual(t, "42", catalog.Cell(i, "id"))
	}

	// Present in the genre matrix, which does not filter by year.
	matrix, err := buildGenreMatrix(base)
	require.NoError(t, err)
	ids := make([]interface{}, 0, matrix.NumRows())
	for i := 0; i < matrix.NumRows(); i++ {
		ids = append(ids, matrix.Cell(i, "id"))
	}
	assert.Contains(t, ids, "42")
}

func TestCleanGamesPrunesUnusedColumns(t *testing.T) {
	rows := []map[string]interface{}{
		{
			"id": "1", "app_name": "a", "developer": "d", "price": 1.0,
			"release_date": "2018-01-04", "genres": nil, "specs": nil,
			"publisher": "p", "title": "t", "url": "u", "early_access": false,
			"reviews_url": "r", "tags": []interface{}{"x"},
		},
	}
	base, err := cleanGames(table.FromRows(rows))
	require.NoError(t, err)
	for _, name := range gamesPrunedColumns {
		assert.False(t, base.Has(name), name)
	}
}
