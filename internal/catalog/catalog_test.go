package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/korean"
)

const sampleCSV = "name,brand,price\n블랙 쿠션 (17N1),헤라,60000\nJuicy Lasting Tint,롬앤,9900\n,빈이름,0\n"

func TestNewEntry(t *testing.T) {
	e := NewEntry("Hera Black Cushion 17N1", map[string]string{"price": "60000"})
	assert.Equal(t, "hera black cushion 17n1", e.NormalizedName)
	assert.Equal(t, "60000", e.Attr("price"))
	assert.Empty(t, e.Attr("missing"))
	assert.Empty(t, Entry{}.Attr("price"))
}

func TestFromNames(t *testing.T) {
	c := FromNames("Hera Black Cushion 17N1", "Rom&nd Juicy Tint")
	require.Len(t, c, 2)
	assert.Equal(t, []string{"Hera Black Cushion 17N1", "Rom&nd Juicy Tint"}, c.Names())
	assert.Equal(t, "rom nd juicy tint", c[1].NormalizedName)
	assert.False(t, c.Empty())
	assert.True(t, Catalog{}.Empty())
}

func TestFromRows_DefaultColumn(t *testing.T) {
	c := FromRows([]map[string]string{{"name": "A"}, {"title": "B"}}, "")
	require.Len(t, c, 2)
	assert.Equal(t, "A", c[0].Name)
	assert.Equal(t, "", c[1].Name, "rows without a name are kept")
}

func TestParse_Encodings(t *testing.T) {
	euckr, err := korean.EUCKR.NewEncoder().Bytes([]byte(sampleCSV))
	require.NoError(t, err)

	tests := []struct {
		name     string
		data     []byte
		encoding string
	}{
		{"plain utf-8", []byte(sampleCSV), "utf-8"},
		{"utf-8 with bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte(sampleCSV)...), "utf-8-sig"},
		{"legacy korean", euckr, "cp949"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, used, err := Parse(tt.data, "name")
			require.NoError(t, err)
			assert.Equal(t, tt.encoding, used)
			require.Len(t, c, 3)
			assert.Equal(t, "블랙 쿠션 (17N1)", c[0].Name)
			assert.Equal(t, "헤라", c[0].Attr("brand"))
			assert.Equal(t, "블랙 쿠션 17n1", c[0].NormalizedName)
			assert.Equal(t, "9900", c[1].Attr("price"))
		})
	}
}

func TestParse_HeaderOnly(t *testing.T) {
	c, used, err := Parse([]byte("name,brand\n"), "name")
	require.NoError(t, err)
	assert.Equal(t, "utf-8", used)
	assert.Empty(t, c)
}

func TestParse_ShortRowsPadded(t *testing.T) {
	c, _, err := Parse([]byte("name,brand,price\nOnly Name\n"), "name")
	require.NoError(t, err)
	require.Len(t, c, 1)
	assert.Equal(t, "Only Name", c[0].Name)
	assert.Equal(t, "", c[0].Attr("price"))
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "final.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	c, err := LoadCSV(path, "name")
	require.NoError(t, err)
	assert.Len(t, c, 3)

	_, err = LoadCSV(filepath.Join(dir, "missing.csv"), "name")
	require.Error(t, err)
}
