package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/shelfocr/internal/catalog"
)

func setupTestStore(t *testing.T, seed bool) *Store {
	t.Helper()
	s, err := Open(context.Background(), MemoryPath, seed)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpen_SeedsOnce(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "cosmetics.db")

	s, err := Open(ctx, path, true)
	require.NoError(t, err)
	all, err := s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(SampleProducts()))
	require.NoError(t, s.Close())

	s, err = Open(ctx, path, true)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	all, err = s.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(SampleProducts()), "reopening must not seed twice")
	assert.Equal(t, "색조", all[0].Category)
}

func TestOpen_WithoutSeed(t *testing.T) {
	s := setupTestStore(t, false)
	all, err := s.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestLexicons(t *testing.T) {
	s := setupTestStore(t, true)
	ctx := context.Background()

	brands, err := s.AllBrands(ctx)
	require.NoError(t, err)
	assert.Len(t, brands, 6)
	assert.Contains(t, brands, "헤라")

	names, err := s.AllProductNames(ctx)
	require.NoError(t, err)
	assert.Len(t, names, 6)
	assert.Contains(t, names, "쥬시 래스팅 틴트")
}

func TestProductsByName(t *testing.T) {
	s := setupTestStore(t, true)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"exact name", "블랙 쿠션 (17N1)", "블랙 쿠션 (17N1)"},
		{"spaces ignored", "블랙쿠션", "블랙 쿠션 (17N1)"},
		{"brand and name", "헤라 블랙쿠션", "블랙 쿠션 (17N1)"},
		{"case ignored", "(17n1)", "블랙 쿠션 (17N1)"},
		{"partial", "틴트", "쥬시 래스팅 틴트"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := s.ProductByName(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.Name)
		})
	}

	t.Run("limit", func(t *testing.T) {
		rows, err := s.ProductsByName(ctx, "쿠션", 5)
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("empty query", func(t *testing.T) {
		rows, err := s.ProductsByName(ctx, "  ", 5)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := s.ProductByName(ctx, "존재하지않음")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestProductsByFilter(t *testing.T) {
	s := setupTestStore(t, true)
	ctx := context.Background()

	_, err := s.Insert(ctx, []Product{
		{Name: "웜 립", Brand: "테스트", Type: "립스틱", PersonalColors: "spring,autumn", SkinTypes: "dry"},
		{Name: "쿨 립", Brand: "테스트", Type: "립스틱", PersonalColors: "summer", SkinTypes: "oily"},
	})
	require.NoError(t, err)

	rows, err := s.ProductsByFilter(ctx, "spring", "", 9)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "웜 립", rows[0].Name)

	rows, err = s.ProductsByFilter(ctx, "summer", "oily", 9)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "쿨 립", rows[0].Name)

	rows, err = s.ProductsByFilter(ctx, "winter", "", 3)
	require.NoError(t, err)
	assert.Len(t, rows, 3, "no hit falls back to the first products")

	rows, err = s.BeautyData(ctx, "", 4)
	require.NoError(t, err)
	assert.Len(t, rows, 4)
}

func TestRecommendByTypes(t *testing.T) {
	s := setupTestStore(t, true)
	ctx := context.Background()

	rec, err := s.RecommendByTypes(ctx, "spring", "dry", "21", 6)
	require.NoError(t, err)

	require.Len(t, rec.Cushion, 2)
	assert.Equal(t, "블랙 쿠션 (17N1)", rec.Cushion[0].Name)
	require.NotNil(t, rec.Cushion[0].Price)
	assert.Equal(t, 60000, *rec.Cushion[0].Price)

	assert.Len(t, rec.Foundation, 2)
	require.Len(t, rec.Lip, 1)
	assert.Equal(t, "쥬시 래스팅 틴트", rec.Lip[0].Name)
	require.Len(t, rec.Eye, 1)
	assert.Equal(t, "섀도우 팔레트", rec.Eye[0].Name)
}

func TestRecommendByTypes_NumberRange(t *testing.T) {
	s := setupTestStore(t, false)
	ctx := context.Background()

	_, err := s.Insert(ctx, []Product{
		{Name: "쿠션 21", Type: "쿠션", Number: "21", SkinTypes: "dry"},
		{Name: "쿠션 23", Type: "쿠션", Number: "23", SkinTypes: "dry"},
		{Name: "쿠션 공용", Type: "쿠션"},
	})
	require.NoError(t, err)

	rec, err := s.RecommendByTypes(ctx, "", "dry", "22", 6)
	require.NoError(t, err)
	assert.Len(t, rec.Cushion, 3, "21 and 23 are within one of 22, unnumbered rows always qualify")

	rec, err = s.RecommendByTypes(ctx, "", "dry", "25", 6)
	require.NoError(t, err)
	require.Len(t, rec.Cushion, 1)
	assert.Equal(t, "쿠션 공용", rec.Cushion[0].Name)

	rec, err = s.RecommendByTypes(ctx, "", "oily", "40", 6)
	require.NoError(t, err)
	assert.Len(t, rec.Cushion, 1, "only the unfiltered row matches")
	assert.Empty(t, rec.Lip)
}

func TestCatalogAndImport(t *testing.T) {
	s := setupTestStore(t, false)
	ctx := context.Background()

	n, err := s.Import(ctx, catalog.FromRows([]map[string]string{
		{"name": "Black Cushion 17N1", "brand": "Hera", "price": "60000", "desc": "semi matte"},
		{"name": "", "brand": "skipped"},
		{"name": "Juicy Lasting Tint", "brand": "Rom&nd", "image_path": "tint.jpg"},
	}, "name"))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	cat, err := s.Catalog(ctx)
	require.NoError(t, err)
	require.Len(t, cat, 2)
	assert.Equal(t, "Hera Black Cushion 17N1", cat[0].Name)
	assert.Equal(t, "hera black cushion 17n1", cat[0].NormalizedName)
	assert.Equal(t, "semi matte", cat[0].Attr("description"))
	assert.Equal(t, "tint.jpg", cat[1].Attr("image"))
	assert.Equal(t, "1", cat[0].Attr("id"))
}

func TestProductHelpers(t *testing.T) {
	p := Product{Brand: "헤라", Name: "블랙 쿠션", PersonalColors: "spring, autumn", SkinTypes: "", Price: "free"}
	assert.Equal(t, "헤라 블랙 쿠션", p.DisplayName())
	assert.Equal(t, "spring", p.FirstPersonalColor())
	assert.Equal(t, "", p.FirstSkinType())
	assert.Nil(t, p.Card().Price)
}
