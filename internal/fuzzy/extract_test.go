package fuzzy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	names := []string{"쥬시 래스팅 틴트", "", "블랙 쿠션 (17N1)", "프로 테일러 비글로우 쿠션", "섀도우 팔레트"}

	got := Extract("블랙 쿠션", names, TokenSetRatio, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "블랙 쿠션 (17N1)", got[0].Choice)
	assert.Equal(t, 2, got[0].Index)
	assert.InDelta(t, 100, got[0].Score, 1e-9)
	assert.GreaterOrEqual(t, got[0].Score, got[1].Score)

	assert.Len(t, Extract("쿠션", names, TokenSetRatio, 0), 4, "empty choices are skipped")
	assert.Nil(t, Extract("  ", names, TokenSetRatio, 5))
}

func TestExtract_StableTies(t *testing.T) {
	got := Extract("zzz", []string{"aaa", "bbb", "ccc"}, Ratio, 3)
	require.Len(t, got, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{got[0].Index, got[1].Index, got[2].Index})
}

func TestExtract_CaseInsensitive(t *testing.T) {
	got := Extract("HERA", []string{"hera", "HERB"}, Ratio, 1)
	require.Len(t, got, 1)
	assert.Equal(t, "hera", got[0].Choice)
}
