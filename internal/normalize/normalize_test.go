package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"full width digits", "１７Ｎ１", "17N1"},
		{"full width brackets", "（１７Ｎ１）", "(17N1)"},
		{"tortoise brackets", "〔신상〕", "(신상)"},
		{"rn becomes m", "cornflower", "comflower"},
		{"look-alike in shade code", "17Nl", "17N1"},
		{"look-alike digits", "B0B", "808"},
		{"words keep their letters", "Black Cushion", "Black Cushion"},
		{"balanced token untouched", "SPF50", "SPF50"},
		{"all look-alike word untouched", "BOSS", "BOSS"},
		{"hangul untouched", "헤라 블랙 쿠션 17Nl", "헤라 블랙 쿠션 17N1"},
		{"single digit is not enough", "l7Nl", "l7Nl"},
		{"whitespace preserved", "A  17Nl", "A  17N1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Clean(tt.in))
		})
	}
}

func TestKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"Hera Black Cushion 17N1", "hera black cushion 17n1"},
		{"Rom&nd Juicy Tint", "rom nd juicy tint"},
		{"  블랙 쿠션 (17N1)  ", "블랙 쿠션 17n1"},
		{"ＨＥＲＡ", "hera"},
		{"***", ""},
		{"Crème", "cr me"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Key(tt.in))
		})
	}
}

func TestExtractSignals(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		assert.Equal(t, Signals{}, ExtractSignals(""))
	})

	t.Run("numbers and tokens", func(t *testing.T) {
		s := ExtractSignals("ALDER 998 double wear 998 21N ab")
		assert.Equal(t, []string{"998"}, s.Numbers)
		assert.Equal(t, []string{"alder", "double", "wear"}, s.Tokens)
	})

	t.Run("full width digits count after NFKC", func(t *testing.T) {
		s := ExtractSignals("no.１２３４")
		assert.Equal(t, []string{"1234"}, s.Numbers)
		assert.Nil(t, s.Tokens)
	})

	t.Run("short runs ignored", func(t *testing.T) {
		s := ExtractSignals("헤라 블랙쿠션 17N1")
		assert.Nil(t, s.Numbers)
		assert.Nil(t, s.Tokens)
	})
}

func TestKoreanRatio(t *testing.T) {
	assert.Equal(t, 0.0, KoreanRatio(""))
	assert.Equal(t, 1.0, KoreanRatio("헤라"))
	assert.Equal(t, 0.0, KoreanRatio("hera"))
	assert.InDelta(t, 2.0/7.0, KoreanRatio("헤라 17N1"), 1e-9)
}

func TestContainsHangul(t *testing.T) {
	assert.True(t, ContainsHangul("black 쿠션"))
	assert.False(t, ContainsHangul("black cushion"))
	assert.False(t, ContainsHangul("ㄱㄴ"), "compatibility jamo are not syllables")
}
