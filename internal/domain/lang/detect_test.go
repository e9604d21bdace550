package lang

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetect(t *testing.T) {
	cases := []struct {
		text string
		want Code
	}{
		{"the best coffee for the morning", English},
		{"el mejor café para la mañana", Spanish},
		{"le meilleur café pour le matin", French},
		{"der beste Kaffee für die Arbeit", German},
		{"kopi terbaik untuk pagi hari dengan harga murah", Indonesian},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Detect(c.text), c.text)
	}
}

func TestDetectDefaultsToEnglish(t *testing.T) {
	assert.Equal(t, English, Detect(""))
	// no marker words at all
	assert.Equal(t, English, Detect("quantum chromodynamics"))
}

func TestDetectIsDeterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		assert.Equal(t, Spanish, Detect("donde comprar el mejor vino para regalar"))
	}
}

func TestLocaleForText(t *testing.T) {
	assert.Equal(t, "es", LocaleForText("el mejor restaurante cerca de casa"))
	assert.Equal(t, "us", LocaleForText("best pizza near me"))
	assert.Equal(t, "de", LocaleForText("wie ist das Wetter für morgen"))
}
