package services

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeCityNameCollapsesVariants(t *testing.T) {
	for _, input := range []string{"Timișoara", "timisoara", "TIMIȘOARA", "  Timişoara  "} {
		require.Equal(t, "Timisoara", NormalizeCityName(input), "input %q", input)
	}
}

func TestNormalizeCityNameExamples(t *testing.T) {
	cases := map[string]string{
		"Iași":            "Iasi",
		"bucurești":       "Bucuresti",
		"cluj-napoca":     "Cluj-Napoca",
		"sfântu gheorghe": "Sfantu Gheorghe",
		"Brașov":          "Brasov",
		"":                "",
		"   ":             "",
	}
	for input, want := range cases {
		require.Equal(t, want, NormalizeCityName(input), "input %q", input)
	}
}

func TestNormalizeCityNameIsIdempotent(t *testing.T) {
	once := NormalizeCityName("Târgu Mureș")
	require.Equal(t, "Targu Mures", once)
	require.Equal(t, once, NormalizeCityName(once))
}
