package textfold

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripDiacritics(t *testing.T) {
	assert.Equal(t, "Helene Lefevre", StripDiacritics("Hélène Lefèvre"))
	assert.Equal(t, "ca", StripDiacritics("ça"))
	assert.Equal(t, "plain", StripDiacritics("plain"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "releve bancaire", Fold("Relevé BANCAIRE"))
	assert.Equal(t, Fold("SOCIÉTÉ Générale"), Fold("société générale"))
}

func TestSegment(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Procès-verbal d'audition.pdf", "Proces-verbal_d_audition.pdf"},
		{"  Dossier   Pénal  ", "Dossier_Penal"},
		{"日本語", ""},
		{"a/b\\c", "a_b_c"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Segment(tt.in))
		})
	}
}

func TestSegment_Capped(t *testing.T) {
	long := strings.Repeat("é", 300)
	assert.Len(t, Segment(long), MaxSegmentLength)
}
