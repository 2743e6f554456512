package slug

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := map[string]string{
		"Café Résumé 2024!":              "cafe-resume-2024",
		"  Cardiology -- Hands-on  ":     "cardiology-hands-on",
		"Über Neurochirurgie":            "uber-neurochirurgie",
		"USMLE Step 1: Tips & Tricks":    "usmle-step-1-tips-tricks",
		"---":                            "",
		"already-a-slug":                 "already-a-slug",
	}
	for in, want := range cases {
		assert.Equal(t, want, Make(in), in)
	}
}

func TestMakeTruncates(t *testing.T) {
	out := Make(strings.Repeat("ab ", 60))
	assert.LessOrEqual(t, len(out), maxLength)
	assert.False(t, strings.HasSuffix(out, "-"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("clinical-rotations-guide"))
	assert.False(t, Valid("Clinical Rotations"))
	assert.False(t, Valid(""))
}
