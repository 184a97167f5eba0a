package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmailSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    string
	}{
		{"plain subject untouched", "Quarterly review", "Quarterly review"},
		{"single reply prefix", "Re: Quarterly review", "Quarterly review"},
		{"stacked prefixes", "Re: Fwd: Quarterly review", "Quarterly review"},
		{"case insensitive", "RE: FW: status", "status"},
		{"numbered reply prefix", "Re[2]: status", "status"},
		{"surrounding whitespace", "  Re:   status  ", "status"},
		{"prefix-only subject", "Re:", ""},
		{"empty subject", "", ""},
		{"prefix mid-subject kept", "Update re: budget", "Update re: budget"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEmailSubject(tt.subject))
		})
	}
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "a", FirstNonEmpty("", "a", "b"))
	assert.Equal(t, "", FirstNonEmpty("", ""))
}
