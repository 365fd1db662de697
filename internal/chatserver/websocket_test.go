package chatserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitFrame(t *testing.T) {
	tests := []struct {
		frame string
		want  []string
	}{
		{"hello", []string{"hello"}},
		{"hello\n", []string{"hello"}},
		{"hello\r\n", []string{"hello"}},
		{"", []string{""}},
		{"hi\nbob: fake", []string{"hi", "bob: fake"}},
		{"a\r\n\r\nb\n", []string{"a", "", "b"}},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, splitFrame(tt.frame), "frame %q", tt.frame)
	}
}
