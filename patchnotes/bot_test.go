package patchnotes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLatestNewsCount(t *testing.T) {
	cases := []struct {
		in       int
		expected int
	}{
		{-5, 1},
		{0, 1},
		{1, 1},
		{3, 3},
		{10, 10},
		{25, 10},
	}

	for _, c := range cases {
		assert.Equal(t, c.expected, latestNewsCount(c.in), "latestNewsCount(%d)", c.in)
	}
}
