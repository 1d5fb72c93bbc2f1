package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsIdentifier(t *testing.T) {
	testData := []struct {
		s      string
		expect bool
	}{
		{s: "x", expect: true},
		{s: "_tmp1", expect: true},
		{s: "$a", expect: true},
		{s: "ifbody_12", expect: true},
		{s: "", expect: false},
		{s: "1x", expect: false},
		{s: "a.b", expect: false},
		{s: "a b", expect: false},
	}
	for _, d := range testData {
		assert.Equal(t, d.expect, IsIdentifier(d.s), d.s)
	}
}
