package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressDisabledWritesNothing(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, "loading", 3, false)
	p.Inc()
	p.Inc()
	p.Finish()
	assert.Empty(t, buf.String())
	assert.Equal(t, 2, p.current)
}

func TestProgressDrawsEachPercentageOnce(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, "loading", 400, true)
	for i := 0; i < 4; i++ {
		p.Inc()
	}
	assert.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\r")))
	assert.Contains(t, buf.String(), "1%")
	assert.Contains(t, buf.String(), "(4/400)")

	p.Finish()
	assert.Contains(t, buf.String(), "\r\033[K")
}

func TestProgressWithoutTotal(t *testing.T) {
	var buf bytes.Buffer
	p := newProgress(&buf, "loading", 0, true)
	p.Inc()
	p.Finish()
	assert.Empty(t, buf.String())
}

func TestDisplayContextWithWidth(t *testing.T) {
	d := NewDisplayContextWithWidth(80)
	assert.Equal(t, 80, d.TermWidth)
}
