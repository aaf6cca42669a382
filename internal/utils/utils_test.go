package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeHTML(t *testing.T) {
	assert.Equal(t, "a &lt;b&gt; &amp; c", EscapeHTML("a <b> & c"))
	assert.Equal(t, "браузер (chrome)", EscapeHTML("браузер (chrome)"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "гальм…", Truncate("гальмує браузер", 5))
	assert.Equal(t, "ok", Truncate("ok", 5))
	assert.Equal(t, "", Truncate("ok", 0))
}
