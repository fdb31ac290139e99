package rule

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCommand_CollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "nvidia-smi -q", NormalizeCommand("  nvidia-smi \t -q  "))
}

func TestNormalizeCommand_NFC(t *testing.T) {
	// e + combining acute composes to the single code point form.
	assert.Equal(t, "café", NormalizeCommand("café"))
}

func TestNormalizeOutput_FoldsCRLF(t *testing.T) {
	assert.Equal(t, "line one\nline two", NormalizeOutput("line one\r\nline two"))
}

func TestNormalizeOutput_PreservesInnerWhitespace(t *testing.T) {
	// Output patterns may be whitespace-sensitive; only line endings are
	// touched.
	assert.Equal(t, "a   b", NormalizeOutput("a   b"))
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"nvidia-smi", "--gpu-reset", "-i", "0"}, Tokens("nvidia-smi   --gpu-reset -i 0"))
	assert.Empty(t, Tokens("   "))
}
