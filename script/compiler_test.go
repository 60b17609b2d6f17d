package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/milk9111/scripthost/wire"
)

func TestGatherIncludes(t *testing.T) {
	src := []byte(`#include "shared/math.script"
  #include "util.script"
awake := func() {}
// #include "commented.script" stays: directives must start the line
x := "#include \"inline.script\""
`)
	assert.Equal(t, []string{"shared/math.script", "util.script"}, GatherIncludes(src))
	assert.Nil(t, GatherIncludes([]byte(`awake := func() {}`)))
}

func TestCompileBlobLayout(t *testing.T) {
	src := []byte("#include \"dep.script\"\nawake := func() {}\n")
	blob := CompileBlob(src)

	r := wire.NewReader(blob)
	count, err := r.ReadU32()
	require.NoError(t, err)
	require.Equal(t, uint32(1), count)

	dep, err := r.ReadString()
	require.NoError(t, err)
	assert.Equal(t, "dep.script", dep)

	// Directive line is blanked but its newline survives, so diagnostics keep
	// their line numbers.
	assert.Equal(t, "\nawake := func() {}\n", string(r.Tail()))
}

func TestCompileBlobNoDeps(t *testing.T) {
	blob := CompileBlob([]byte("x := 1"))
	r := wire.NewReader(blob)
	count, err := r.ReadU32()
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Equal(t, "x := 1", string(r.Tail()))
}
