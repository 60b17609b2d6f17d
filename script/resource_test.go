package script

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/milk9111/scripthost/resource"
	"github.com/milk9111/scripthost/wire"
)

func TestSourceLoadParsesHeader(t *testing.T) {
	files := map[string]string{
		"main.script": "#include \"dep.script\"\nawake := func() {}\n",
		"dep.script":  "helper := func() {}\n",
	}
	read := func(path string) ([]byte, error) {
		src, ok := files[path]
		if !ok {
			return nil, fmt.Errorf("no such script: %s", path)
		}
		return CompileBlob([]byte(src)), nil
	}
	mgr := resource.NewManager(SourceFactory, read, zaptest.NewLogger(t))

	res := mgr.Load("main.script")
	mgr.Flush() // main parsed; dep read queued by its Load
	mgr.Flush()

	require.True(t, res.Ready())
	src := res.Asset().(*Source)
	assert.Equal(t, "\nawake := func() {}\n", src.SourceCode())
	require.Len(t, src.Dependencies(), 1)
	assert.Equal(t, "dep.script", src.Dependencies()[0].Path())
	assert.True(t, src.Dependencies()[0].Ready())

	mgr.Release(res)
	assert.Nil(t, mgr.Get("main.script"))
	assert.Nil(t, mgr.Get("dep.script"), "dependency reference released with owner")
}

func TestSourceLoadMalformedHeader(t *testing.T) {
	var truncated wire.Writer
	truncated.WriteU8(0xFF) // not even a full count

	var overlong wire.Writer
	overlong.WriteU32(50) // claims 50 deps in a 4-byte buffer

	var missingNul wire.Writer
	missingNul.WriteU32(1)
	missingNul.WriteRaw([]byte("dep-without-terminator"))

	cases := []struct {
		name string
		data []byte
	}{
		{"truncated count", truncated.Bytes()},
		{"count exceeds buffer", overlong.Bytes()},
		{"unterminated path", missingNul.Bytes()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mgr := resource.NewManager(SourceFactory, func(string) ([]byte, error) {
				return tc.data, nil
			}, zaptest.NewLogger(t))
			res := mgr.Load("bad.script")
			mgr.Flush()
			assert.Equal(t, resource.StateFailed, res.State())
			assert.Error(t, res.Failure())
		})
	}
}

func TestSourceEmptyBlob(t *testing.T) {
	mgr := resource.NewManager(SourceFactory, func(string) ([]byte, error) {
		return CompileBlob(nil), nil
	}, zaptest.NewLogger(t))
	res := mgr.Load("empty.script")
	mgr.Flush()
	require.True(t, res.Ready())
	assert.Empty(t, res.Asset().(*Source).SourceCode())
}
