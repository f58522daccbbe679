//go:build linux

package shm

import (
	"fmt"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func testSegName(suffix string) string {
	return fmt.Sprintf("/shmstate.shmtest.%d.%s", os.Getpid(), suffix)
}

func TestCheckName(t *testing.T) {
	assert.NoError(t, checkName("/Fred"))
	assert.ErrorIs(t, checkName(""), ErrBadName)
	assert.ErrorIs(t, checkName("Fred"), ErrBadName)
	assert.ErrorIs(t, checkName("/"), ErrBadName)
	assert.ErrorIs(t, checkName("/a/b"), ErrBadName)
}

func TestOpenOrCreate(t *testing.T) {
	name := testSegName("create")
	seg, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, seg.Close())
		assert.NoError(t, Remove(name))
	}()

	assert.True(t, seg.Created())
	assert.Equal(t, name, seg.Name())

	st, err := os.Stat(Path(name))
	require.NoError(t, err)
	assert.EqualValues(t, 4096, st.Size())

	// A second opener attaches to the existing segment and must not
	// report creation.
	seg2, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)
	assert.False(t, seg2.Created())
	assert.NoError(t, seg2.Close())
}

func TestOpenMissing(t *testing.T) {
	_, err := Open(testSegName("missing"), false)
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestMapSharesMemory(t *testing.T) {
	name := testSegName("map")
	writer, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, writer.Close())
		assert.NoError(t, Remove(name))
	}()

	wv, err := writer.Map(4096, true)
	require.NoError(t, err)
	require.Len(t, []byte(wv), 4096)
	copy(wv, "hello over shared memory")

	reader, err := Open(name, false)
	require.NoError(t, err)
	rv, err := reader.Map(4096, false)
	require.NoError(t, err)

	assert.Equal(t, []byte("hello over shared memory"), []byte(rv[:24]))

	assert.NoError(t, rv.Unmap())
	assert.NoError(t, reader.Close())
	assert.NoError(t, wv.Unmap())
}

func TestReadOnlyViewSeesWriterChanges(t *testing.T) {
	name := testSegName("ro")
	writer, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, writer.Close())
		assert.NoError(t, Remove(name))
	}()

	wv, err := writer.Map(4096, true)
	require.NoError(t, err)
	wv[0] = 0x2a

	ro, err := Open(name, false)
	require.NoError(t, err)
	roView, err := ro.Map(4096, false)
	require.NoError(t, err)
	assert.EqualValues(t, 0x2a, roView[0])

	// Writer side mutations remain visible through the read-only view.
	wv[0] = 0x17
	assert.EqualValues(t, 0x17, roView[0])

	assert.NoError(t, roView.Unmap())
	assert.NoError(t, ro.Close())
	assert.NoError(t, wv.Unmap())
}

func TestSize(t *testing.T) {
	name := testSegName("size")
	seg, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, seg.Close())
		assert.NoError(t, Remove(name))
	}()

	sz, err := seg.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 4096, sz)
}

func TestCloseIsIdempotent(t *testing.T) {
	name := testSegName("close")
	seg, err := OpenOrCreate(name, 4096)
	require.NoError(t, err)
	defer func() { assert.NoError(t, Remove(name)) }()

	assert.NoError(t, seg.Close())
	assert.NoError(t, seg.Close())
}

func TestUnmapNilView(t *testing.T) {
	var v View
	assert.NoError(t, v.Unmap())
}

func TestRemoveMissing(t *testing.T) {
	err := Remove(testSegName("removemissing"))
	require.Error(t, err)
	assert.ErrorIs(t, err, unix.ENOENT)
}

func TestBadNamesRejectedEverywhere(t *testing.T) {
	_, err := OpenOrCreate("no.leading.slash", 4096)
	assert.ErrorIs(t, err, ErrBadName)
	_, err = Open("no.leading.slash", false)
	assert.ErrorIs(t, err, ErrBadName)
	assert.ErrorIs(t, Remove("no.leading.slash"), ErrBadName)
}
