package tdm_test

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/arloliu/tdm"
	"github.com/arloliu/tdm/errs"
	"github.com/arloliu/tdm/format"
)

// speedTDM is a minimal measurement: one group, one float32 channel with
// 100 samples backed by a 400-byte binary resource.
const speedTDM = `<?xml version="1.0" encoding="utf-8"?>
<usi:tdm xmlns:usi="http://www.ni.com/Schemas/USI/1_0">
  <usi:documentation>
    <usi:exporter>National Instruments USI</usi:exporter>
  </usi:documentation>
  <usi:include>
    <file url="measurement.tdx" byteOrder="littleEndian">
      <block id="inc0" byteOffset="0" length="100" valueType="eFloat32Usi"/>
    </file>
  </usi:include>
  <usi:data>
    <tdm_channelgroup id="usi1">
      <name>Group1</name>
      <channels>#xpointer(id("usi10"))</channels>
    </tdm_channelgroup>
    <tdm_channel id="usi10">
      <name>Speed</name>
      <unit_string>m/s</unit_string>
      <datatype>DT_FLOAT</datatype>
      <local_columns>#xpointer(id("usi20"))</local_columns>
    </tdm_channel>
    <localcolumn id="usi20"><values>#xpointer(id("usi30"))</values></localcolumn>
    <float_sequence id="usi30"><values external="inc0"/></float_sequence>
  </usi:data>
</usi:tdm>`

func speedTDX() []byte {
	var buf []byte
	for i := 0; i < 100; i++ {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(float32(i)))
	}

	return buf
}

// writeSpeedFixture lays out the metadata and its co-located resource in a
// temp dir and returns the metadata path.
func writeSpeedFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "measurement.tdm")
	require.NoError(t, os.WriteFile(path, []byte(speedTDM), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "measurement.tdx"), speedTDX(), 0o644))

	return path
}

func TestOpenFile(t *testing.T) {
	f, err := tdm.OpenFile(writeSpeedFixture(t))
	require.NoError(t, err)
	defer f.Close()

	require.Equal(t, "National Instruments USI", f.Exporter())
	require.Equal(t, 1, f.NumGroups())

	n, err := f.NumChannels(0)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	name, err := f.GroupName(0)
	require.NoError(t, err)
	require.Equal(t, "Group1", name)

	name, err = f.ChannelName(0, 0)
	require.NoError(t, err)
	require.Equal(t, "Speed", name)

	unit, err := f.ChannelUnit(0, 0)
	require.NoError(t, err)
	require.Equal(t, "m/s", unit)

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, format.TypeFloat32, view.Type())
	require.Equal(t, 100, view.Len())
	require.False(t, view.Degraded())
	for _, i := range []int{0, 1, 50, 99} {
		v, err := view.FloatAt(i)
		require.NoError(t, err)
		require.Equal(t, float64(i), v)
	}
	require.Empty(t, f.Warnings())

	t.Run("views are cached", func(t *testing.T) {
		again, err := f.Channel(0, 0)
		require.NoError(t, err)
		require.Same(t, view, again)
	})

	t.Run("by name", func(t *testing.T) {
		byName, err := f.ChannelByName(0, "Speed")
		require.NoError(t, err)
		require.Same(t, view, byName)

		_, err = f.ChannelByName(0, "NoSuch")
		require.ErrorIs(t, err, errs.ErrChannelNotFound)
	})

	t.Run("group index", func(t *testing.T) {
		gi, err := f.GroupIndex("Group1")
		require.NoError(t, err)
		require.Zero(t, gi)

		_, err = f.GroupIndex("NoSuch")
		require.ErrorIs(t, err, errs.ErrGroupNotFound)
	})
}

func TestOpenFile_Missing(t *testing.T) {
	_, err := tdm.OpenFile(filepath.Join(t.TempDir(), "nope.tdm"))
	require.ErrorIs(t, err, errs.ErrResourceNotFound)
}

func TestOpenFile_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.tdm")
	require.NoError(t, os.WriteFile(path, []byte(`<usi:tdm xmlns:usi="x"><usi:include>`), 0o644))

	_, err := tdm.OpenFile(path)
	require.ErrorIs(t, err, errs.ErrMalformedMetadata)
}

func TestFile_IndexOutOfRange(t *testing.T) {
	f, err := tdm.OpenFile(writeSpeedFixture(t))
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Channel(5, 0)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = f.Channel(0, 99)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = f.ChannelName(-1, 0)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
	_, err = f.NumChannels(1)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)
}

func TestFile_Close(t *testing.T) {
	f, err := tdm.OpenFile(writeSpeedFixture(t))
	require.NoError(t, err)

	view, err := f.Channel(0, 0)
	require.NoError(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err = f.Channel(0, 0)
	require.ErrorIs(t, err, errs.ErrFileClosed)

	// An already-materialized view survives Close.
	v, err := view.FloatAt(10)
	require.NoError(t, err)
	require.Equal(t, 10.0, v)
}

func TestFile_TruncatedResource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "measurement.tdm")
	require.NoError(t, os.WriteFile(path, []byte(speedTDM), 0o644))
	// 42 bytes back only 10 whole float32 samples of the 100 declared.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "measurement.tdx"), speedTDX()[:42], 0o644))

	f, err := tdm.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, 10, view.Len())
	require.Equal(t, uint64(100), view.DeclaredLength())
	require.True(t, view.Degraded())

	v, err := view.FloatAt(9)
	require.NoError(t, err)
	require.Equal(t, 9.0, v)
	_, err = view.FloatAt(10)
	require.ErrorIs(t, err, errs.ErrIndexOutOfRange)

	require.Len(t, f.Warnings(), 1)
	require.ErrorIs(t, f.Warnings()[0].Err, errs.ErrTruncatedData)
}

func TestFile_MissingResource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "measurement.tdm")
	require.NoError(t, os.WriteFile(path, []byte(speedTDM), 0o644))

	f, err := tdm.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Opening succeeds; the missing resource surfaces on channel access as
	// an empty view plus a warning.
	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Zero(t, view.Len())
	require.True(t, view.Degraded())

	require.Len(t, f.Warnings(), 1)
	require.ErrorIs(t, f.Warnings()[0].Err, errs.ErrResourceNotFound)
}

func TestWithEagerLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "measurement.tdm")
	require.NoError(t, os.WriteFile(path, []byte(speedTDM), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "measurement.tdx"), speedTDX()[:42], 0o644))

	f, err := tdm.OpenFile(path, tdm.WithEagerLoad())
	require.NoError(t, err)
	defer f.Close()

	// All load problems are known before any channel access.
	require.Len(t, f.Warnings(), 1)
	require.ErrorIs(t, f.Warnings()[0].Err, errs.ErrTruncatedData)
}

func TestWithBinaryPath(t *testing.T) {
	metaDir, dataDir := t.TempDir(), t.TempDir()
	path := filepath.Join(metaDir, "measurement.tdm")
	require.NoError(t, os.WriteFile(path, []byte(speedTDM), 0o644))
	tdxPath := filepath.Join(dataDir, "elsewhere.bin")
	require.NoError(t, os.WriteFile(tdxPath, speedTDX(), 0o644))

	f, err := tdm.OpenFile(path, tdm.WithBinaryPath("measurement.tdx", tdxPath))
	require.NoError(t, err)
	defer f.Close()

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, 100, view.Len())
}

func TestOpen_Stream(t *testing.T) {
	data := speedTDX()

	f, err := tdm.Open(strings.NewReader(speedTDM),
		tdm.WithResource("measurement.tdx", bytes.NewReader(data), int64(len(data)), nil))
	require.NoError(t, err)
	defer f.Close()

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, 100, view.Len())
	require.Empty(t, f.Warnings())
}

func TestOpen_StreamWithoutResources(t *testing.T) {
	f, err := tdm.Open(strings.NewReader(speedTDM))
	require.NoError(t, err)
	defer f.Close()

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Zero(t, view.Len())
	require.Len(t, f.Warnings(), 1)
	require.ErrorIs(t, f.Warnings()[0].Err, errs.ErrResourceNotFound)
}

func TestOpenFile_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "measurement.tdm.gz")

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(speedTDM))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "measurement.tdx"), speedTDX(), 0o644))

	f, err := tdm.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, 100, view.Len())
}

func TestOpenFile_Zip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "measurement.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("measurement.tdm")
	require.NoError(t, err)
	_, err = w.Write([]byte(speedTDM))
	require.NoError(t, err)
	w, err = zw.Create("measurement.tdx")
	require.NoError(t, err)
	_, err = w.Write(speedTDX())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	f, err := tdm.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	view, err := f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, 100, view.Len())

	v, err := view.FloatAt(42)
	require.NoError(t, err)
	require.Equal(t, 42.0, v)
}

func TestOpenFile_ZipWithoutMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.zip")

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("measurement.tdx")
	require.NoError(t, err)
	_, err = w.Write(speedTDX())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	_, err = tdm.OpenFile(path)
	require.ErrorIs(t, err, errs.ErrMalformedMetadata)
}

// multiTDM exercises two groups, a degraded channel, and a channel name
// shared across groups.
const multiTDM = `<?xml version="1.0" encoding="utf-8"?>
<usi:tdm xmlns:usi="http://www.ni.com/Schemas/USI/1_0">
  <usi:include>
    <file url="multi.tdx" byteOrder="littleEndian">
      <block id="inc0" byteOffset="0" length="4" valueType="eInt32Usi"/>
      <block id="inc1" byteOffset="16" length="2" valueType="unknown_type"/>
      <block id="inc2" byteOffset="24" length="4" valueType="eInt32Usi"/>
      <block id="inc3" byteOffset="40" length="4" valueType="eInt32Usi"/>
    </file>
  </usi:include>
  <usi:data>
    <tdm_channelgroup id="usi1">
      <name>Drive</name>
      <channels>#xpointer(id("usi10") id("usi11"))</channels>
    </tdm_channelgroup>
    <tdm_channelgroup id="usi2">
      <name>Brake</name>
      <channels>#xpointer(id("usi12") id("usi13"))</channels>
    </tdm_channelgroup>
    <tdm_channel id="usi10"><name>Speed</name><local_columns>id("usi20")</local_columns></tdm_channel>
    <tdm_channel id="usi11"><name>Odd</name><local_columns>id("usi21")</local_columns></tdm_channel>
    <tdm_channel id="usi12"><name>Speed</name><local_columns>id("usi22")</local_columns></tdm_channel>
    <tdm_channel id="usi13"><name>Temp</name><local_columns>id("usi23")</local_columns></tdm_channel>
    <localcolumn id="usi20"><values>id("usi30")</values></localcolumn>
    <localcolumn id="usi21"><values>id("usi31")</values></localcolumn>
    <localcolumn id="usi22"><values>id("usi32")</values></localcolumn>
    <localcolumn id="usi23"><values>id("usi33")</values></localcolumn>
    <long_sequence id="usi30"><values external="inc0"/></long_sequence>
    <long_sequence id="usi31"><values external="inc1"/></long_sequence>
    <long_sequence id="usi32"><values external="inc2"/></long_sequence>
    <long_sequence id="usi33"><values external="inc3"/></long_sequence>
  </usi:data>
</usi:tdm>`

func multiTDX() []byte {
	buf := make([]byte, 56)
	o := binary.LittleEndian
	for i, v := range []int32{1, 2, 3, 4} {
		o.PutUint32(buf[i*4:], uint32(v))
	}
	for i, v := range []int32{10, 11, 12, 13} {
		o.PutUint32(buf[24+i*4:], uint32(v))
	}
	for i, v := range []int32{-5, -6, -7, -8} {
		o.PutUint32(buf[40+i*4:], uint32(v))
	}

	return buf
}

func openMulti(t *testing.T) *tdm.File {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "multi.tdm")
	require.NoError(t, os.WriteFile(path, []byte(multiTDM), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "multi.tdx"), multiTDX(), 0o644))

	f, err := tdm.OpenFile(path)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })

	return f
}

func TestFile_DegradedChannel(t *testing.T) {
	f := openMulti(t)

	// The unsupported channel is reported at open time.
	require.Len(t, f.Warnings(), 1)
	require.ErrorIs(t, f.Warnings()[0].Err, errs.ErrUnsupportedChannelType)
	require.Equal(t, "Odd", f.Warnings()[0].Name)

	// It stays addressable by index and yields an empty view.
	view, err := f.Channel(0, 1)
	require.NoError(t, err)
	require.Zero(t, view.Len())

	// Its neighbors are unaffected.
	view, err = f.Channel(0, 0)
	require.NoError(t, err)
	require.Equal(t, 4, view.Len())
	n, err := view.IntAt(0)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestFile_Lookup(t *testing.T) {
	f := openMulti(t)

	t.Run("last definition wins across groups", func(t *testing.T) {
		view, err := f.Lookup("Speed")
		require.NoError(t, err)
		n, err := view.IntAt(0)
		require.NoError(t, err)
		require.Equal(t, int64(10), n)
	})

	t.Run("qualified lookup", func(t *testing.T) {
		view, err := f.LookupIn("Drive", "Speed")
		require.NoError(t, err)
		n, err := view.IntAt(0)
		require.NoError(t, err)
		require.Equal(t, int64(1), n)

		view, err = f.LookupIn("Brake", "Speed")
		require.NoError(t, err)
		n, err = view.IntAt(0)
		require.NoError(t, err)
		require.Equal(t, int64(10), n)
	})

	t.Run("not found", func(t *testing.T) {
		_, err := f.Lookup("NoSuch")
		require.ErrorIs(t, err, errs.ErrChannelNotFound)
		_, err = f.LookupIn("Drive", "Temp")
		require.ErrorIs(t, err, errs.ErrChannelNotFound)
	})
}

func TestFile_ChannelDict(t *testing.T) {
	f := openMulti(t)

	dict, err := f.ChannelDict(1)
	require.NoError(t, err)
	require.Len(t, dict, 2)
	require.Contains(t, dict, "Speed")
	require.Contains(t, dict, "Temp")

	n, err := dict["Temp"].IntAt(3)
	require.NoError(t, err)
	require.Equal(t, int64(-8), n)
}

func TestFile_Search(t *testing.T) {
	f := openMulti(t)

	t.Run("substring match in document order", func(t *testing.T) {
		matches := f.ChannelSearch("Spe")
		require.Equal(t, []tdm.ChannelMatch{
			{Group: 0, Channel: 0, Name: "Speed"},
			{Group: 1, Channel: 0, Name: "Speed"},
		}, matches)
	})

	t.Run("empty term matches every channel", func(t *testing.T) {
		require.Len(t, f.ChannelSearch(""), 4)
	})

	t.Run("matching is case sensitive", func(t *testing.T) {
		require.Empty(t, f.ChannelSearch("speed"))
	})

	t.Run("groups", func(t *testing.T) {
		matches := f.GroupSearch("r")
		require.Equal(t, []tdm.GroupMatch{
			{Index: 0, Name: "Drive"},
			{Index: 1, Name: "Brake"},
		}, matches)
		require.Empty(t, f.GroupSearch("XYZ"))
	})
}
