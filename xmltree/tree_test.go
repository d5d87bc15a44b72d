package xmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/tdm/errs"
)

func TestParse(t *testing.T) {
	const doc = `<?xml version="1.0" encoding="utf-8"?>
<usi:tdm xmlns:usi="http://www.ni.com/Schemas/USI/1_0">
  <usi:include>
    <file url="data.tdx" byteOrder="littleEndian">
      <block id="inc0" byteOffset="0" length="4" valueType="eInt32Usi"/>
      <block id="inc1" byteOffset="16" length="2" valueType="eFloat64Usi"/>
    </file>
  </usi:include>
  <usi:data>
    <tdm_channelgroup id="usi1"><name>grp</name></tdm_channelgroup>
  </usi:data>
</usi:tdm>`

	root, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)
	require.Equal(t, "tdm", root.Name)
	require.Equal(t, "http://www.ni.com/Schemas/USI/1_0", root.Space)
	require.Len(t, root.Children, 2)

	include := root.Child("include")
	require.NotNil(t, include)
	file := include.Child("file")
	require.NotNil(t, file)
	require.Equal(t, "data.tdx", file.AttrOr("url", ""))

	blocks := file.ChildList("block")
	require.Len(t, blocks, 2)
	// Attributes keep document order.
	require.Equal(t, []Attr{
		{Name: "id", Value: "inc0"},
		{Name: "byteOffset", Value: "0"},
		{Name: "length", Value: "4"},
		{Name: "valueType", Value: "eInt32Usi"},
	}, blocks[0].Attrs)

	data := root.Child("data")
	require.NotNil(t, data)
	require.Equal(t, "grp", data.Child("tdm_channelgroup").ChildText("name"))
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unclosed element", `<root><child></root>`},
		{"empty stream", ``},
		{"text only", `not xml at all`},
		{"garbage after root", `<root/></root>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			require.ErrorIs(t, err, errs.ErrMalformedMetadata)
		})
	}
}

func TestParse_UnknownElementsRetained(t *testing.T) {
	const doc = `<root>
  <known/>
  <future_extension answer="42"><nested>deep</nested></future_extension>
</root>`

	root, err := Parse(strings.NewReader(doc))
	require.NoError(t, err)

	ext := root.Child("future_extension")
	require.NotNil(t, ext)
	require.Equal(t, "42", ext.AttrOr("answer", ""))
	require.Equal(t, "deep", ext.ChildText("nested"))
}

func TestNode_Text(t *testing.T) {
	root, err := Parse(strings.NewReader(`<a> outer <b>inner</b> tail </a>`))
	require.NoError(t, err)

	// Direct character data only, child text excluded.
	require.Equal(t, "outer  tail", root.TrimmedText())
	require.Equal(t, "inner", root.ChildText("b"))
}

func TestNode_Descendants(t *testing.T) {
	root, err := Parse(strings.NewReader(
		`<a><x n="1"/><b><x n="2"/><c><x n="3"/></c></b><x n="4"/></a>`))
	require.NoError(t, err)

	var order []string
	for _, n := range root.Descendants("x") {
		v, _ := n.Attr("n")
		order = append(order, v)
	}
	require.Equal(t, []string{"1", "2", "3", "4"}, order)
}

func TestNode_Require(t *testing.T) {
	root, err := Parse(strings.NewReader(`<a id="7"><b/></a>`))
	require.NoError(t, err)

	b, err := root.RequireChild("b")
	require.NoError(t, err)
	require.NotNil(t, b)

	_, err = root.RequireChild("missing")
	require.ErrorIs(t, err, errs.ErrMalformedMetadata)

	id, err := root.RequireAttr("id")
	require.NoError(t, err)
	require.Equal(t, "7", id)

	_, err = root.RequireAttr("missing")
	require.ErrorIs(t, err, errs.ErrMalformedMetadata)
}
