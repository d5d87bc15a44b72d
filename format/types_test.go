package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseValueType(t *testing.T) {
	tests := []struct {
		token string
		want  DataType
		ok    bool
	}{
		{"eInt8Usi", TypeInt8, true},
		{"eInt16Usi", TypeInt16, true},
		{"eInt32Usi", TypeInt32, true},
		{"eInt64Usi", TypeInt64, true},
		{"eUInt8Usi", TypeUint8, true},
		{"eUInt16Usi", TypeUint16, true},
		{"eUInt32Usi", TypeUint32, true},
		{"eUInt64Usi", TypeUint64, true},
		{"eFloat32Usi", TypeFloat32, true},
		{"eFloat64Usi", TypeFloat64, true},
		{"eBooleanUsi", TypeBool, true},
		{"eStringUsi", TypeString, true},
		{"unknown_type", TypeInvalid, false},
		{"", TypeInvalid, false},
		{"DT_DOUBLE", TypeInvalid, false}, // DT tokens are channel tokens, not storage tokens
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseValueType(tt.token)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseChannelType(t *testing.T) {
	tests := []struct {
		token string
		want  DataType
		ok    bool
	}{
		{"DT_BYTE", TypeUint8, true},
		{"DT_SHORT", TypeInt16, true},
		{"DT_LONG", TypeInt32, true},
		{"DT_LONGLONG", TypeInt64, true},
		{"DT_FLOAT", TypeFloat32, true},
		{"DT_DOUBLE", TypeFloat64, true},
		{"DT_BOOLEAN", TypeBool, true},
		{"DT_STRING", TypeString, true},
		{"eFloat64Usi", TypeFloat64, true}, // either spelling is accepted
		{"DT_COMPLEX", TypeInvalid, false},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, ok := ParseChannelType(tt.token)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDataType_Size(t *testing.T) {
	require.Equal(t, 1, TypeInt8.Size())
	require.Equal(t, 1, TypeUint8.Size())
	require.Equal(t, 1, TypeBool.Size())
	require.Equal(t, 2, TypeInt16.Size())
	require.Equal(t, 2, TypeUint16.Size())
	require.Equal(t, 4, TypeInt32.Size())
	require.Equal(t, 4, TypeUint32.Size())
	require.Equal(t, 4, TypeFloat32.Size())
	require.Equal(t, 8, TypeInt64.Size())
	require.Equal(t, 8, TypeUint64.Size())
	require.Equal(t, 8, TypeFloat64.Size())
	require.Equal(t, 0, TypeString.Size())
	require.Equal(t, 0, TypeInvalid.Size())
}

func TestDataType_IsNumeric(t *testing.T) {
	require.True(t, TypeInt8.IsNumeric())
	require.True(t, TypeUint64.IsNumeric())
	require.True(t, TypeFloat32.IsNumeric())
	require.False(t, TypeBool.IsNumeric())
	require.False(t, TypeString.IsNumeric())
	require.False(t, TypeInvalid.IsNumeric())
}

func TestDataType_String(t *testing.T) {
	require.Equal(t, "Float64", TypeFloat64.String())
	require.Equal(t, "Uint16", TypeUint16.String())
	require.Equal(t, "Invalid", TypeInvalid.String())
	require.Equal(t, "Invalid", DataType(0xFF).String())
}

func TestParseRepresentation(t *testing.T) {
	tests := []struct {
		token string
		want  Representation
		ok    bool
	}{
		{"", RepExplicit, true},
		{"explicit", RepExplicit, true},
		{"implicit_linear", RepImplicitLinear, true},
		{"raw_linear", RepRawLinear, true},
		{"polynomial", RepExplicit, false},
	}

	for _, tt := range tests {
		got, ok := ParseRepresentation(tt.token)
		require.Equal(t, tt.ok, ok, "token %q", tt.token)
		require.Equal(t, tt.want, got, "token %q", tt.token)
	}
}
