// Package format defines the scalar data types a TDM channel can declare and
// the token parsing for the two spellings they appear under in TDM metadata:
// USI storage tokens on block descriptors (eInt32Usi, eFloat64Usi, ...) and
// DT_* tokens on tdm_channel datatype elements (DT_LONG, DT_DOUBLE, ...).
package format

// DataType identifies the declared scalar type of a channel.
type DataType uint8

const (
	TypeInvalid DataType = 0    // TypeInvalid marks an unrecognized declared type.
	TypeInt8    DataType = 0x01 // TypeInt8 is an 8-bit signed integer.
	TypeInt16   DataType = 0x02 // TypeInt16 is a 16-bit signed integer.
	TypeInt32   DataType = 0x03 // TypeInt32 is a 32-bit signed integer.
	TypeInt64   DataType = 0x04 // TypeInt64 is a 64-bit signed integer.
	TypeUint8   DataType = 0x05 // TypeUint8 is an 8-bit unsigned integer.
	TypeUint16  DataType = 0x06 // TypeUint16 is a 16-bit unsigned integer.
	TypeUint32  DataType = 0x07 // TypeUint32 is a 32-bit unsigned integer.
	TypeUint64  DataType = 0x08 // TypeUint64 is a 64-bit unsigned integer.
	TypeFloat32 DataType = 0x09 // TypeFloat32 is an IEEE 754 32-bit float.
	TypeFloat64 DataType = 0x0A // TypeFloat64 is an IEEE 754 64-bit float.
	TypeBool    DataType = 0x0B // TypeBool is a 1-byte boolean, zero is false.
	TypeString  DataType = 0x0C // TypeString is a variable-length string with a length table.
)

// usiTokens maps the storage value-type tokens found on block descriptors
// inside usi:include/file.
var usiTokens = map[string]DataType{
	"eInt8Usi":    TypeInt8,
	"eInt16Usi":   TypeInt16,
	"eInt32Usi":   TypeInt32,
	"eInt64Usi":   TypeInt64,
	"eUInt8Usi":   TypeUint8,
	"eUInt16Usi":  TypeUint16,
	"eUInt32Usi":  TypeUint32,
	"eUInt64Usi":  TypeUint64,
	"eFloat32Usi": TypeFloat32,
	"eFloat64Usi": TypeFloat64,
	"eBooleanUsi": TypeBool,
	"eStringUsi":  TypeString,
}

// dtTokens maps the datatype tokens found on tdm_channel elements inside
// usi:data. Channels without block references only carry this spelling.
var dtTokens = map[string]DataType{
	"DT_BYTE":     TypeUint8,
	"DT_SHORT":    TypeInt16,
	"DT_LONG":     TypeInt32,
	"DT_LONGLONG": TypeInt64,
	"DT_FLOAT":    TypeFloat32,
	"DT_DOUBLE":   TypeFloat64,
	"DT_BOOLEAN":  TypeBool,
	"DT_STRING":   TypeString,
}

// ParseValueType parses a USI storage token (e.g. "eFloat64Usi").
// Returns TypeInvalid and false for unknown tokens.
func ParseValueType(token string) (DataType, bool) {
	t, ok := usiTokens[token]
	return t, ok
}

// ParseChannelType parses a channel datatype token of either spelling:
// USI storage tokens and DT_* tokens are both accepted.
// Returns TypeInvalid and false for unknown tokens.
func ParseChannelType(token string) (DataType, bool) {
	if t, ok := usiTokens[token]; ok {
		return t, ok
	}
	t, ok := dtTokens[token]

	return t, ok
}

// Size returns the fixed element size in bytes, or 0 for variable-length
// types (TypeString) and TypeInvalid.
func (t DataType) Size() int {
	switch t {
	case TypeInt8, TypeUint8, TypeBool:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsNumeric returns true for integer and float types.
func (t DataType) IsNumeric() bool {
	switch t {
	case TypeInt8, TypeInt16, TypeInt32, TypeInt64,
		TypeUint8, TypeUint16, TypeUint32, TypeUint64,
		TypeFloat32, TypeFloat64:
		return true
	default:
		return false
	}
}

// IsValid returns true for every type except TypeInvalid.
func (t DataType) IsValid() bool {
	return t > TypeInvalid && t <= TypeString
}

func (t DataType) String() string {
	switch t {
	case TypeInt8:
		return "Int8"
	case TypeInt16:
		return "Int16"
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeUint8:
		return "Uint8"
	case TypeUint16:
		return "Uint16"
	case TypeUint32:
		return "Uint32"
	case TypeUint64:
		return "Uint64"
	case TypeFloat32:
		return "Float32"
	case TypeFloat64:
		return "Float64"
	case TypeBool:
		return "Bool"
	case TypeString:
		return "String"
	default:
		return "Invalid"
	}
}

// Representation identifies how a local column stores its values.
type Representation uint8

const (
	// RepExplicit stores raw values in one or more TDX blocks.
	RepExplicit Representation = iota
	// RepImplicitLinear generates values as offset + i*increment with no
	// TDX backing.
	RepImplicitLinear
	// RepRawLinear stores raw values in TDX blocks and scales each as
	// offset + slope*raw.
	RepRawLinear
)

// ParseRepresentation parses a sequence_representation token. An empty token
// defaults to RepExplicit.
func ParseRepresentation(token string) (Representation, bool) {
	switch token {
	case "", "explicit":
		return RepExplicit, true
	case "implicit_linear":
		return RepImplicitLinear, true
	case "raw_linear":
		return RepRawLinear, true
	default:
		return RepExplicit, false
	}
}

func (r Representation) String() string {
	switch r {
	case RepImplicitLinear:
		return "implicit_linear"
	case RepRawLinear:
		return "raw_linear"
	default:
		return "explicit"
	}
}
