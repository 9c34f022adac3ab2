// Package amf3 provides encoding and decoding of Action Message Format 3 (AMF3) values.
// AMF3 is a compact binary format used by Adobe Flash for serializing ActionScript objects.
//
// The package sits on top of package wire, which decodes the primitive tokens, and
// owns the string, object and traits reference tables that the primitives only index.
package amf3

import (
	"errors"
	"fmt"
	"time"
)

// AMF3 type markers
const (
	TypeUndefined    = 0x00
	TypeNull         = 0x01
	TypeFalse        = 0x02
	TypeTrue         = 0x03
	TypeInteger      = 0x04
	TypeDouble       = 0x05
	TypeString       = 0x06
	TypeXMLDocument  = 0x07
	TypeDate         = 0x08
	TypeArray        = 0x09
	TypeObject       = 0x0A
	TypeXML          = 0x0B
	TypeByteArray    = 0x0C
	TypeVectorInt    = 0x0D
	TypeVectorUint   = 0x0E
	TypeVectorDouble = 0x0F
	TypeVectorObject = 0x10
	TypeDictionary   = 0x11
)

var (
	// ErrUnsupportedMarker is returned for a type marker outside the AMF3 range
	ErrUnsupportedMarker = errors.New("amf3: unsupported type marker")
	// ErrUnsupportedType is returned for values this package cannot encode or decode
	ErrUnsupportedType = errors.New("amf3: unsupported type")
	// ErrInvalidReference is returned when a reference points past the end of its table
	ErrInvalidReference = errors.New("amf3: invalid reference")
	// ErrMaxDepth is returned when values are nested deeper than the decoder or encoder allows
	ErrMaxDepth = errors.New("amf3: maximum nesting depth exceeded")
)

// TypeName returns a readable name for a type marker
func TypeName(marker byte) string {
	switch marker {
	case TypeUndefined:
		return "undefined"
	case TypeNull:
		return "null"
	case TypeFalse:
		return "false"
	case TypeTrue:
		return "true"
	case TypeInteger:
		return "integer"
	case TypeDouble:
		return "double"
	case TypeString:
		return "string"
	case TypeXMLDocument:
		return "xml-document"
	case TypeDate:
		return "date"
	case TypeArray:
		return "array"
	case TypeObject:
		return "object"
	case TypeXML:
		return "xml"
	case TypeByteArray:
		return "byte-array"
	case TypeVectorInt:
		return "vector-int"
	case TypeVectorUint:
		return "vector-uint"
	case TypeVectorDouble:
		return "vector-double"
	case TypeVectorObject:
		return "vector-object"
	case TypeDictionary:
		return "dictionary"
	default:
		return fmt.Sprintf("marker(0x%02x)", marker)
	}
}

// Value represents any AMF3 value
//
//goland:noinspection ALL
type Value interface {
	Type() byte
}

// Undefined represents an AMF3 Undefined value
//
//goland:noinspection ALL
type Undefined struct{}

func (u Undefined) Type() byte { return TypeUndefined }

// Null represents an AMF3 Null value
//
//goland:noinspection ALL
type Null struct{}

func (n Null) Type() byte { return TypeNull }

// Boolean represents an AMF3 Boolean value (true/false)
//
//goland:noinspection ALL
type Boolean bool

func (b Boolean) Type() byte {
	if b {
		return TypeTrue
	}
	return TypeFalse
}

// Integer represents an AMF3 Integer (29-bit signed integer)
//
//goland:noinspection ALL
type Integer int32

func (i Integer) Type() byte { return TypeInteger }

// Double represents an AMF3 Double (IEEE-754 double precision floating point)
//
//goland:noinspection ALL
type Double float64

func (d Double) Type() byte { return TypeDouble }

// String represents an AMF3 String
//
//goland:noinspection ALL
type String string

func (s String) Type() byte { return TypeString }

// Date represents an AMF3 Date
//
//goland:noinspection ALL
type Date struct {
	Time time.Time
}

func (d *Date) Type() byte { return TypeDate }

// XMLDocument represents a legacy flash.xml.XMLDocument
//
//goland:noinspection ALL
type XMLDocument struct {
	Data string
}

func (x *XMLDocument) Type() byte { return TypeXMLDocument }

// XML represents an E4X XML value
//
//goland:noinspection ALL
type XML struct {
	Data string
}

func (x *XML) Type() byte { return TypeXML }

// ByteArray represents a flash.utils.ByteArray
//
//goland:noinspection ALL
type ByteArray struct {
	Data []byte
}

func (b *ByteArray) Type() byte { return TypeByteArray }

// Array represents an AMF3 Array with dense and associative parts
//
//goland:noinspection ALL
type Array struct {
	Dense       []Value          // Dense array elements
	Associative map[string]Value // Associative properties
}

func (a *Array) Type() byte { return TypeArray }

// Traits represents object traits (class definition) in AMF3
//
//goland:noinspection ALL
type Traits struct {
	ClassName      string   // Class name (empty string for anonymous object)
	Dynamic        bool     // Whether object accepts dynamic properties
	Externalizable bool     // Whether object is externalizable
	Properties     []string // Sealed property names, in wire order
}

// Object represents an AMF3 Object with traits and properties
//
//goland:noinspection ALL
type Object struct {
	Traits     *Traits          // Object traits definition
	Properties map[string]Value // Sealed and dynamic properties
	External   Value            // Body of a supported externalizable class
}

func (o *Object) Type() byte { return TypeObject }

// VectorInt represents a Vector.<int>
//
//goland:noinspection ALL
type VectorInt struct {
	Fixed bool
	Items []int32
}

func (v *VectorInt) Type() byte { return TypeVectorInt }

// VectorUint represents a Vector.<uint>
//
//goland:noinspection ALL
type VectorUint struct {
	Fixed bool
	Items []uint32
}

func (v *VectorUint) Type() byte { return TypeVectorUint }

// VectorDouble represents a Vector.<Number>
//
//goland:noinspection ALL
type VectorDouble struct {
	Fixed bool
	Items []float64
}

func (v *VectorDouble) Type() byte { return TypeVectorDouble }

// VectorObject represents a Vector.<T> of objects
//
//goland:noinspection ALL
type VectorObject struct {
	Fixed    bool
	TypeName string // element class name, "*" for any
	Items    []Value
}

func (v *VectorObject) Type() byte { return TypeVectorObject }

// DictionaryEntry is a single key/value pair of a Dictionary
//
//goland:noinspection ALL
type DictionaryEntry struct {
	Key   Value
	Value Value
}

// Dictionary represents a flash.utils.Dictionary, whose keys may be any value
//
//goland:noinspection ALL
type Dictionary struct {
	WeakKeys bool
	Entries  []DictionaryEntry
}

func (d *Dictionary) Type() byte { return TypeDictionary }
