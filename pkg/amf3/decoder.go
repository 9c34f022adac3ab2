package amf3

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/DMA-Software/dma-goamf/pkg/amf3/wire"
)

// DefaultMaxDepth is the nesting limit used when none is configured
const DefaultMaxDepth = 256

// externalizable classes whose body is a single AMF3 value
var wrapperClasses = map[string]bool{
	"flex.messaging.io.ArrayCollection": true,
	"flex.messaging.io.ObjectProxy":     true,
	"mx.collections.ArrayCollection":    true,
}

// TraceEvent describes one primitive read by the decoder
type TraceEvent struct {
	Offset int    // position of the first byte
	Raw    []byte // bytes the primitive consumed; aliases the input
	Kind   string // marker, integer, double, string, header, bytes, ...
	Detail string // decoded meaning
	Depth  int    // nesting depth of the value being decoded
}

// TraceFunc receives every primitive the decoder reads
type TraceFunc func(TraceEvent)

// DecoderOption configures a Decoder
type DecoderOption func(*Decoder)

// WithLogger makes the decoder log reference table activity at debug level
func WithLogger(logger logrus.FieldLogger) DecoderOption {
	return func(d *Decoder) {
		d.logger = logger
	}
}

// WithMaxStringLength caps the length of any single string, XML, byte array or vector body
func WithMaxStringLength(n int) DecoderOption {
	return func(d *Decoder) {
		d.r.MaxStringLength = n
	}
}

// WithMaxDepth sets the nesting limit for arrays, objects, vectors and dictionaries
func WithMaxDepth(n int) DecoderOption {
	return func(d *Decoder) {
		d.maxDepth = n
	}
}

// WithTrace registers a callback invoked for every primitive read
func WithTrace(fn TraceFunc) DecoderOption {
	return func(d *Decoder) {
		d.trace = fn
	}
}

// Decoder decodes a sequence of AMF3 values from a byte slice.
// The reference tables persist across Decode calls, as they do within one AMF3 message.
type Decoder struct {
	data []byte
	r    *wire.Reader

	stringTable []string
	objectTable []Value
	traitsTable []*Traits

	logger   logrus.FieldLogger
	trace    TraceFunc
	maxDepth int
	depth    int
}

// NewDecoder creates a new AMF3 decoder that reads from data
func NewDecoder(data []byte, opts ...DecoderOption) *Decoder {
	d := &Decoder{
		data:     data,
		r:        wire.NewReader(data),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Unmarshal decodes the first AMF3 value in data
func Unmarshal(data []byte, opts ...DecoderOption) (Value, error) {
	return NewDecoder(data, opts...).Decode()
}

// Offset returns the number of bytes consumed so far
func (d *Decoder) Offset() int {
	return d.r.Offset()
}

// More reports whether unread bytes remain
func (d *Decoder) More() bool {
	return d.r.Len() > 0
}

// Seek moves the decoder to an absolute offset without touching the reference tables
func (d *Decoder) Seek(off int) error {
	return d.r.Seek(off)
}

// Decode decodes the next AMF3 value
func (d *Decoder) Decode() (Value, error) {
	return d.decodeValue()
}

// DecodeAll decodes values until the input is exhausted
func (d *Decoder) DecodeAll() ([]Value, error) {
	var values []Value
	for d.More() {
		v, err := d.decodeValue()
		if err != nil {
			return values, err
		}
		values = append(values, v)
	}
	return values, nil
}

// decodeValue reads a type marker and the value it announces
func (d *Decoder) decodeValue() (Value, error) {
	start := d.r.Offset()
	marker, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}
	d.emit(start, "marker", TypeName(marker))

	switch marker {
	case TypeUndefined:
		return Undefined{}, nil
	case TypeNull:
		return Null{}, nil
	case TypeFalse:
		return Boolean(false), nil
	case TypeTrue:
		return Boolean(true), nil
	case TypeInteger:
		return d.decodeInteger()
	case TypeDouble:
		return d.decodeDouble()
	case TypeString:
		s, err := d.readString()
		if err != nil {
			return nil, err
		}
		return String(s), nil
	case TypeXMLDocument:
		return d.decodeXML(true)
	case TypeDate:
		return d.decodeDate()
	case TypeArray:
		return d.nested(d.decodeArray)
	case TypeObject:
		return d.nested(d.decodeObject)
	case TypeXML:
		return d.decodeXML(false)
	case TypeByteArray:
		return d.decodeByteArray()
	case TypeVectorInt, TypeVectorUint, TypeVectorDouble:
		return d.decodeNumericVector(marker)
	case TypeVectorObject:
		return d.nested(d.decodeObjectVector)
	case TypeDictionary:
		return d.nested(d.decodeDictionary)
	default:
		return nil, fmt.Errorf("%w: 0x%02x at offset %d", ErrUnsupportedMarker, marker, start)
	}
}

// nested runs fn one level deeper, enforcing the depth limit
func (d *Decoder) nested(fn func() (Value, error)) (Value, error) {
	if d.depth >= d.maxDepth {
		return nil, fmt.Errorf("%w: %d at offset %d", ErrMaxDepth, d.maxDepth, d.r.Offset())
	}
	d.depth++
	defer func() { d.depth-- }()
	return fn()
}

// decodeInteger decodes an AMF3 integer
func (d *Decoder) decodeInteger() (Value, error) {
	start := d.r.Offset()
	v, err := d.r.ReadSignedVarint()
	if err != nil {
		return nil, err
	}
	d.emit(start, "integer", fmt.Sprintf("%d", v))
	return Integer(v), nil
}

// decodeDouble decodes an IEEE-754 double precision floating point number
func (d *Decoder) decodeDouble() (Value, error) {
	start := d.r.Offset()
	v, err := d.r.ReadDouble()
	if err != nil {
		return nil, err
	}
	d.emit(start, "double", fmt.Sprintf("%g", v))
	return Double(v), nil
}

// readString reads a string with reference support
func (d *Decoder) readString() (string, error) {
	start := d.r.Offset()
	result, err := d.r.ReadString()
	if err != nil {
		return "", err
	}

	switch result.Kind {
	case wire.StringEmpty:
		// empty strings are never added to the reference table
		d.emit(start, "string", `""`)
		return "", nil
	case wire.StringReference:
		index := result.TableIndex()
		if int(index) >= len(d.stringTable) {
			return "", fmt.Errorf("%w: string %d of %d at offset %d", ErrInvalidReference, index, len(d.stringTable), start)
		}
		s := d.stringTable[index]
		d.emit(start, "string-ref", fmt.Sprintf("#%d %q", index, s))
		d.debug("string", index, start, "resolved reference")
		return s, nil
	}

	s := string(result.Bytes)
	d.stringTable = append(d.stringTable, s)
	d.emit(start, "string", fmt.Sprintf("%q", s))
	d.debug("string", uint32(len(d.stringTable)-1), start, "registered reference")
	return s, nil
}

// readHeader reads a reference-or-inline header and resolves references against the object table
func (d *Decoder) readHeader(kind string) (wire.ReferenceHeader, Value, error) {
	start := d.r.Offset()
	header, err := d.r.ReadReferenceHeader()
	if err != nil {
		return header, nil, err
	}

	if !header.IsReference {
		d.emit(start, "header", fmt.Sprintf("%s inline %d", kind, header.Inline()))
		return header, nil, nil
	}

	index := header.TableIndex()
	if int(index) >= len(d.objectTable) {
		return header, nil, fmt.Errorf("%w: %s %d of %d at offset %d", ErrInvalidReference, kind, index, len(d.objectTable), start)
	}
	ref := d.objectTable[index]
	d.emit(start, "header", fmt.Sprintf("%s reference #%d", kind, index))
	d.debug("object", index, start, "resolved reference")
	return header, ref, nil
}

// register adds an inline value to the object table
func (d *Decoder) register(v Value) {
	d.objectTable = append(d.objectTable, v)
	d.debug("object", uint32(len(d.objectTable)-1), d.r.Offset(), "registered reference")
}

// readBytes reads n raw bytes, honouring the configured body limit
func (d *Decoder) readBytes(n uint32) ([]byte, error) {
	if limit := d.r.MaxStringLength; limit > 0 && int(n) > limit {
		return nil, fmt.Errorf("%w: length %d exceeds limit %d at offset %d", wire.ErrAllocationFailure, n, limit, d.r.Offset())
	}
	start := d.r.Offset()
	b, err := d.r.ReadBytes(int(n))
	if err != nil {
		return nil, err
	}
	d.emit(start, "bytes", fmt.Sprintf("%d bytes", n))
	return b, nil
}

// decodeXML decodes an XMLDocument or XML value, both carried as UTF-8 text
func (d *Decoder) decodeXML(document bool) (Value, error) {
	header, ref, err := d.readHeader("xml")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	b, err := d.readBytes(header.Inline())
	if err != nil {
		return nil, err
	}

	var v Value
	if document {
		v = &XMLDocument{Data: string(b)}
	} else {
		v = &XML{Data: string(b)}
	}
	d.register(v)
	return v, nil
}

// decodeDate decodes a date value
func (d *Decoder) decodeDate() (Value, error) {
	_, ref, err := d.readHeader("date")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	start := d.r.Offset()
	millis, err := d.r.ReadDouble()
	if err != nil {
		return nil, err
	}
	d.emit(start, "double", fmt.Sprintf("%g ms", millis))

	v := &Date{Time: millisToTime(millis)}
	d.register(v)
	return v, nil
}

// millisToTime converts milliseconds since the Unix epoch to UTC time
func millisToTime(millis float64) time.Time {
	if math.IsNaN(millis) || math.IsInf(millis, 0) {
		return time.Time{}
	}
	whole, frac := math.Modf(millis)
	return time.UnixMilli(int64(whole)).Add(time.Duration(frac * 1e6)).UTC()
}

// decodeByteArray decodes a flash.utils.ByteArray
func (d *Decoder) decodeByteArray() (Value, error) {
	header, ref, err := d.readHeader("byte-array")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	b, err := d.readBytes(header.Inline())
	if err != nil {
		return nil, err
	}
	v := &ByteArray{Data: b}
	d.register(v)
	return v, nil
}

// decodeArray decodes an array with dense and associative parts
func (d *Decoder) decodeArray() (Value, error) {
	header, ref, err := d.readHeader("array")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	denseLength := header.Inline()
	array := &Array{Associative: make(map[string]Value)}

	// Add to the reference table first (for self-references)
	d.register(array)

	// Read associative part (key-value pairs until empty string)
	for {
		key, err := d.readString()
		if err != nil {
			return nil, err
		}
		if key == "" {
			break
		}
		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		array.Associative[key] = value
	}

	// every dense element takes at least its marker byte
	if int(denseLength) > d.r.Len() {
		return nil, fmt.Errorf("%w: array of %d elements with %d bytes left", wire.ErrTruncatedInput, denseLength, d.r.Len())
	}
	array.Dense = make([]Value, 0, denseLength)
	for i := uint32(0); i < denseLength; i++ {
		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		array.Dense = append(array.Dense, value)
	}

	return array, nil
}

// decodeObject decodes an object and its traits
func (d *Decoder) decodeObject() (Value, error) {
	header, ref, err := d.readHeader("object")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	traits, err := d.readTraits(header.Header)
	if err != nil {
		return nil, err
	}

	object := &Object{
		Traits:     traits,
		Properties: make(map[string]Value, len(traits.Properties)),
	}

	// Add to the reference table first (for self-references)
	d.register(object)

	if traits.Externalizable {
		if !wrapperClasses[traits.ClassName] {
			return nil, fmt.Errorf("%w: externalizable class %q", ErrUnsupportedType, traits.ClassName)
		}
		object.External, err = d.decodeValue()
		if err != nil {
			return nil, err
		}
		return object, nil
	}

	for _, name := range traits.Properties {
		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		object.Properties[name] = value
	}

	if traits.Dynamic {
		for {
			key, err := d.readString()
			if err != nil {
				return nil, err
			}
			if key == "" {
				break
			}
			value, err := d.decodeValue()
			if err != nil {
				return nil, err
			}
			object.Properties[key] = value
		}
	}

	return object, nil
}

// readTraits resolves a traits reference or reads an inline traits definition.
// header is the object's full U29 header, bit 0 already known to be set.
func (d *Decoder) readTraits(header uint32) (*Traits, error) {
	start := d.r.Offset()

	if (header>>1)&1 == 0 {
		index := header >> 2
		if int(index) >= len(d.traitsTable) {
			return nil, fmt.Errorf("%w: traits %d of %d at offset %d", ErrInvalidReference, index, len(d.traitsTable), start)
		}
		d.debug("traits", index, start, "resolved reference")
		return d.traitsTable[index], nil
	}

	traits := &Traits{
		Externalizable: (header>>2)&1 == 1,
		Dynamic:        (header>>3)&1 == 1,
	}
	sealedCount := header >> 4

	className, err := d.readString()
	if err != nil {
		return nil, err
	}
	traits.ClassName = className

	if !traits.Externalizable {
		// every sealed name takes at least one byte
		if int(sealedCount) > d.r.Len() {
			return nil, fmt.Errorf("%w: %d sealed members with %d bytes left", wire.ErrTruncatedInput, sealedCount, d.r.Len())
		}
		traits.Properties = make([]string, 0, sealedCount)
		for i := uint32(0); i < sealedCount; i++ {
			name, err := d.readString()
			if err != nil {
				return nil, err
			}
			traits.Properties = append(traits.Properties, name)
		}
	}

	d.traitsTable = append(d.traitsTable, traits)
	d.debug("traits", uint32(len(d.traitsTable)-1), start, "registered reference")
	return traits, nil
}

// decodeNumericVector decodes Vector.<int>, Vector.<uint> and Vector.<Number>
func (d *Decoder) decodeNumericVector(marker byte) (Value, error) {
	header, ref, err := d.readHeader(TypeName(marker))
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	count := int(header.Inline())
	fixed, err := d.readFixed()
	if err != nil {
		return nil, err
	}

	size := 4
	if marker == TypeVectorDouble {
		size = wire.DoubleSize
	}
	if count > d.r.Len()/size {
		return nil, fmt.Errorf("%w: %s of %d items with %d bytes left", wire.ErrTruncatedInput, TypeName(marker), count, d.r.Len())
	}

	raw, err := d.readBytes(uint32(count * size))
	if err != nil {
		return nil, err
	}

	var v Value
	switch marker {
	case TypeVectorInt:
		items := make([]int32, count)
		for i := range items {
			items[i] = int32(binary.BigEndian.Uint32(raw[i*4:]))
		}
		v = &VectorInt{Fixed: fixed, Items: items}
	case TypeVectorUint:
		items := make([]uint32, count)
		for i := range items {
			items[i] = binary.BigEndian.Uint32(raw[i*4:])
		}
		v = &VectorUint{Fixed: fixed, Items: items}
	default:
		items := make([]float64, count)
		for i := range items {
			items[i], _ = wire.DecodeDouble(raw[i*wire.DoubleSize:])
		}
		v = &VectorDouble{Fixed: fixed, Items: items}
	}

	d.register(v)
	return v, nil
}

// readFixed reads the fixed-length flag byte of vectors
func (d *Decoder) readFixed() (bool, error) {
	start := d.r.Offset()
	b, err := d.r.ReadByte()
	if err != nil {
		return false, err
	}
	d.emit(start, "flag", fmt.Sprintf("fixed=%t", b != 0))
	return b != 0, nil
}

// decodeObjectVector decodes a Vector.<T> of arbitrary values
func (d *Decoder) decodeObjectVector() (Value, error) {
	header, ref, err := d.readHeader("vector-object")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	count := header.Inline()
	fixed, err := d.readFixed()
	if err != nil {
		return nil, err
	}
	typeName, err := d.readString()
	if err != nil {
		return nil, err
	}

	if int(count) > d.r.Len() {
		return nil, fmt.Errorf("%w: vector of %d items with %d bytes left", wire.ErrTruncatedInput, count, d.r.Len())
	}

	vector := &VectorObject{Fixed: fixed, TypeName: typeName, Items: make([]Value, 0, count)}
	d.register(vector)

	for i := uint32(0); i < count; i++ {
		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		vector.Items = append(vector.Items, value)
	}
	return vector, nil
}

// decodeDictionary decodes a flash.utils.Dictionary
func (d *Decoder) decodeDictionary() (Value, error) {
	header, ref, err := d.readHeader("dictionary")
	if err != nil {
		return nil, err
	}
	if ref != nil {
		return ref, nil
	}

	count := header.Inline()
	weak, err := d.readFixed()
	if err != nil {
		return nil, err
	}

	// every entry takes at least two marker bytes
	if int(count) > d.r.Len()/2 {
		return nil, fmt.Errorf("%w: dictionary of %d entries with %d bytes left", wire.ErrTruncatedInput, count, d.r.Len())
	}

	dict := &Dictionary{WeakKeys: weak, Entries: make([]DictionaryEntry, 0, count)}
	d.register(dict)

	for i := uint32(0); i < count; i++ {
		key, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		value, err := d.decodeValue()
		if err != nil {
			return nil, err
		}
		dict.Entries = append(dict.Entries, DictionaryEntry{Key: key, Value: value})
	}
	return dict, nil
}

// emit reports the primitive that started at start to the trace callback
func (d *Decoder) emit(start int, kind, detail string) {
	if d.trace == nil {
		return
	}
	d.trace(TraceEvent{
		Offset: start,
		Raw:    d.data[start:d.r.Offset()],
		Kind:   kind,
		Detail: detail,
		Depth:  d.depth,
	})
}

// debug logs reference table activity
func (d *Decoder) debug(table string, index uint32, offset int, msg string) {
	if d.logger == nil {
		return
	}
	d.logger.WithFields(logrus.Fields{
		"table":  table,
		"index":  index,
		"offset": offset,
	}).Debug(msg)
}
