package amf3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/DMA-Software/dma-goamf/pkg/amf3/wire"
)

// Encoder provides encoding of Go values to AMF3 format.
// Like the decoder, it keeps its reference tables across Encode calls.
type Encoder struct {
	writer io.Writer
	buf    []byte

	stringTable map[string]int
	objectTable map[Value]int
	traitsTable map[string]int
	objectCount int

	maxDepth int
	depth    int
}

// tableMark records the size of the reference tables before an Encode call
type tableMark struct {
	strings int
	traits  int
	objects int
}

// NewEncoder creates a new AMF3 encoder that writes to the provided writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer:      w,
		stringTable: make(map[string]int),
		objectTable: make(map[Value]int),
		traitsTable: make(map[string]int),
		maxDepth:    DefaultMaxDepth,
	}
}

// SetMaxDepth sets the nesting limit for arrays, objects, vectors and dictionaries
func (e *Encoder) SetMaxDepth(n int) {
	e.maxDepth = n
}

// Marshal encodes a single value with a fresh encoder
func Marshal(value any) ([]byte, error) {
	var out bytes.Buffer
	if err := NewEncoder(&out).Encode(value); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Encode encodes a Go value to AMF3 format and writes it out.
// If encoding or writing fails, the reference tables are restored to their
// state before the call so later values never point at unsent ones.
func (e *Encoder) Encode(value any) error {
	e.buf = e.buf[:0]
	e.depth = 0
	mark := tableMark{strings: len(e.stringTable), traits: len(e.traitsTable), objects: e.objectCount}

	if err := e.encodeValue(value); err != nil {
		e.rollback(mark)
		return err
	}
	if _, err := e.writer.Write(e.buf); err != nil {
		e.rollback(mark)
		return err
	}
	return nil
}

// rollback drops every table entry registered after mark was taken
func (e *Encoder) rollback(mark tableMark) {
	for s, index := range e.stringTable {
		if index >= mark.strings {
			delete(e.stringTable, s)
		}
	}
	for key, index := range e.traitsTable {
		if index >= mark.traits {
			delete(e.traitsTable, key)
		}
	}
	for v, index := range e.objectTable {
		if index >= mark.objects {
			delete(e.objectTable, v)
		}
	}
	e.objectCount = mark.objects
}

// nested runs fn one level deeper, enforcing the depth limit
func (e *Encoder) nested(fn func() error) error {
	if e.depth >= e.maxDepth {
		return fmt.Errorf("%w: %d", ErrMaxDepth, e.maxDepth)
	}
	e.depth++
	defer func() { e.depth-- }()
	return fn()
}

// encodeValue encodes any Go value to AMF3 format
func (e *Encoder) encodeValue(value any) error {
	switch v := value.(type) {
	case nil:
		e.writeByte(TypeNull)
	case bool:
		e.encodeBoolean(v)
	case int:
		e.encodeInt64(int64(v))
	case int8:
		e.encodeInteger(int32(v))
	case int16:
		e.encodeInteger(int32(v))
	case int32:
		e.encodeInt64(int64(v))
	case int64:
		e.encodeInt64(v)
	case uint:
		e.encodeUint64(uint64(v))
	case uint8:
		e.encodeInteger(int32(v))
	case uint16:
		e.encodeInteger(int32(v))
	case uint32:
		e.encodeUint64(uint64(v))
	case uint64:
		e.encodeUint64(v)
	case float32:
		e.encodeDouble(float64(v))
	case float64:
		e.encodeDouble(v)
	case string:
		e.writeByte(TypeString)
		return e.writeString(v)
	case []byte:
		return e.encodeByteArray(&ByteArray{Data: v})
	case time.Time:
		e.encodeDate(v)
	case []any:
		return e.nested(func() error { return e.encodeArray(v, nil) })
	case []Value:
		dense := make([]any, len(v))
		for i, item := range v {
			dense[i] = item
		}
		return e.nested(func() error { return e.encodeArray(dense, nil) })
	case []int32:
		return e.encodeVectorInt(&VectorInt{Items: v})
	case []uint32:
		return e.encodeVectorUint(&VectorUint{Items: v})
	case []float64:
		return e.encodeVectorDouble(&VectorDouble{Items: v})
	case map[string]any:
		return e.nested(func() error { return e.encodeAnonymousObject(v) })
	case Value:
		return e.encodeAMF3Value(v)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
	return nil
}

// encodeAMF3Value encodes a Value to AMF3 format
func (e *Encoder) encodeAMF3Value(value Value) error {
	switch v := value.(type) {
	case Undefined:
		e.writeByte(TypeUndefined)
	case Null:
		e.writeByte(TypeNull)
	case Boolean:
		e.encodeBoolean(bool(v))
	case Integer:
		e.encodeInt64(int64(v))
	case Double:
		e.encodeDouble(float64(v))
	case String:
		e.writeByte(TypeString)
		return e.writeString(string(v))
	case *Date:
		if e.writeReference(TypeDate, v) {
			return nil
		}
		e.writeInlineDate(v.Time)
	case *XMLDocument:
		return e.encodeXML(TypeXMLDocument, v, v.Data)
	case *XML:
		return e.encodeXML(TypeXML, v, v.Data)
	case *ByteArray:
		return e.encodeByteArray(v)
	case *Array:
		return e.nested(func() error { return e.encodeArrayValue(v) })
	case *Object:
		return e.nested(func() error { return e.encodeObject(v) })
	case *VectorInt:
		return e.encodeVectorInt(v)
	case *VectorUint:
		return e.encodeVectorUint(v)
	case *VectorDouble:
		return e.encodeVectorDouble(v)
	case *VectorObject:
		return e.nested(func() error { return e.encodeVectorObject(v) })
	case *Dictionary:
		return e.nested(func() error { return e.encodeDictionary(v) })
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, value)
	}
	return nil
}

// encodeBoolean encodes a boolean value
func (e *Encoder) encodeBoolean(value bool) {
	if value {
		e.writeByte(TypeTrue)
		return
	}
	e.writeByte(TypeFalse)
}

// encodeInteger encodes a 29-bit signed integer using variable-length encoding
func (e *Encoder) encodeInteger(value int32) {
	e.writeByte(TypeInteger)
	e.buf = wire.AppendVarint(e.buf, value)
}

// encodeInt64 encodes an integer, falling back to a double outside the 29-bit range
func (e *Encoder) encodeInt64(value int64) {
	if value >= wire.MinInt29 && value <= wire.MaxInt29 {
		e.encodeInteger(int32(value))
		return
	}
	e.encodeDouble(float64(value))
}

// encodeUint64 encodes an unsigned integer, falling back to a double outside the 29-bit range
func (e *Encoder) encodeUint64(value uint64) {
	if value <= wire.MaxInt29 {
		e.encodeInteger(int32(value))
		return
	}
	e.encodeDouble(float64(value))
}

// encodeDouble encodes an IEEE-754 double precision floating point number
func (e *Encoder) encodeDouble(value float64) {
	e.writeByte(TypeDouble)
	e.buf = wire.AppendDouble(e.buf, value)
}

// encodeDate encodes a time.Time as an inline date
func (e *Encoder) encodeDate(value time.Time) {
	e.writeByte(TypeDate)
	e.writeInlineDate(value)
}

// writeInlineDate writes an inline date header and its timestamp; the marker is already written
func (e *Encoder) writeInlineDate(value time.Time) {
	e.buf, _ = wire.AppendInlineHeader(e.buf, 0)
	e.objectCount++
	e.buf = wire.AppendDouble(e.buf, timeToMillis(value))
}

// timeToMillis converts a time to milliseconds since the Unix epoch
func timeToMillis(t time.Time) float64 {
	return float64(t.UnixMilli()) + float64(t.Nanosecond()%1e6)/1e6
}

// encodeXML encodes an XMLDocument or XML value
func (e *Encoder) encodeXML(marker byte, ref Value, data string) error {
	if e.writeReference(marker, ref) {
		return nil
	}
	if err := e.writeInlineHeader(uint32(len(data))); err != nil {
		return err
	}
	e.objectCount++
	e.buf = append(e.buf, data...)
	return nil
}

// encodeByteArray encodes a flash.utils.ByteArray
func (e *Encoder) encodeByteArray(value *ByteArray) error {
	if e.writeReference(TypeByteArray, value) {
		return nil
	}
	if err := e.writeInlineHeader(uint32(len(value.Data))); err != nil {
		return err
	}
	e.objectCount++
	e.buf = append(e.buf, value.Data...)
	return nil
}

// encodeArray encodes an array with dense and associative parts
func (e *Encoder) encodeArray(dense []any, associative map[string]any) error {
	e.writeByte(TypeArray)
	return e.writeInlineArray(dense, associative)
}

// encodeArrayValue encodes an Array value, by reference if it was seen before
func (e *Encoder) encodeArrayValue(v *Array) error {
	if e.writeReference(TypeArray, v) {
		return nil
	}
	dense := make([]any, len(v.Dense))
	for i, item := range v.Dense {
		dense[i] = item
	}
	associative := make(map[string]any, len(v.Associative))
	for k, item := range v.Associative {
		associative[k] = item
	}
	return e.writeInlineArray(dense, associative)
}

// writeInlineArray writes an inline array body; the marker is already written
func (e *Encoder) writeInlineArray(dense []any, associative map[string]any) error {
	if err := e.writeInlineHeader(uint32(len(dense))); err != nil {
		return err
	}
	e.objectCount++

	// Write associative part (key-value pairs, empty key terminates)
	for _, key := range sortedKeys(associative) {
		if key == "" {
			continue
		}
		if err := e.writeString(key); err != nil {
			return err
		}
		if err := e.encodeValue(associative[key]); err != nil {
			return err
		}
	}
	if err := e.writeString(""); err != nil {
		return err
	}

	for _, item := range dense {
		if err := e.encodeValue(item); err != nil {
			return err
		}
	}
	return nil
}

// encodeAnonymousObject encodes a map as an anonymous dynamic object
func (e *Encoder) encodeAnonymousObject(value map[string]any) error {
	e.writeByte(TypeObject)
	if err := e.writeTraits(&Traits{Dynamic: true}); err != nil {
		return err
	}
	e.objectCount++
	return e.writeDynamicMembers(value)
}

// encodeObject encodes an Object with its traits
func (e *Encoder) encodeObject(value *Object) error {
	if e.writeReference(TypeObject, value) {
		return nil
	}

	traits := value.Traits
	if traits == nil {
		traits = &Traits{Dynamic: true}
	}
	if traits.Externalizable && !wrapperClasses[traits.ClassName] {
		return fmt.Errorf("%w: externalizable class %q", ErrUnsupportedType, traits.ClassName)
	}

	if err := e.writeTraits(traits); err != nil {
		return err
	}
	e.objectCount++

	if traits.Externalizable {
		return e.encodeValue(value.External)
	}

	sealed := make(map[string]bool, len(traits.Properties))
	for _, name := range traits.Properties {
		sealed[name] = true
		if err := e.encodeValue(valueOrUndefined(value.Properties, name)); err != nil {
			return err
		}
	}

	if !traits.Dynamic {
		return nil
	}

	dynamic := make(map[string]any, len(value.Properties))
	for k, v := range value.Properties {
		if !sealed[k] {
			dynamic[k] = v
		}
	}
	return e.writeDynamicMembers(dynamic)
}

// valueOrUndefined looks up a sealed member, missing members are written as undefined
func valueOrUndefined(properties map[string]Value, name string) Value {
	if v, ok := properties[name]; ok && v != nil {
		return v
	}
	return Undefined{}
}

// writeDynamicMembers writes key/value pairs terminated by the empty string
func (e *Encoder) writeDynamicMembers(members map[string]any) error {
	for _, key := range sortedKeys(members) {
		if key == "" {
			continue
		}
		if err := e.writeString(key); err != nil {
			return err
		}
		if err := e.encodeValue(members[key]); err != nil {
			return err
		}
	}
	return e.writeString("")
}

// writeTraits writes a traits reference or an inline traits definition
func (e *Encoder) writeTraits(traits *Traits) error {
	key := traitsKey(traits)
	if index, ok := e.traitsTable[key]; ok {
		// object inline (bit 0), traits by reference (bit 1 clear)
		e.buf = wire.AppendVarint(e.buf, int32(index<<2|0x01))
		return nil
	}

	count := len(traits.Properties)
	if traits.Externalizable {
		count = 0
	}
	if count > wire.MaxUint29>>4 {
		return fmt.Errorf("%w: %d sealed members", wire.ErrOutOfRange, count)
	}

	header := uint32(count)<<4 | 0x03
	if traits.Externalizable {
		header |= 0x04
	}
	if traits.Dynamic {
		header |= 0x08
	}
	e.buf = wire.AppendVarint(e.buf, int32(header))
	e.traitsTable[key] = len(e.traitsTable)

	if err := e.writeString(traits.ClassName); err != nil {
		return err
	}
	if traits.Externalizable {
		return nil
	}
	for _, name := range traits.Properties {
		if err := e.writeString(name); err != nil {
			return err
		}
	}
	return nil
}

// traitsKey identifies traits that can share a traits table entry.
// Every name is length-prefixed so no two distinct traits share a key.
func traitsKey(t *Traits) string {
	var b strings.Builder
	b.WriteString(strconv.FormatBool(t.Dynamic))
	b.WriteString(strconv.FormatBool(t.Externalizable))
	for _, name := range append([]string{t.ClassName}, t.Properties...) {
		b.WriteString(strconv.Itoa(len(name)))
		b.WriteByte(':')
		b.WriteString(name)
	}
	return b.String()
}

// encodeVectorInt encodes a Vector.<int>
func (e *Encoder) encodeVectorInt(v *VectorInt) error {
	if e.writeReference(TypeVectorInt, v) {
		return nil
	}
	if err := e.writeVectorHeader(len(v.Items), v.Fixed); err != nil {
		return err
	}
	for _, item := range v.Items {
		e.buf = binary.BigEndian.AppendUint32(e.buf, uint32(item))
	}
	return nil
}

// encodeVectorUint encodes a Vector.<uint>
func (e *Encoder) encodeVectorUint(v *VectorUint) error {
	if e.writeReference(TypeVectorUint, v) {
		return nil
	}
	if err := e.writeVectorHeader(len(v.Items), v.Fixed); err != nil {
		return err
	}
	for _, item := range v.Items {
		e.buf = binary.BigEndian.AppendUint32(e.buf, item)
	}
	return nil
}

// encodeVectorDouble encodes a Vector.<Number>
func (e *Encoder) encodeVectorDouble(v *VectorDouble) error {
	if e.writeReference(TypeVectorDouble, v) {
		return nil
	}
	if err := e.writeVectorHeader(len(v.Items), v.Fixed); err != nil {
		return err
	}
	for _, item := range v.Items {
		e.buf = wire.AppendDouble(e.buf, item)
	}
	return nil
}

// encodeVectorObject encodes a Vector.<T> of values
func (e *Encoder) encodeVectorObject(v *VectorObject) error {
	if e.writeReference(TypeVectorObject, v) {
		return nil
	}
	if err := e.writeVectorHeader(len(v.Items), v.Fixed); err != nil {
		return err
	}
	typeName := v.TypeName
	if typeName == "" {
		typeName = "*"
	}
	if err := e.writeString(typeName); err != nil {
		return err
	}
	for _, item := range v.Items {
		if err := e.encodeValue(item); err != nil {
			return err
		}
	}
	return nil
}

// writeVectorHeader writes the inline count and fixed flag shared by all vectors
func (e *Encoder) writeVectorHeader(count int, fixed bool) error {
	if err := e.writeInlineHeader(uint32(count)); err != nil {
		return err
	}
	e.objectCount++
	e.writeFlag(fixed)
	return nil
}

// encodeDictionary encodes a flash.utils.Dictionary
func (e *Encoder) encodeDictionary(v *Dictionary) error {
	if e.writeReference(TypeDictionary, v) {
		return nil
	}
	if err := e.writeInlineHeader(uint32(len(v.Entries))); err != nil {
		return err
	}
	e.objectCount++
	e.writeFlag(v.WeakKeys)
	for _, entry := range v.Entries {
		if err := e.encodeValue(entry.Key); err != nil {
			return err
		}
		if err := e.encodeValue(entry.Value); err != nil {
			return err
		}
	}
	return nil
}

// Helper methods for encoding

// writeByte appends a single byte
func (e *Encoder) writeByte(b byte) {
	e.buf = append(e.buf, b)
}

// writeFlag appends a boolean flag byte
func (e *Encoder) writeFlag(b bool) {
	if b {
		e.writeByte(0x01)
		return
	}
	e.writeByte(0x00)
}

// writeInlineHeader appends an inline header, checking the U29 range
func (e *Encoder) writeInlineHeader(meta uint32) error {
	var err error
	e.buf, err = wire.AppendInlineHeader(e.buf, meta)
	return err
}

// writeReference writes the marker and, if value was encoded before, a reference to it.
// It reports whether a reference was written; otherwise value takes the next table slot.
func (e *Encoder) writeReference(marker byte, value Value) bool {
	e.writeByte(marker)
	if index, ok := e.objectTable[value]; ok {
		e.buf, _ = wire.AppendReferenceHeader(e.buf, uint32(index))
		return true
	}
	e.objectTable[value] = e.objectCount
	return false
}

// writeString writes a string with reference table support.
// Empty strings are never added to the reference table.
func (e *Encoder) writeString(s string) error {
	if s == "" {
		e.buf, _ = wire.AppendStringLiteral(e.buf, "")
		return nil
	}

	if index, ok := e.stringTable[s]; ok {
		var err error
		e.buf, err = wire.AppendStringReference(e.buf, uint32(index))
		return err
	}

	var err error
	e.buf, err = wire.AppendStringLiteral(e.buf, s)
	if err != nil {
		return err
	}
	e.stringTable[s] = len(e.stringTable)
	return nil
}

// sortedKeys returns map keys in a stable order
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
