// Package wire implements the framed, self-describing control messages
// exchanged over the IPC fabric: PortRegister, DatapathPortRegister,
// DatapathDown, VirtualPlaneMap, DataPlaneMap, PortConfig and RouteMod.
//
// Every message is encoded as a small self-describing binary document: an
// ordered list of named fields, each either a scalar (stored as a decimal
// string, per the wire contract) or a TLV array (for the match/action/
// option/band lists a RouteMod carries). No third-party codec in the
// reference corpus implements this ad hoc scalars-as-decimal-strings
// format, so the document codec itself is hand-rolled; see DESIGN.md.
package wire

import (
	"encoding/binary"
	"fmt"
	"strconv"

	"github.com/routeflow/rfcoord/internal/values"
)

type fieldKind uint8

const (
	kindScalar fieldKind = iota
	kindTLVArray
)

type field struct {
	key   string
	kind  fieldKind
	value string
	tlvs  []values.TLV
}

// document is an ordered bag of named fields, encoded/decoded as a unit.
type document struct {
	fields []field
}

func newDocument() *document { return &document{} }

func (d *document) putScalar(key string, v int64) {
	d.fields = append(d.fields, field{key: key, kind: kindScalar, value: strconv.FormatInt(v, 10)})
}

func (d *document) putString(key string, v string) {
	d.fields = append(d.fields, field{key: key, kind: kindScalar, value: v})
}

func (d *document) putTLVs(key string, tlvs []values.TLV) {
	d.fields = append(d.fields, field{key: key, kind: kindTLVArray, tlvs: tlvs})
}

func (d *document) get(key string) (field, bool) {
	for _, f := range d.fields {
		if f.key == key {
			return f, true
		}
	}
	return field{}, false
}

// scalar returns the decimal-string field as an int64, clamping to zero on
// a missing field or a parse failure.
//
// This is the "permissive setter" rule from the spec's error-handling
// design: a malformed scalar is coerced to the zero value rather than
// rejected.
func (d *document) scalar(key string) int64 {
	f, ok := d.get(key)
	if !ok {
		return 0
	}
	v, err := strconv.ParseInt(f.value, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func (d *document) str(key string) string {
	f, ok := d.get(key)
	if !ok {
		return ""
	}
	return f.value
}

func (d *document) tlvs(key string) []values.TLV {
	f, ok := d.get(key)
	if !ok {
		return nil
	}
	return f.tlvs
}

// encode serializes the document.
func (d *document) encode() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, byte(len(d.fields)))

	for _, f := range d.fields {
		buf = append(buf, byte(len(f.key)))
		buf = append(buf, f.key...)
		buf = append(buf, byte(f.kind))

		switch f.kind {
		case kindScalar:
			v := []byte(f.value)
			lenBuf := make([]byte, 4)
			binary.BigEndian.PutUint32(lenBuf, uint32(len(v)))
			buf = append(buf, lenBuf...)
			buf = append(buf, v...)
		case kindTLVArray:
			countBuf := make([]byte, 2)
			binary.BigEndian.PutUint16(countBuf, uint16(len(f.tlvs)))
			buf = append(buf, countBuf...)
			for _, t := range f.tlvs {
				buf = append(buf, t.Type)
				lenBuf := make([]byte, 2)
				binary.BigEndian.PutUint16(lenBuf, uint16(len(t.Value)))
				buf = append(buf, lenBuf...)
				buf = append(buf, t.Value...)
			}
		}
	}

	return buf
}

// decodeDocument parses a document previously produced by encode.
func decodeDocument(b []byte) (*document, error) {
	d := newDocument()
	if len(b) < 1 {
		return d, nil
	}

	numFields := int(b[0])
	off := 1

	for i := 0; i < numFields; i++ {
		if off >= len(b) {
			return nil, fmt.Errorf("wire: truncated document at field %d", i)
		}
		keyLen := int(b[off])
		off++
		if off+keyLen > len(b) {
			return nil, fmt.Errorf("wire: truncated key at field %d", i)
		}
		key := string(b[off : off+keyLen])
		off += keyLen

		if off >= len(b) {
			return nil, fmt.Errorf("wire: truncated kind at field %d", i)
		}
		kind := fieldKind(b[off])
		off++

		switch kind {
		case kindScalar:
			if off+4 > len(b) {
				return nil, fmt.Errorf("wire: truncated scalar length at field %d", i)
			}
			vlen := int(binary.BigEndian.Uint32(b[off : off+4]))
			off += 4
			if off+vlen > len(b) {
				return nil, fmt.Errorf("wire: truncated scalar value at field %d", i)
			}
			d.fields = append(d.fields, field{key: key, kind: kindScalar, value: string(b[off : off+vlen])})
			off += vlen
		case kindTLVArray:
			if off+2 > len(b) {
				return nil, fmt.Errorf("wire: truncated tlv count at field %d", i)
			}
			count := int(binary.BigEndian.Uint16(b[off : off+2]))
			off += 2
			tlvs := make([]values.TLV, 0, count)
			for j := 0; j < count; j++ {
				if off+3 > len(b) {
					return nil, fmt.Errorf("wire: truncated tlv header at field %d entry %d", i, j)
				}
				typ := b[off]
				tlvLen := int(binary.BigEndian.Uint16(b[off+1 : off+3]))
				off += 3
				if off+tlvLen > len(b) {
					return nil, fmt.Errorf("wire: truncated tlv value at field %d entry %d", i, j)
				}
				val := make([]byte, tlvLen)
				copy(val, b[off:off+tlvLen])
				off += tlvLen
				tlvs = append(tlvs, values.TLV{Type: typ, Value: val})
			}
			d.fields = append(d.fields, field{key: key, kind: kindTLVArray, tlvs: tlvs})
		default:
			return nil, fmt.Errorf("wire: unknown field kind %d at field %d", kind, i)
		}
	}

	return d, nil
}
