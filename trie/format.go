package trie

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	domainerrors "github.com/reglet-dev/triebridge/domain/errors"
)

// Magic opens every serialized trie.
const Magic = "TBTRIE\x00\x01"

const (
	flagWeightOrder = 1 << 0

	// MaxNodes bounds the node count accepted by Read.
	MaxNodes = 1 << 30
	// MaxTail bounds the label storage accepted by Read.
	MaxTail = 1 << 31
)

var (
	// ErrBadMagic means the input is not a serialized trie.
	ErrBadMagic = errors.New("bad magic")
	// ErrCorrupt means the input is structurally invalid.
	ErrCorrupt = errors.New("corrupt trie")
)

// Layout:
//
//	magic     [8]byte
//	flags     byte
//	numKeys   uvarint
//	numNodes  uvarint
//	tailLen   uvarint
//	tail      [tailLen]byte
//	nodes     numNodes × (labelOff uvarint, labelLen uvarint, children uvarint, terminal byte)
func (t *Trie) appendBinary(b []byte) []byte {
	b = append(b, Magic...)
	var flags byte
	if t.order == WeightOrder {
		flags |= flagWeightOrder
	}
	b = append(b, flags)
	b = binary.AppendUvarint(b, uint64(t.numKeys))
	b = binary.AppendUvarint(b, uint64(len(t.nodes)))
	b = binary.AppendUvarint(b, uint64(len(t.tail)))
	b = append(b, t.tail...)
	for i := range t.nodes {
		n := &t.nodes[i]
		b = binary.AppendUvarint(b, uint64(n.labelOff))
		b = binary.AppendUvarint(b, uint64(n.labelLen))
		b = binary.AppendUvarint(b, uint64(n.count))
		if n.terminal {
			b = append(b, 1)
		} else {
			b = append(b, 0)
		}
	}
	return b
}

// MarshalBinary implements encoding.BinaryMarshaler.
func (t *Trie) MarshalBinary() ([]byte, error) {
	return t.appendBinary(nil), nil
}

// WriteTo serializes the trie to w with a single Write call.
func (t *Trie) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(t.appendBinary(nil))
	if err != nil {
		return int64(n), &domainerrors.WireFormatError{Err: err, Operation: "write", Offset: int64(n)}
	}
	return int64(n), nil
}

// Unmarshal restores a trie from a byte slice.
func Unmarshal(data []byte) (*Trie, error) {
	return Read(bytes.NewReader(data))
}

// Read restores a trie from r. It consumes exactly the serialized bytes and
// never reads past them. The key count in the header is taken as given.
func Read(r io.Reader) (*Trie, error) {
	cr := &countingReader{r: r}
	if br, ok := r.(io.ByteReader); ok {
		cr.br = br
	}

	t, err := read(cr)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		var wfe *domainerrors.WireFormatError
		if errors.As(err, &wfe) {
			return nil, err
		}
		return nil, &domainerrors.WireFormatError{Err: err, Operation: "read", Offset: cr.off}
	}
	return t, nil
}

func read(cr *countingReader) (*Trie, error) {
	var hdr [len(Magic) + 1]byte
	if _, err := io.ReadFull(cr, hdr[:]); err != nil {
		return nil, err
	}
	if string(hdr[:len(Magic)]) != Magic {
		return nil, ErrBadMagic
	}
	flags := hdr[len(Magic)]
	if flags&^flagWeightOrder != 0 {
		return nil, fmt.Errorf("%w: unknown flags %#02x", ErrCorrupt, flags)
	}

	numKeys, err := binary.ReadUvarint(cr)
	if err != nil {
		return nil, err
	}
	numNodes, err := binary.ReadUvarint(cr)
	if err != nil {
		return nil, err
	}
	tailLen, err := binary.ReadUvarint(cr)
	if err != nil {
		return nil, err
	}
	if numNodes == 0 || numNodes > MaxNodes {
		return nil, fmt.Errorf("%w: node count %d", ErrCorrupt, numNodes)
	}
	if numKeys > MaxNodes {
		return nil, fmt.Errorf("%w: key count %d", ErrCorrupt, numKeys)
	}
	if tailLen > MaxTail {
		return nil, fmt.Errorf("%w: label storage of %d bytes", ErrCorrupt, tailLen)
	}

	t := &Trie{order: LabelOrder, numKeys: int(numKeys)}
	if flags&flagWeightOrder != 0 {
		t.order = WeightOrder
	}

	// Grow with the data actually received so a corrupt length cannot force
	// a huge allocation up front.
	var tail bytes.Buffer
	tail.Grow(int(min(tailLen, 64<<10)))
	if _, err := io.CopyN(&tail, cr, int64(tailLen)); err != nil {
		return nil, err
	}
	t.tail = tail.Bytes()

	t.nodes = make([]node, 0, min(numNodes, 1<<16))
	for i := uint64(0); i < numNodes; i++ {
		var fields [3]uint64
		for f := range fields {
			if fields[f], err = binary.ReadUvarint(cr); err != nil {
				return nil, err
			}
			if fields[f] > 1<<32-1 {
				return nil, fmt.Errorf("%w: node %d field out of range", ErrCorrupt, i)
			}
		}
		term, err := cr.ReadByte()
		if err != nil {
			return nil, err
		}
		if term > 1 {
			return nil, fmt.Errorf("%w: node %d terminal flag %#02x", ErrCorrupt, i, term)
		}
		t.nodes = append(t.nodes, node{
			labelOff: uint32(fields[0]),
			labelLen: uint32(fields[1]),
			count:    uint32(fields[2]),
			terminal: term == 1,
		})
	}

	if err := t.link(); err != nil {
		return nil, err
	}
	return t, nil
}

// countingReader tracks the input offset and reads single bytes without
// buffering, falling back to one-byte reads when r has no ReadByte.
type countingReader struct {
	r   io.Reader
	br  io.ByteReader
	off int64
	one [1]byte
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.off += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	if c.br != nil {
		b, err := c.br.ReadByte()
		if err == nil {
			c.off++
		}
		return b, err
	}
	if _, err := io.ReadFull(c, c.one[:]); err != nil {
		return 0, err
	}
	return c.one[0], nil
}
