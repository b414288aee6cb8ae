package services

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
)

// Persisted index layout (little endian):
//
//	magic    [4]byte "DRIX"
//	version  uint16
//	metric   uint8
//	dim      uint32
//	count    uint32
//	ids      count × (uint16 length, bytes)
//	vectors  count × dim × float32
//	checksum uint32 CRC-32 (IEEE) of all preceding bytes
const (
	indexMagic      = "DRIX"
	indexVersion    = 1
	indexHeaderSize = 4 + 2 + 1 + 4 + 4
	checksumSize    = 4
)

var metricCodes = map[domain.Metric]uint8{
	domain.MetricInnerProduct: 1,
	domain.MetricL2:           2,
}

func encodeIndex(idx *domain.Index) ([]byte, error) {
	code, ok := metricCodes[idx.Metric()]
	if !ok {
		return nil, fmt.Errorf("%w: unknown metric %q", domain.ErrInvalidInput, idx.Metric())
	}

	n := idx.Len()
	var buf bytes.Buffer
	buf.Grow(indexHeaderSize + n*(2+36) + n*idx.Dimension()*4 + checksumSize)

	buf.WriteString(indexMagic)
	_ = binary.Write(&buf, binary.LittleEndian, uint16(indexVersion))
	buf.WriteByte(code)
	_ = binary.Write(&buf, binary.LittleEndian, uint32(idx.Dimension()))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(n))

	for i := 0; i < n; i++ {
		id := idx.ChunkID(i)
		if len(id) > math.MaxUint16 {
			return nil, fmt.Errorf("%w: chunk id longer than %d bytes", domain.ErrInvalidInput, math.MaxUint16)
		}
		_ = binary.Write(&buf, binary.LittleEndian, uint16(len(id)))
		buf.WriteString(id)
	}

	scratch := make([]byte, 4)
	for i := 0; i < n; i++ {
		for _, f := range idx.Vector(i) {
			binary.LittleEndian.PutUint32(scratch, math.Float32bits(f))
			buf.Write(scratch)
		}
	}

	sum := crc32.ChecksumIEEE(buf.Bytes())
	_ = binary.Write(&buf, binary.LittleEndian, sum)
	return buf.Bytes(), nil
}

// blobReader reads fixed-width fields and records the first short read.
type blobReader struct {
	data []byte
	off  int
	err  error
}

func (r *blobReader) take(n int, what string) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.data)-r.off < n {
		r.err = &domain.CorruptIndexError{Reason: "truncated " + what}
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *blobReader) u8(what string) uint8 {
	if b := r.take(1, what); b != nil {
		return b[0]
	}
	return 0
}

func (r *blobReader) u16(what string) uint16 {
	if b := r.take(2, what); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *blobReader) u32(what string) uint32 {
	if b := r.take(4, what); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func decodeIndex(blob []byte) (*domain.Index, error) {
	if len(blob) < indexHeaderSize+checksumSize {
		return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("blob of %d bytes is shorter than the header", len(blob))}
	}
	if string(blob[:4]) != indexMagic {
		return nil, &domain.CorruptIndexError{Reason: "bad magic"}
	}

	body := blob[:len(blob)-checksumSize]
	stored := binary.LittleEndian.Uint32(blob[len(blob)-checksumSize:])
	if crc32.ChecksumIEEE(body) != stored {
		return nil, &domain.CorruptIndexError{Reason: "checksum mismatch"}
	}

	r := &blobReader{data: body, off: 4}
	version := r.u16("version")
	code := r.u8("metric")
	dim := int(r.u32("dimension"))
	count := int(r.u32("count"))
	if r.err != nil {
		return nil, r.err
	}
	if version != indexVersion {
		return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("unsupported version %d", version)}
	}
	metric, ok := metricFromCode(code)
	if !ok {
		return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("unknown metric code %d", code)}
	}
	if count > 0 && dim == 0 {
		return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("%d entries with zero dimension", count)}
	}

	// Every id needs at least its length prefix; reject absurd counts before allocating.
	if uint64(count)*2 > uint64(len(body)-r.off) {
		return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("count %d exceeds mapping data", count)}
	}

	ids := make([]string, count)
	for i := range ids {
		n := int(r.u16("mapping length"))
		ids[i] = string(r.take(n, "mapping entry"))
	}
	if r.err != nil {
		return nil, r.err
	}

	need := uint64(count) * uint64(dim) * 4
	have := uint64(len(body) - r.off)
	if need != have {
		return nil, &domain.CorruptIndexError{
			Reason: fmt.Sprintf("vector data is %d bytes, expected %d for %d×%d", have, need, count, dim),
		}
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		raw := r.take(dim*4, "vector")
		v := make([]float32, dim)
		for j := range v {
			v[j] = math.Float32frombits(binary.LittleEndian.Uint32(raw[j*4:]))
		}
		vectors[i] = v
	}

	idx, err := domain.NewIndex(dim, metric, ids, vectors)
	if err != nil {
		var dup *domain.DuplicateChunkError
		if errors.As(err, &dup) {
			return nil, &domain.CorruptIndexError{Reason: fmt.Sprintf("duplicate chunk id %q in mapping", dup.ChunkID)}
		}
		return nil, &domain.CorruptIndexError{Reason: err.Error()}
	}
	return idx, nil
}

func metricFromCode(code uint8) (domain.Metric, bool) {
	for m, c := range metricCodes {
		if c == code {
			return m, true
		}
	}
	return "", false
}
