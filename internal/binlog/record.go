package binlog

import (
	"encoding/binary"
	"hash/crc32"
	"io"
)

// WriteRecord frames payload as CRC32(payload) || varint(len(payload)) ||
// payload and writes it to w. Snapshot data files use this same framing
// so a data file is just a binlog with no segment rolling.
func WriteRecord(w io.Writer, payload []byte) (int, error) {
	return writeRecord(w, payload)
}

func writeRecord(w io.Writer, payload []byte) (int, error) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(payload)))

	var crcBuf [4]byte
	binary.BigEndian.PutUint32(crcBuf[:], crc32.ChecksumIEEE(payload))

	total := 0
	w2, err := w.Write(crcBuf[:])
	total += w2
	if err != nil {
		return total, err
	}
	w2, err = w.Write(lenBuf[:n])
	total += w2
	if err != nil {
		return total, err
	}
	w2, err = w.Write(payload)
	total += w2
	return total, err
}

// ReadRecord reads one CRC-framed record from r, using the same framing
// as WriteRecord above. See readRecord for the status contract.
func ReadRecord(r io.Reader) (payload []byte, corrupt bool, err error) {
	return readRecord(r)
}

// readRecord reads one CRC-framed record from r. io.EOF signals a clean
// end of file at a record boundary; io.ErrUnexpectedEOF signals a
// truncated record (a writer died mid-append); CRC corruption is
// reported as corrupt=true with a nil payload and a nil error.
func readRecord(r io.Reader) (payload []byte, corrupt bool, err error) {
	var crcBuf [4]byte
	if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
		if err == io.EOF {
			return nil, false, io.EOF
		}
		return nil, false, io.ErrUnexpectedEOF
	}
	wantCRC := binary.BigEndian.Uint32(crcBuf[:])

	length, err := binary.ReadUvarint(byteReader{r})
	if err != nil {
		return nil, false, io.ErrUnexpectedEOF
	}

	payload = make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, false, io.ErrUnexpectedEOF
	}

	if crc32.ChecksumIEEE(payload) != wantCRC {
		return nil, true, nil
	}
	return payload, false, nil
}

// byteReader adapts an io.Reader to io.ByteReader for binary.ReadUvarint,
// one byte at a time; record headers are tiny so this isn't a hot path.
type byteReader struct {
	r io.Reader
}

func (b byteReader) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.r, buf[:])
	return buf[0], err
}
