package engine

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
)

// JournalEventType discriminates journal records. Unlike the teacher's
// entry WAL (which records order *intents* to replay on restart), the
// journal records observed *outcomes* — trades and order-status
// transitions — purely for external audit; nothing in this engine ever
// reads a journal back to reconstruct book state (the persistence
// Non-goal stays intact; see SPEC_FULL's DOMAIN STACK note).
type JournalEventType uint8

const (
	JournalTrade JournalEventType = iota
	JournalOrderUpdate
)

// Frame: [type:1][seq:8][time:8][len:4][payload][crc:4], little-endian,
// adapted directly from the entry WAL's record framing.
const journalHeaderSize = 1 + 8 + 8 + 4
const journalCRCSize = 4

// Journal is an append-only, CRC-framed audit log. It rotates to a new
// segment file once the current one exceeds segmentSize, exactly the
// teacher's entry-WAL rotation policy, repointed at engine events.
type Journal struct {
	mu          sync.Mutex
	dir         string
	segmentSize int64

	file   *os.File
	offset int64
	index  int
	seq    uint64
}

// OpenJournal creates (if necessary) dir and opens/creates its first
// segment file.
func OpenJournal(dir string, segmentSize int64) (*Journal, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "engine: journal mkdir")
	}
	j := &Journal{dir: dir, segmentSize: segmentSize}
	if err := j.openSegment(0); err != nil {
		return nil, err
	}
	return j, nil
}

func (j *Journal) openSegment(index int) error {
	path := filepath.Join(j.dir, segmentName(index))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(err, "engine: journal open segment")
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return errors.Wrap(err, "engine: journal stat segment")
	}
	j.file = f
	j.index = index
	j.offset = info.Size()
	return nil
}

func segmentName(index int) string {
	return fmt.Sprintf("journal-%06d.log", index)
}

// Append writes one event record and rotates the segment if it has grown
// past segmentSize. Append never blocks on anything but the local
// filesystem; a failure here is logged by the caller and does not affect
// matching correctness (§7 "No exceptions cross stage boundaries").
func (j *Journal) Append(eventType JournalEventType, timestamp int64, payload []byte) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.seq++
	payloadLen := uint32(len(payload))

	buf := make([]byte, journalHeaderSize+int(payloadLen)+journalCRCSize)
	buf[0] = byte(eventType)
	binary.LittleEndian.PutUint64(buf[1:9], j.seq)
	binary.LittleEndian.PutUint64(buf[9:17], uint64(timestamp))
	binary.LittleEndian.PutUint32(buf[17:21], payloadLen)
	copy(buf[21:], payload)
	crc := crc32.ChecksumIEEE(buf[:21+int(payloadLen)])
	binary.LittleEndian.PutUint32(buf[21+int(payloadLen):], crc)

	n, err := j.file.Write(buf)
	if err != nil {
		return errors.Wrap(err, "engine: journal append")
	}
	j.offset += int64(n)

	if j.offset >= j.segmentSize {
		if err := j.file.Close(); err != nil {
			return errors.Wrap(err, "engine: journal close segment")
		}
		return j.openSegment(j.index + 1)
	}
	return nil
}

// Close closes the current segment file.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.file.Close()
}
