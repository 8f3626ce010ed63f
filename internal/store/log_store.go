package store

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/quorumkv/raft/pkg/raft"
)

const recordHeaderSize = 16 // term uint64 + dataLength uint64, big-endian

// LogStore implements raft.EntryStore against an append-only segment file,
// one fixed 16-byte header plus payload per entry.
type LogStore struct {
	filePath string
	file     *os.File

	// offsets[i] is the byte offset of the header for the entry at index
	// i+1; used to seek-and-truncate on conflict resolution without
	// re-scanning the file.
	offsets []int64
}

// Open opens (creating if absent) the backing file and replays it into a
// slice of entries, for use with raft.LoadLog.
func Open(filePath string) (*LogStore, []raft.LogEntry, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot open %q: %w", filePath, err)
	}

	s := &LogStore{filePath: filePath, file: file}

	entries, err := s.replay()
	if err != nil {
		file.Close()
		return nil, nil, err
	}

	return s, entries, nil
}

func (s *LogStore) Close() {
	s.file.Close()
}

func (s *LogStore) replay() ([]raft.LogEntry, error) {
	if _, err := s.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("cannot seek %q: %w", s.filePath, err)
	}

	var entries []raft.LogEntry
	var offset int64

	header := make([]byte, recordHeaderSize)

	for {
		if _, err := io.ReadFull(s.file, header); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("cannot read record header in %q: %w", s.filePath, err)
		}

		term := raft.Term(binary.BigEndian.Uint64(header[0:8]))
		dataLength := binary.BigEndian.Uint64(header[8:16])

		data := make([]byte, dataLength)
		if _, err := io.ReadFull(s.file, data); err != nil {
			return nil, fmt.Errorf("cannot read record data in %q: %w", s.filePath, err)
		}

		entries = append(entries, raft.LogEntry{Term: term, Data: data})
		s.offsets = append(s.offsets, offset)
		offset += recordHeaderSize + int64(dataLength)
	}

	return entries, nil
}

// AppendEntries implements raft.EntryStore. fromIndex must equal the index
// immediately following the last entry on disk; the in-memory Log is the
// only caller and never violates this.
func (s *LogStore) AppendEntries(fromIndex raft.Index, entries []raft.LogEntry) error {
	if int(fromIndex) != len(s.offsets)+1 {
		return fmt.Errorf("cannot append at index %d: store holds %d entries",
			fromIndex, len(s.offsets))
	}

	offset, err := s.file.Seek(0, io.SeekEnd)
	if err != nil {
		return fmt.Errorf("cannot seek %q: %w", s.filePath, err)
	}

	for _, entry := range entries {
		header := make([]byte, recordHeaderSize)
		binary.BigEndian.PutUint64(header[0:8], uint64(entry.Term))
		binary.BigEndian.PutUint64(header[8:16], uint64(len(entry.Data)))

		if _, err := s.file.Write(header); err != nil {
			return fmt.Errorf("cannot write record header to %q: %w", s.filePath, err)
		}
		if _, err := s.file.Write(entry.Data); err != nil {
			return fmt.Errorf("cannot write record data to %q: %w", s.filePath, err)
		}

		s.offsets = append(s.offsets, offset)
		offset += recordHeaderSize + int64(len(entry.Data))
	}

	return s.file.Sync()
}

// TruncateFrom implements raft.EntryStore, dropping every record at index
// >= index by truncating the file back to the byte offset where that
// record's header begins.
func (s *LogStore) TruncateFrom(index raft.Index) error {
	if int(index) > len(s.offsets) {
		return nil
	}

	cut := s.offsets[index-1]

	if err := s.file.Truncate(cut); err != nil {
		return fmt.Errorf("cannot truncate %q: %w", s.filePath, err)
	}
	if _, err := s.file.Seek(cut, io.SeekStart); err != nil {
		return fmt.Errorf("cannot seek %q: %w", s.filePath, err)
	}

	s.offsets = s.offsets[:index-1]

	return s.file.Sync()
}
