package raft

// AppendStatus reports why a Log.Append call failed, or that it succeeded.
type AppendStatus string

const (
	AppendOk          AppendStatus = "ok"
	AppendSkip        AppendStatus = "skip"
	AppendEarlierTerm AppendStatus = "earlier-term"
	AppendMissingPrev AppendStatus = "missing-previous"
)

// AppendResult is the outcome of Log.Append.
type AppendResult struct {
	Status   AppendStatus
	First    LogCoords
	Last     LogCoords
	Replaced []Index
}

func (r AppendResult) Ok() bool {
	return r.Status == AppendOk
}

// EntryStore is the durability hook a Log mirrors every mutating call to.
// The in-memory Log remains the source of truth consulted by the
// orchestrator; the store exists so a filesystem backend can be kept in
// sync without the core depending on any particular encoding.
type EntryStore interface {
	AppendEntries(fromIndex Index, entries []LogEntry) error
	TruncateFrom(index Index) error
}

// Log is the ordered, persistent sequence of log entries a node maintains.
// Entries are indexed from 1; index 0 (Empty) means "before any entry".
type Log struct {
	entries []LogEntry // entries[0] holds index 1
	commit  Index

	store EntryStore
}

// NewLog creates an empty log with no durability backing.
func NewLog() *Log {
	return &Log{}
}

// NewLogWithStore creates a log that mirrors every append/truncate to store.
func NewLogWithStore(store EntryStore) *Log {
	return &Log{store: store}
}

// LoadLog reconstructs a Log from entries already read back from a store
// (e.g. on node startup) without re-mirroring them to it.
func LoadLog(entries []LogEntry, commit Index, store EntryStore) *Log {
	return &Log{
		entries: append([]LogEntry(nil), entries...),
		commit:  commit,
		store:   store,
	}
}

func (l *Log) LatestAppended() LogCoords {
	if len(l.entries) == 0 {
		return Empty
	}
	idx := Index(len(l.entries))
	return LogCoords{Term: l.entries[idx-1].Term, Index: idx}
}

func (l *Log) LatestCommit() Index {
	return l.commit
}

func (l *Log) CoordsForIndex(index Index) (LogCoords, bool) {
	if index == 0 {
		return Empty, true
	}
	if index < 1 || int(index) > len(l.entries) {
		return LogCoords{}, false
	}
	return LogCoords{Term: l.entries[index-1].Term, Index: index}, true
}

func (l *Log) TermForIndex(index Index) (Term, bool) {
	coords, found := l.CoordsForIndex(index)
	if !found {
		return 0, false
	}
	return coords.Term, true
}

func (l *Log) Contains(coords LogCoords) bool {
	if coords == Empty {
		return true
	}
	actual, found := l.CoordsForIndex(coords.Index)
	return found && actual.Term == coords.Term
}

// EntriesFrom returns up to max contiguous entries starting at index.
func (l *Log) EntriesFrom(index Index, max int) []LogEntry {
	if index < 1 || int(index) > len(l.entries) || max <= 0 {
		return nil
	}
	end := int(index) - 1 + max
	if end > len(l.entries) {
		end = len(l.entries)
	}
	out := make([]LogEntry, end-int(index)+1)
	copy(out, l.entries[index-1:end])
	return out
}

// EntriesFromAll returns every contiguous entry from index through the end
// of the log, uncapped. Used on the normal replication path, where the
// full newly appended range must reach every peer in one message;
// maxAppendSize only bounds the retry path after a rejected AppendEntries.
func (l *Log) EntriesFromAll(index Index) []LogEntry {
	if index < 1 || int(index) > len(l.entries) {
		return nil
	}
	out := make([]LogEntry, len(l.entries)-int(index)+1)
	copy(out, l.entries[index-1:])
	return out
}

// Append applies a leader's AppendEntries semantics: an empty entries slice
// is always a heartbeat and always succeeds once prevCoords checks out;
// conflicting entries truncate the tail from the point of conflict onward.
// Entries are expected to already be stamped with the request's term.
func (l *Log) Append(prevCoords LogCoords, entries []LogEntry) AppendResult {
	if !l.Contains(prevCoords) {
		return AppendResult{Status: AppendMissingPrev}
	}

	if len(entries) == 0 {
		return AppendResult{Status: AppendOk, First: Empty, Last: Empty}
	}

	target := prevCoords.Index + 1

	if target > l.LatestAppended().Index+1 {
		return AppendResult{Status: AppendSkip}
	}

	if entries[0].Term < l.LatestAppended().Term {
		return AppendResult{Status: AppendEarlierTerm}
	}

	var replaced []Index

	writeIdx := target
	for _, entry := range entries {
		if int(writeIdx) > len(l.entries) {
			break
		}
		existing := l.entries[writeIdx-1]
		if existing.Term != entry.Term {
			replaced = l.truncateFrom(writeIdx)
			break
		}
		writeIdx++
	}

	newEntries := entries[writeIdx-target:]
	if len(newEntries) > 0 {
		l.entries = append(l.entries, newEntries...)
		if l.store != nil {
			if err := l.store.AppendEntries(writeIdx, newEntries); err != nil {
				Panicf("cannot persist log entries: %v", err)
			}
		}
	}

	return AppendResult{
		Status:   AppendOk,
		First:    LogCoords{Term: entries[0].Term, Index: target},
		Last:     LogCoords{Term: entries[len(entries)-1].Term, Index: target + Index(len(entries)) - 1},
		Replaced: replaced,
	}
}

// AppendLocal is used by a leader to append data it originates itself; it
// never truncates, per the leader-append-only invariant.
func (l *Log) AppendLocal(term Term, data [][]byte) (first, last LogCoords) {
	startIndex := l.LatestAppended().Index + 1

	if len(data) == 0 {
		idx := l.LatestAppended().Index
		c, _ := l.CoordsForIndex(idx)
		return c, c
	}

	entries := make([]LogEntry, len(data))
	for i, d := range data {
		entries[i] = LogEntry{Term: term, Data: d}
	}

	l.entries = append(l.entries, entries...)
	if l.store != nil {
		if err := l.store.AppendEntries(startIndex, entries); err != nil {
			Panicf("cannot persist log entries: %v", err)
		}
	}

	return LogCoords{Term: term, Index: startIndex},
		LogCoords{Term: term, Index: startIndex + Index(len(entries)) - 1}
}

func (l *Log) truncateFrom(index Index) []Index {
	if int(index) > len(l.entries) {
		return nil
	}

	replaced := make([]Index, 0, len(l.entries)-int(index)+1)
	for i := index; int(i) <= len(l.entries); i++ {
		replaced = append(replaced, i)
	}

	l.entries = l.entries[:index-1]

	if l.store != nil {
		if err := l.store.TruncateFrom(index); err != nil {
			Panicf("cannot truncate persisted log: %v", err)
		}
	}

	return replaced
}

// Commit advances the commit watermark to min(upto, latestAppended.Index)
// and returns the coordinates newly committed, in index order. It is a
// no-op if upto does not advance the watermark past where it already is.
func (l *Log) Commit(upto Index) []LogCoords {
	last := l.LatestAppended().Index
	target := upto
	if target > last {
		target = last
	}

	if target <= l.commit {
		return nil
	}

	newlyCommitted := make([]LogCoords, 0, int(target-l.commit))
	for i := l.commit + 1; i <= target; i++ {
		coords, _ := l.CoordsForIndex(i)
		newlyCommitted = append(newlyCommitted, coords)
	}

	l.commit = target

	return newlyCommitted
}
