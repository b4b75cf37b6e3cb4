package scoring

// DefaultHistoryDepth is the number of snapshots the undo ledger retains.
const DefaultHistoryDepth = 50

// Snapshot is one ledger entry: the State as it was before a mutating call,
// without the point log.
type Snapshot struct {
	State State

	// LoggedPoint is true when the call appended a point-log entry that undo
	// must remove.
	LoggedPoint bool
}

// Ledger is a fixed-capacity ring buffer of snapshots. When full, Push
// overwrites the oldest entry.
//
// Not safe for concurrent use.
type Ledger struct {
	entries []Snapshot
	head    int // index of the next write
	size    int
}

// NewLedger creates a ledger holding at most capacity snapshots.
// A capacity below 1 falls back to DefaultHistoryDepth.
func NewLedger(capacity int) *Ledger {
	if capacity < 1 {
		capacity = DefaultHistoryDepth
	}
	return &Ledger{entries: make([]Snapshot, capacity)}
}

// Push records a snapshot, evicting the oldest one when the ledger is full.
func (l *Ledger) Push(s Snapshot) {
	l.entries[l.head] = s
	l.head = (l.head + 1) % len(l.entries)
	if l.size < len(l.entries) {
		l.size++
	}
}

// Pop removes and returns the most recent snapshot.
// Returns false if the ledger is empty.
func (l *Ledger) Pop() (Snapshot, bool) {
	if l.size == 0 {
		return Snapshot{}, false
	}
	l.head = (l.head - 1 + len(l.entries)) % len(l.entries)
	s := l.entries[l.head]
	l.entries[l.head] = Snapshot{}
	l.size--
	return s, true
}

// Trim drops the oldest snapshots until at most n remain.
func (l *Ledger) Trim(n int) {
	if n < 0 {
		n = 0
	}
	for l.size > n {
		oldest := (l.head - l.size + len(l.entries)) % len(l.entries)
		l.entries[oldest] = Snapshot{}
		l.size--
	}
}

// Len returns the number of snapshots held.
func (l *Ledger) Len() int {
	return l.size
}

// Cap returns the ledger capacity.
func (l *Ledger) Cap() int {
	return len(l.entries)
}

// Reset drops every snapshot.
func (l *Ledger) Reset() {
	for i := range l.entries {
		l.entries[i] = Snapshot{}
	}
	l.head = 0
	l.size = 0
}
