// Package scrollback holds the ordered log of rendered terminal output.
// It is a leaf package with no internal imports.
package scrollback

import "time"

// Kind classifies a line for rendering.
type Kind int

const (
	KindInfo Kind = iota
	KindSuccess
	KindError
	KindCommand
	KindSystem
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInfo:
		return "info"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	case KindCommand:
		return "command"
	case KindSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Line is one rendered output line. A Line is immutable once appended;
// the store assigns its ID.
type Line struct {
	ID   int64
	Time time.Time
	Kind Kind
	Text string
}

// Info builds an informational line.
func Info(text string) Line { return Line{Time: time.Now(), Kind: KindInfo, Text: text} }

// Success builds a success line.
func Success(text string) Line { return Line{Time: time.Now(), Kind: KindSuccess, Text: text} }

// Error builds an error line.
func Error(text string) Line { return Line{Time: time.Now(), Kind: KindError, Text: text} }

// Command builds an echo of user input.
func Command(text string) Line { return Line{Time: time.Now(), Kind: KindCommand, Text: text} }

// System builds a system line. System lines carry encoded signals and
// terminal chrome; signal-bearing ones are never rendered verbatim.
func System(text string) Line { return Line{Time: time.Now(), Kind: KindSystem, Text: text} }

// Store is an append-only ordered log. Ordering is by append sequence,
// not timestamp. The id counter is owned by the instance; there is no
// process-wide counter.
//
// The store is not safe for concurrent use. The terminal processes one
// input-to-completion cycle at a time, so all mutation happens on the
// update path.
type Store struct {
	lines  []Line
	nextID int64
}

// New creates an empty store.
func New() *Store {
	return &Store{nextID: 1}
}

// Append assigns the next id to line and appends it. It returns the
// stored line.
func (s *Store) Append(line Line) Line {
	line.ID = s.nextID
	s.nextID++
	if line.Time.IsZero() {
		line.Time = time.Now()
	}
	s.lines = append(s.lines, line)
	return s.lines[len(s.lines)-1]
}

// AppendAll appends lines in order and returns the stored copies.
func (s *Store) AppendAll(lines []Line) []Line {
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		out = append(out, s.Append(l))
	}
	return out
}

// Clear empties the store. The id counter keeps counting so ids stay
// unique for the life of the store.
func (s *Store) Clear() {
	s.lines = nil
}

// Len reports the number of stored lines.
func (s *Store) Len() int { return len(s.lines) }

// All returns a copy of every line in append order.
func (s *Store) All() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// Window returns up to size lines starting at offset. Out-of-range
// requests are clamped rather than rejected.
func (s *Store) Window(offset, size int) []Line {
	if offset < 0 {
		offset = 0
	}
	if size < 0 {
		size = 0
	}
	if offset >= len(s.lines) {
		return nil
	}
	end := offset + size
	if end > len(s.lines) {
		end = len(s.lines)
	}
	out := make([]Line, end-offset)
	copy(out, s.lines[offset:end])
	return out
}

// resetIDs rewinds the id counter. Test support only.
func (s *Store) resetIDs() {
	s.nextID = 1
}
