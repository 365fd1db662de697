package tui

// Scrollback is a bounded history of received lines with a scroll cursor.
// Offset counts lines hidden below the viewport. It is not safe for
// concurrent use; View serializes access.
type Scrollback struct {
	lines       []string
	capacity    int
	offset      int
	visibleRows int
}

// NewScrollback creates a buffer holding at most capacity lines
func NewScrollback(capacity int) *Scrollback {
	if capacity <= 0 {
		capacity = 1
	}
	return &Scrollback{
		lines:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Append adds line at the tail, evicting the oldest line when full, and
// jumps back to the bottom.
func (s *Scrollback) Append(line string) {
	if len(s.lines) == s.capacity {
		copy(s.lines, s.lines[1:])
		s.lines[len(s.lines)-1] = line
	} else {
		s.lines = append(s.lines, line)
	}
	s.offset = 0
}

// ScrollUp reveals one older line
func (s *Scrollback) ScrollUp() {
	s.offset = min(s.offset+1, s.maxOffset())
}

// ScrollDown moves one line toward the tail
func (s *Scrollback) ScrollDown() {
	s.offset = max(s.offset-1, 0)
}

// SetVisibleRows sets the viewport height and reclamps the offset
func (s *Scrollback) SetVisibleRows(rows int) {
	s.visibleRows = max(rows, 0)
	s.offset = min(s.offset, s.maxOffset())
}

func (s *Scrollback) maxOffset() int {
	return max(0, len(s.lines)-s.visibleRows)
}

// Window returns the lines in the viewport, oldest first
func (s *Scrollback) Window() []string {
	end := len(s.lines) - s.offset
	start := max(0, end-s.visibleRows)
	return s.lines[start:end]
}

// Lines returns a copy of every buffered line
func (s *Scrollback) Lines() []string {
	return append([]string(nil), s.lines...)
}

func (s *Scrollback) Len() int { return len(s.lines) }
func (s *Scrollback) Offset() int { return s.offset }
func (s *Scrollback) VisibleRows() int { return s.visibleRows }
