package sequencer

// History is the caller-side stack of items presented in next-unanswered mode.
// It is never persisted; dropping it leaves recorded answers untouched.
type History struct {
	ids []string
}

// Push appends id unless it is already on top.
func (h *History) Push(id string) {
	if n := len(h.ids); n > 0 && h.ids[n-1] == id {
		return
	}
	h.ids = append(h.ids, id)
}

func (h *History) Pop() (string, bool) {
	n := len(h.ids)
	if n == 0 {
		return "", false
	}
	id := h.ids[n-1]
	h.ids = h.ids[:n-1]
	return id, true
}

func (h *History) Len() int { return len(h.ids) }

func (h *History) IDs() []string { return append([]string(nil), h.ids...) }

// Origin records how the current item was reached.
type Origin int

const (
	FromNext Origin = iota
	FromBack
	FromEdit
)

// Session tracks one interactive walk through the wizard.
type Session struct {
	History History
	current string
	origin  Origin
}

// Present marks id as the item on screen.
func (s *Session) Present(id string, origin Origin) {
	s.current = id
	s.origin = origin
}

func (s *Session) Current() (string, Origin) { return s.current, s.origin }

// Submitted records a successful submission of the current item. Items reached
// through edit mode never enter the history; items reached through the
// sequence or by going back are pushed so a later back returns to them.
func (s *Session) Submitted(id string) {
	if id != s.current || s.origin == FromEdit {
		return
	}
	s.History.Push(id)
}

// Back pops the previous item; the caller re-fetches it by id.
func (s *Session) Back() (string, bool) {
	id, ok := s.History.Pop()
	if !ok {
		return "", false
	}
	s.Present(id, FromBack)
	return id, true
}

// ReturnsToBacklog reports whether finishing the current item should leave the
// sequence and return to the backlog view.
func (s *Session) ReturnsToBacklog() bool { return s.origin == FromEdit }
