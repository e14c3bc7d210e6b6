package engine

import (
	"math"
	"sort"
)

// scheduleSentinel terminates every schedule so the cursor always has a next
// value to compare against.
const scheduleSentinel = math.MaxInt

// Schedule is the ordered, duplicate-free set of frame indices at which a
// trigger pulse must fire. It is owned by the animation driver and rebuilt
// fresh at the start of every repetition; nothing else shares it.
type Schedule struct {
	frames []int
	cursor int
}

func NewSchedule() *Schedule {
	return &Schedule{frames: []int{scheduleSentinel}}
}

// Add inserts a frame index, keeping the set sorted and unique.
func (s *Schedule) Add(frame int) {
	i := sort.SearchInts(s.frames, frame)
	if i < len(s.frames) && s.frames[i] == frame {
		return
	}
	s.frames = append(s.frames, 0)
	copy(s.frames[i+1:], s.frames[i:])
	s.frames[i] = frame
}

// Reset clears the schedule back to only the sentinel.
func (s *Schedule) Reset() {
	s.frames = s.frames[:0]
	s.frames = append(s.frames, scheduleSentinel)
	s.cursor = 0
}

// Due reports whether frame is the next scheduled index and advances the
// cursor when it is. The sentinel never fires.
func (s *Schedule) Due(frame int) bool {
	if s.frames[s.cursor] == frame && frame != scheduleSentinel {
		s.cursor++
		return true
	}
	return false
}

// Pending returns the scheduled frames that have not fired yet, excluding
// the sentinel.
func (s *Schedule) Pending() []int {
	out := make([]int, 0, len(s.frames)-s.cursor)
	for _, f := range s.frames[s.cursor:] {
		if f != scheduleSentinel {
			out = append(out, f)
		}
	}
	return out
}

// Len is the number of scheduled frames, excluding the sentinel.
func (s *Schedule) Len() int {
	n := len(s.frames)
	if s.frames[n-1] == scheduleSentinel {
		n--
	}
	return n
}
