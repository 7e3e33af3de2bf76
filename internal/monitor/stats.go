package monitor

import (
	"sort"
	"time"

	"github.com/nerrad567/ventoagent/internal/registry"
)

// Stat is the publishing history of one monitor.
type Stat struct {
	Subsystem     string        `json:"subsystem"`
	Monitor       string        `json:"monitor"`
	Endpoint      string        `json:"endpoint"`
	Interval      time.Duration `json:"interval"`
	Published     int64         `json:"published"`
	Failures      int64         `json:"failures"`
	LastPublished time.Time     `json:"last_published"`
	LastError     string        `json:"last_error,omitempty"`
}

func statKey(ref registry.MonitorRef) string {
	return ref.Subsystem + "/" + ref.Monitor.Name
}

func (s *Scheduler) recordSuccess(ref registry.MonitorRef, at time.Time) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st := s.stats[statKey(ref)]
	if st == nil {
		return
	}
	st.Published++
	st.LastPublished = at
}

func (s *Scheduler) recordFailure(ref registry.MonitorRef, err error) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	st := s.stats[statKey(ref)]
	if st == nil {
		return
	}
	st.Failures++
	st.LastError = err.Error()
}

// Stats returns a copy of every monitor's history, sorted by subsystem and name.
func (s *Scheduler) Stats() []Stat {
	s.statsMu.RLock()
	out := make([]Stat, 0, len(s.stats))
	for _, st := range s.stats {
		out = append(out, *st)
	}
	s.statsMu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Subsystem != out[j].Subsystem {
			return out[i].Subsystem < out[j].Subsystem
		}
		return out[i].Monitor < out[j].Monitor
	})
	return out
}
