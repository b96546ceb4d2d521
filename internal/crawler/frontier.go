package crawler

// LinkClass is the priority class of a frontier entry. Navigational links
// always dispatch before other links at the same depth.
type LinkClass int

const (
	ClassNav LinkClass = iota
	ClassOther
)

func (c LinkClass) String() string {
	if c == ClassNav {
		return "nav"
	}
	return "other"
}

// Frontier owns the discovered-but-not-yet-fetched URL set, organized as one
// pair of FIFO queues per depth tier. Push and Pop are its only mutators; a
// URL can sit in at most one queue at a time.
type Frontier struct {
	nav    [][]string
	other  [][]string
	queued map[string]struct{}
}

// NewFrontier creates a frontier with queues for depths 0..maxDepth.
func NewFrontier(maxDepth int) *Frontier {
	if maxDepth < 0 {
		maxDepth = 0
	}
	return &Frontier{
		nav:    make([][]string, maxDepth+1),
		other:  make([][]string, maxDepth+1),
		queued: make(map[string]struct{}),
	}
}

// Push enqueues a canonical URL at the given depth and class. Returns false
// when the depth is out of range or the URL is already queued somewhere.
func (f *Frontier) Push(depth int, class LinkClass, urlKey string) bool {
	if depth < 0 || depth >= len(f.nav) || urlKey == "" {
		return false
	}
	if _, dup := f.queued[urlKey]; dup {
		return false
	}
	f.queued[urlKey] = struct{}{}
	if class == ClassNav {
		f.nav[depth] = append(f.nav[depth], urlKey)
	} else {
		f.other[depth] = append(f.other[depth], urlKey)
	}
	return true
}

// Pop removes and returns the next candidate at a depth: nav queue first,
// FIFO within each class. The URL leaves the queued set on pop.
func (f *Frontier) Pop(depth int) (urlKey string, class LinkClass, ok bool) {
	if depth < 0 || depth >= len(f.nav) {
		return "", ClassNav, false
	}
	if len(f.nav[depth]) > 0 {
		urlKey = f.nav[depth][0]
		f.nav[depth] = f.nav[depth][1:]
		delete(f.queued, urlKey)
		return urlKey, ClassNav, true
	}
	if len(f.other[depth]) > 0 {
		urlKey = f.other[depth][0]
		f.other[depth] = f.other[depth][1:]
		delete(f.queued, urlKey)
		return urlKey, ClassOther, true
	}
	return "", ClassNav, false
}

// HasAt reports whether any queue at the depth is non-empty.
func (f *Frontier) HasAt(depth int) bool {
	if depth < 0 || depth >= len(f.nav) {
		return false
	}
	return len(f.nav[depth]) > 0 || len(f.other[depth]) > 0
}

// Queued reports whether a URL currently sits in any queue.
func (f *Frontier) Queued(urlKey string) bool {
	_, ok := f.queued[urlKey]
	return ok
}
