package playback

// DefaultLookahead is the number of segments synthesized ahead of the one
// playing.
const DefaultLookahead = 2

// Prefetcher requests audio for the segments after the current one.
type Prefetcher struct {
	doc       *Document
	lookahead int
}

// NewPrefetcher creates a prefetcher with a lookahead window of k segments.
func NewPrefetcher(doc *Document, k int) *Prefetcher {
	if k < 0 {
		k = 0
	}
	return &Prefetcher{doc: doc, lookahead: k}
}

// Lookahead returns the window size.
func (p *Prefetcher) Lookahead() int {
	return p.lookahead
}

// Kick requests index+1 through index+K and returns the indices for which a
// request was actually issued, in ascending order.
func (p *Prefetcher) Kick(index int) []int {
	var issued []int
	n := p.doc.Len()
	for j := 1; j <= p.lookahead; j++ {
		next := index + j
		if next >= n {
			break
		}
		if p.doc.Ensure(next) {
			issued = append(issued, next)
		}
	}
	return issued
}
