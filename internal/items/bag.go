package items

// Entry is one line of a bag listing.
type Entry struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// Bag is an item-count map that remembers insertion order, so listings
// come out in the order items were first picked up.
type Bag struct {
	order  []string
	counts map[string]int
}

// NewBag creates an empty bag.
func NewBag() *Bag {
	return &Bag{counts: make(map[string]int)}
}

// Add puts n of id in the bag. Non-positive n is ignored.
func (b *Bag) Add(id string, n int) {
	if n <= 0 || id == "" {
		return
	}
	if b.counts == nil {
		b.counts = make(map[string]int)
	}
	if _, ok := b.counts[id]; !ok {
		b.order = append(b.order, id)
	}
	b.counts[id] += n
}

// Take removes one id. Returns false if none are held.
func (b *Bag) Take(id string) bool {
	if b.counts[id] <= 0 {
		return false
	}
	b.counts[id]--
	if b.counts[id] == 0 {
		delete(b.counts, id)
		for i, o := range b.order {
			if o == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	return true
}

// Count returns how many of id are held.
func (b *Bag) Count(id string) int {
	return b.counts[id]
}

// Len returns the number of distinct ids held.
func (b *Bag) Len() int {
	return len(b.order)
}

// Total returns the number of items held.
func (b *Bag) Total() int {
	total := 0
	for _, n := range b.counts {
		total += n
	}
	return total
}

// Entries lists the bag in insertion order.
func (b *Bag) Entries() []Entry {
	out := make([]Entry, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, Entry{ID: id, Count: b.counts[id]})
	}
	return out
}
