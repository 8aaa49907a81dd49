package resolver

// UnionFind is a disjoint-set forest over record positions with path
// compression and union by rank. ids maps positions back to record ids.
type UnionFind struct {
	parent []int
	rank   []int
	index  map[string]int
	ids    []string
}

// NewUnionFind creates one singleton set per id
func NewUnionFind(ids []string) *UnionFind {
	u := &UnionFind{
		parent: make([]int, len(ids)),
		rank:   make([]int, len(ids)),
		index:  make(map[string]int, len(ids)),
		ids:    append([]string(nil), ids...),
	}
	for i, id := range ids {
		u.parent[i] = i
		u.index[id] = i
	}
	return u
}

// Len returns the number of elements
func (u *UnionFind) Len() int {
	return len(u.parent)
}

// IndexOf returns the position of id
func (u *UnionFind) IndexOf(id string) (int, bool) {
	i, ok := u.index[id]
	return i, ok
}

// Find returns the root of i, compressing the path on the way
func (u *UnionFind) Find(i int) int {
	root := i
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[i] != root {
		next := u.parent[i]
		u.parent[i] = root
		i = next
	}
	return root
}

// Union merges the sets of i and j. It reports whether they were disjoint.
func (u *UnionFind) Union(i, j int) bool {
	ri, rj := u.Find(i), u.Find(j)
	if ri == rj {
		return false
	}
	switch {
	case u.rank[ri] < u.rank[rj]:
		u.parent[ri] = rj
	case u.rank[ri] > u.rank[rj]:
		u.parent[rj] = ri
	default:
		u.parent[rj] = ri
		u.rank[ri]++
	}
	return true
}

// UnionIDs merges the sets holding two ids; unknown ids are ignored
func (u *UnionFind) UnionIDs(a, b string) bool {
	i, ok := u.index[a]
	if !ok {
		return false
	}
	j, ok := u.index[b]
	if !ok {
		return false
	}
	return u.Union(i, j)
}

// Connected reports whether i and j share a set
func (u *UnionFind) Connected(i, j int) bool {
	return u.Find(i) == u.Find(j)
}

// Components returns every set as ascending positions, ordered by smallest member
func (u *UnionFind) Components() [][]int {
	slot := make(map[int]int)
	var components [][]int
	for i := range u.parent {
		root := u.Find(i)
		s, ok := slot[root]
		if !ok {
			s = len(components)
			slot[root] = s
			components = append(components, nil)
		}
		components[s] = append(components[s], i)
	}
	return components
}
