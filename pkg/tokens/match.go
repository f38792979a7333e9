package tokens

// Match is a token match in a buffer. Index holds byte offsets into the
// buffer in the layout of regexp.FindSubmatchIndex, using the token's own
// group numbering; groups that did not participate are -1.
type Match struct {
	Token *Token
	Index []int
}

// NewMatch creates a match of tok covering [start, end) with no group
// information. No-match handlers use it to synthesize virtual matches;
// tok may be nil.
func NewMatch(tok *Token, start, end int) *Match {
	n := 0
	if tok != nil {
		n = tok.groups
	}
	index := make([]int, 2*(n+1))
	for i := range index {
		index[i] = -1
	}
	index[0], index[1] = start, end
	return &Match{Token: tok, Index: index}
}

func (m *Match) Start() int { return m.Index[0] }
func (m *Match) End() int { return m.Index[1] }
func (m *Match) Len() int { return m.Index[1] - m.Index[0] }

// NumGroups returns the number of capturing groups, not counting the whole match.
func (m *Match) NumGroups() int { return len(m.Index)/2 - 1 }

// Group returns the text of group i in buf, or "" if it did not participate.
func (m *Match) Group(buf []byte, i int) string {
	if i < 0 || 2*i+1 >= len(m.Index) || m.Index[2*i] < 0 {
		return ""
	}
	return string(buf[m.Index[2*i]:m.Index[2*i+1]])
}

func (m *Match) shift(delta int) {
	for i, v := range m.Index {
		if v >= 0 {
			m.Index[i] = v + delta
		}
	}
}
