package knowledge

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"os"
	"strconv"
	"strings"
)

//go:embed analects.json
var defaultCorpus []byte

// ErrCorpusTooSmall is returned when a sample larger than the corpus is requested.
var ErrCorpusTooSmall = errors.New("corpus smaller than requested sample")

// Passage is one quotable unit of the Analects.
type Passage struct {
	Section  string `json:"편"`
	Number   int    `json:"구절번호"`
	Text     string `json:"내용"`
	Original string `json:"원문,omitempty"`
}

// Ref is the "section-number" identifier of the passage.
func (p Passage) Ref() string {
	return p.Section + "-" + strconv.Itoa(p.Number)
}

// String renders the passage as offered to the model: "section-number: text".
func (p Passage) String() string {
	return p.Ref() + ": " + p.Text
}

// Corpus is an ordered, immutable sequence of passages.
type Corpus struct {
	passages []Passage
}

type corpusFile struct {
	Data []Passage `json:"data"`
}

// NewCorpus copies ps into a corpus.
func NewCorpus(ps []Passage) *Corpus {
	cp := make([]Passage, len(ps))
	copy(cp, ps)
	return &Corpus{passages: cp}
}

// DefaultCorpus returns the corpus compiled into the binary.
func DefaultCorpus() (*Corpus, error) {
	return ReadCorpus(bytes.NewReader(defaultCorpus))
}

// LoadCorpus reads a corpus file of the form {"data": [{"편", "구절번호", "내용", "원문"}]}.
func LoadCorpus(path string) (*Corpus, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open corpus: %w", err)
	}
	defer f.Close()
	return ReadCorpus(f)
}

// ReadCorpus decodes a corpus document from r.
func ReadCorpus(r io.Reader) (*Corpus, error) {
	var cf corpusFile
	if err := json.NewDecoder(r).Decode(&cf); err != nil {
		return nil, fmt.Errorf("decode corpus: %w", err)
	}
	if len(cf.Data) == 0 {
		return nil, fmt.Errorf("decode corpus: no passages")
	}
	return &Corpus{passages: cf.Data}, nil
}

// Len is the number of passages.
func (c *Corpus) Len() int { return len(c.passages) }

// All returns a copy of every passage in corpus order.
func (c *Corpus) All() []Passage {
	out := make([]Passage, len(c.passages))
	copy(out, c.passages)
	return out
}

// Sample draws count passages uniformly without replacement.
func (c *Corpus) Sample(rng *rand.Rand, count int) ([]Passage, error) {
	if count <= 0 {
		return nil, fmt.Errorf("sample size must be positive, got %d", count)
	}
	if len(c.passages) < count {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrCorpusTooSmall, len(c.passages), count)
	}
	idx := rng.Perm(len(c.passages))[:count]
	out := make([]Passage, count)
	for i, j := range idx {
		out[i] = c.passages[j]
	}
	return out, nil
}

// FindPassage reports which passage of sample the model's selection refers to.
// The selection matches when it equals the rendered passage or starts with its
// "section-number" reference.
func FindPassage(sample []Passage, selected string) (Passage, bool) {
	selected = strings.TrimSpace(selected)
	for _, p := range sample {
		if selected == p.String() {
			return p, true
		}
	}
	for _, p := range sample {
		ref := p.Ref()
		if strings.HasPrefix(selected, ref) {
			rest := selected[len(ref):]
			if rest == "" || strings.HasPrefix(rest, ":") || strings.HasPrefix(rest, " ") {
				return p, true
			}
		}
	}
	return Passage{}, false
}
