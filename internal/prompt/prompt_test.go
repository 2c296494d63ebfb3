package prompt

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/extract"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

func defaultKB(t *testing.T) *knowledge.Base {
	t.Helper()
	kb, err := knowledge.Default()
	require.NoError(t, err)
	return kb
}

func offeredLines(p string) []string {
	var out []string
	for _, line := range strings.Split(p, "\n") {
		if strings.HasPrefix(line, "- ") {
			out = append(out, strings.TrimPrefix(line, "- "))
		}
	}
	return out
}

func TestClassification_EmbedsTextVerbatimInFence(t *testing.T) {
	kb := defaultKB(t)
	text := "오늘 회사에서 실수를 해서 너무 속상하다 100%"

	p := Classification(kb, text)

	assert.Contains(t, p, "```"+text+"```")
	assert.Contains(t, p, extract.ResultMarker)
	for _, step := range []string{"STEP-1.", "STEP-2.", "STEP-3.", "STEP-4."} {
		assert.Contains(t, p, step)
	}
	for _, label := range kb.SubConceptLabels() {
		assert.Contains(t, p, label)
	}
}

func TestClassification_EmptyTextAllowed(t *testing.T) {
	p := Classification(defaultKB(t), "")
	assert.Contains(t, p, "``````")
}

func TestClassification_Deterministic(t *testing.T) {
	kb := defaultKB(t)
	assert.Equal(t, Classification(kb, "같은 고민"), Classification(kb, "같은 고민"))
}

func TestAdvice_ListsEveryPassageOnce(t *testing.T) {
	sample := []knowledge.Passage{
		{Section: "학이", Number: 1, Text: "배우고 때때로 익히면"},
		{Section: "안연", Number: 2, Text: "자기가 원하지 않는 것을 남에게 베풀지 말라."},
	}

	p := Advice(sample)

	assert.Equal(t, []string{
		"학이-1: 배우고 때때로 익히면",
		"안연-2: 자기가 원하지 않는 것을 남에게 베풀지 말라.",
	}, offeredLines(p))
	assert.Contains(t, p, extract.ResultMarker)
	assert.Equal(t, p, Advice(sample))
}

func TestSampledAdvice_ListsExactlyCount(t *testing.T) {
	corpus, err := knowledge.DefaultCorpus()
	require.NoError(t, err)

	p, sample, err := SampledAdvice(corpus, rand.New(rand.NewPCG(11, 13)), DefaultSampleSize)
	require.NoError(t, err)
	require.Len(t, sample, DefaultSampleSize)

	lines := offeredLines(p)
	require.Len(t, lines, DefaultSampleSize)
	for i, s := range sample {
		assert.Equal(t, s.String(), lines[i])
	}
}

func TestSampledAdvice_SameSeedSamePrompt(t *testing.T) {
	corpus, err := knowledge.DefaultCorpus()
	require.NoError(t, err)

	a, _, err := SampledAdvice(corpus, rand.New(rand.NewPCG(5, 5)), 20)
	require.NoError(t, err)
	b, _, err := SampledAdvice(corpus, rand.New(rand.NewPCG(5, 5)), 20)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSampledAdvice_CorpusTooSmall(t *testing.T) {
	corpus := knowledge.NewCorpus([]knowledge.Passage{{Section: "학이", Number: 1, Text: "a"}})

	_, _, err := SampledAdvice(corpus, rand.New(rand.NewPCG(1, 1)), 20)
	require.Error(t, err)
	assert.True(t, errors.Is(err, knowledge.ErrCorpusTooSmall))
}

func TestIntroduction_CoversKnowledgeBase(t *testing.T) {
	kb := defaultKB(t)
	intro := Introduction(kb)

	assert.Contains(t, intro, kb.Concept.Description)
	assert.Contains(t, intro, kb.Concept.Relation)
	assert.Contains(t, intro, kb.Concept.IdealPerson)
	for _, sc := range kb.Concept.SubConcepts {
		assert.Contains(t, intro, sc.Description)
	}
}

func TestContext_IncludesEveryField(t *testing.T) {
	c := Context("업무 실수", "자기 용서", "충서", "스스로에게도 너그러워야 하므로")
	for _, s := range []string{"업무 실수", "자기 용서", "충서", "스스로에게도 너그러워야 하므로"} {
		assert.Contains(t, c, s)
	}
}
