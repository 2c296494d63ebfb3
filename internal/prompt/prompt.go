// Package prompt renders the texts sent to the model. Every function is pure:
// identical input gives byte-identical output.
package prompt

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/extract"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

const systemPrompt = `당신은 공자입니다. 오래된 현자의 말투로 이야기합니다. '~하네', '~일세', '~하게'와 같은 어미를 씁니다.
말투는 옛스럽지만 지금 시대를 사는 사람에게 꼭 맞는 통찰을 줍니다. 찾아온 제자의 고민을 지혜롭게 풀어 주세요.`

const classificationTemplate = `당신은 상대방의 고민을 상담하고 있습니다.
논어의 핵심 내용을 바탕으로 상대방의 고민에 도움이 될 인(仁)의 하위개념을 찾아야 합니다.

STEP별로 작업을 수행하면서 그 결과를 아래의 %[1]s JSON 포맷에 작성하세요.
STEP-1. 아래 세 개의 백틱으로 구분된 텍스트를 원문 그대로 옮겨 적을 것
STEP-2. 입력받은 텍스트가 고민이 아니라면 false를 적고 STEP-3부터는 진행하지 말 것. 예) 안녕하세요 -> false
STEP-3. 텍스트에 어떤 <고민>이 들어 있는지 요약할 것
STEP-4. <고민>에서 드러나는 상대방의 <부족함>을 말하고, 그것과 관련된 인의 <하위개념>을 다음 중 하나만 골라 <선택한 이유>와 함께 적을 것: %[2]s
` + "```%[3]s```" + `
---
%[1]s : {"STEP-1": <입력텍스트>, "STEP-2": <true/false>, "STEP-3": {"요약": <고민>}, "STEP-4": {"부족함": <부족함>, "하위개념": <하위개념>, "이유": <선택한 이유>}}`

const adviceTemplate = `당신은 이제 고민에 대한 해결책을 제시해야 합니다.

STEP별로 작업을 수행하면서 그 결과를 아래의 %[1]s JSON 포맷에 작성하세요.
STEP-1. 앞선 대화에서 말한 <고민>과 <부족함>, <하위개념>과 그것을 <선택한 이유>를 다시 자세하게 서술할 것
STEP-2. <부족함>을 보완할 수 있는 논어의 구절을 다음 목록에서 정확히 하나만 골라 "편-구절번호: 내용" 형식 그대로 적을 것:
%[2]s
STEP-3. STEP-1에서 정리한 것을 토대로 <구절을 선택한 이유>를 적을 것
STEP-4. STEP-1의 내용과 <구절을 선택한 이유>를 바탕으로 상대방을 진심으로 도울 수 있는 <조언>을 작성할 것. <조언>은 하위개념과 함께 설명하며 길게 작성할 것
---
%[1]s : {"STEP-1": {"고민": <고민>, "부족": <부족함>, "하위개념": <하위개념>, "이유": <선택한 이유>}, "STEP-2": <논어 구절>, "STEP-3": <구절을 선택한 이유>, "STEP-4": <조언>}`

// System is the persona every conversation starts with.
func System() string {
	return systemPrompt
}

// Introduction is the opening assistant turn that lays out the knowledge base.
func Introduction(kb *knowledge.Base) string {
	c := kb.Concept
	var subs []string
	for _, sc := range c.SubConcepts {
		subs = append(subs, fmt.Sprintf("%s: %s", sc.Label(), sc.Description))
	}
	return fmt.Sprintf(`논어의 %s(%s)은 %s와 같네.
그 하위개념은 %s라네.
각 하위개념의 뜻은 이러하네. %s
%s과 하위개념의 관계는 이러하네. %s
그러므로 논어가 제시하는 바람직한 인간은 %s이네.
이러한 논어의 가르침을 바탕으로 자네의 고민을 들어 주겠네.`,
		c.Name, c.Hanja, c.Description,
		strings.Join(kb.SubConceptLabels(), ", "),
		strings.Join(subs, " / "),
		c.Name, c.Relation,
		c.IdealPerson,
	)
}

// Classification asks the model to decide whether text is a worry and map it
// to a sub-concept. text is embedded verbatim; it may be empty.
func Classification(kb *knowledge.Base, text string) string {
	return fmt.Sprintf(classificationTemplate,
		extract.ResultMarker,
		strings.Join(kb.SubConceptLabels(), ", "),
		text,
	)
}

// Advice offers every passage of sample, one per line, and asks for exactly one.
func Advice(sample []knowledge.Passage) string {
	lines := make([]string, len(sample))
	for i, p := range sample {
		lines[i] = "- " + p.String()
	}
	return fmt.Sprintf(adviceTemplate, extract.ResultMarker, strings.Join(lines, "\n"))
}

// Context renders a classification as the assistant's prior turn.
func Context(summary, lacking, subConcept, reason string) string {
	return fmt.Sprintf(`자네의 고민은 %s이네.
그 상황에서 자네에게 부족한 것은 %s일 것이고,
그것을 보완할 수 있는 인의 하위개념은 %s에 해당하네.
그것을 고른 이유는 %s와 같네.`, summary, lacking, subConcept, reason)
}

// DefaultSampleSize is how many passages the advice prompt offers.
const DefaultSampleSize = 20

// SampledAdvice draws count passages from corpus and renders the advice prompt
// over them. It fails with knowledge.ErrCorpusTooSmall when the corpus is
// smaller than count.
func SampledAdvice(corpus *knowledge.Corpus, rng *rand.Rand, count int) (string, []knowledge.Passage, error) {
	sample, err := corpus.Sample(rng, count)
	if err != nil {
		return "", nil, fmt.Errorf("sample passages: %w", err)
	}
	return Advice(sample), sample, nil
}
