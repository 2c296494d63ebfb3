package console

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/counsel"
)

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.FgYellow)
	adviceColor  = color.New(color.FgGreen)
	warnColor    = color.New(color.FgMagenta)
	errorColor   = color.New(color.FgRed)
)

// PrintOutcome shows the classification and, for a worry, the advice with
// both latencies.
func PrintOutcome(w io.Writer, out *counsel.Outcome) {
	if !out.IsWorry() {
		warnColor.Fprintln(w, "입력하신 내용이 고민이 아닌 것 같습니다.")
		return
	}
	cr, ar := out.Classification, out.Advice

	fmt.Fprintf(w, "분석 시간: %.2f초\n", out.AnalysisTime.Seconds())
	fmt.Fprintf(w, "생성 시간: %.2f초\n", out.AdviceTime.Seconds())

	headingColor.Fprintln(w, "\n=== 분석 결과 ===")
	field(w, "고민 요약", cr.Summary)
	field(w, "부족한 점", cr.LackingAspect)
	field(w, "보완할 개념", cr.ChosenSubConcept)

	headingColor.Fprintln(w, "\n=== 조언 ===")
	field(w, "선택된 논어 구절", ar.SelectedPassage)
	if !out.PassageInSample {
		warnColor.Fprintln(w, "(제시된 구절 목록에 없는 인용입니다)")
	}
	labelColor.Fprint(w, "조언: ")
	adviceColor.Fprintln(w, ar.Advice)
}

func field(w io.Writer, label, value string) {
	labelColor.Fprintf(w, "%s: ", label)
	fmt.Fprintln(w, value)
}
