package counsel

import (
	"fmt"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/extract"
	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

// decodeClassification validates the first-stage record. The worry text is
// taken from the input rather than the model's echo in STEP-1.
func decodeClassification(rec extract.Record, input string, kb *knowledge.Base) (*ClassificationRecord, error) {
	isWorry, err := rec.Bool("STEP-2")
	if err != nil {
		return nil, err
	}
	cr := &ClassificationRecord{RawInput: input, IsWorry: isWorry}
	if !isWorry {
		return cr, nil
	}

	fields := []struct {
		dst  *string
		path []string
	}{
		{&cr.Summary, []string{"STEP-3", "요약"}},
		{&cr.LackingAspect, []string{"STEP-4", "부족함"}},
		{&cr.ChosenSubConcept, []string{"STEP-4", "하위개념"}},
		{&cr.Reason, []string{"STEP-4", "이유"}},
	}
	for _, f := range fields {
		if *f.dst, err = rec.String(f.path...); err != nil {
			return nil, err
		}
	}

	sc, ok := kb.MatchSubConcept(cr.ChosenSubConcept)
	if !ok {
		return nil, &extract.SchemaError{
			Path:   "STEP-4.하위개념",
			Reason: fmt.Sprintf("names unknown sub-concept %q", cr.ChosenSubConcept),
		}
	}
	cr.ChosenSubConcept = sc.Name
	return cr, nil
}

func decodeAdvice(rec extract.Record) (*AdviceRecord, error) {
	ar := &AdviceRecord{}
	fields := []struct {
		dst  *string
		path []string
	}{
		{&ar.Summary, []string{"STEP-1", "고민"}},
		{&ar.LackingAspect, []string{"STEP-1", "부족"}},
		{&ar.ChosenSubConcept, []string{"STEP-1", "하위개념"}},
		{&ar.Reason, []string{"STEP-1", "이유"}},
		{&ar.SelectedPassage, []string{"STEP-2"}},
		{&ar.PassageReason, []string{"STEP-3"}},
		{&ar.Advice, []string{"STEP-4"}},
	}
	var err error
	for _, f := range fields {
		if *f.dst, err = rec.String(f.path...); err != nil {
			return nil, err
		}
	}
	return ar, nil
}
