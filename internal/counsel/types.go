package counsel

import (
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JoJeongHyeon/gongja-mailservice/internal/knowledge"
)

// Source tells where a worry came from.
type Source string

const (
	SourceConsole Source = "console"
	SourceEmail   Source = "email"
	SourceAPI     Source = "api"
	SourceNATS    Source = "nats"
)

// Provenance describes the origin of one worry.
type Provenance struct {
	Source Source
	Email  string // sender address for email, empty otherwise
}

// ClassificationRecord is the result of the first model call. When IsWorry is
// false every other field except RawInput is empty.
type ClassificationRecord struct {
	RawInput         string `json:"raw_input"`
	IsWorry          bool   `json:"is_worry"`
	Summary          string `json:"summary,omitempty"`
	LackingAspect    string `json:"lacking_aspect,omitempty"`
	ChosenSubConcept string `json:"chosen_subconcept,omitempty"`
	Reason           string `json:"reason,omitempty"`
}

// AdviceRecord is the result of the second model call. The first four fields
// are the model's restatement of the classification and may differ from it.
type AdviceRecord struct {
	Summary          string `json:"summary"`
	LackingAspect    string `json:"lacking_aspect"`
	ChosenSubConcept string `json:"chosen_subconcept"`
	Reason           string `json:"reason"`
	SelectedPassage  string `json:"selected_passage"`
	PassageReason    string `json:"passage_reason"`
	Advice           string `json:"advice"`
}

// Outcome is everything one pipeline run produced. Advice and Row are nil
// when the input was not a worry.
type Outcome struct {
	Classification  *ClassificationRecord
	Advice          *AdviceRecord
	Row             *LogRow
	Sample          []knowledge.Passage
	PassageInSample bool
	AnalysisTime    time.Duration
	AdviceTime      time.Duration
}

// IsWorry reports whether the advice stage ran.
func (o *Outcome) IsWorry() bool {
	return o.Advice != nil
}

const timestampLayout = "2006-01-02 15:04:05"

// LogColumns is the fixed column order of the session log.
var LogColumns = []string{
	"timestamp",
	"source",
	"email",
	"original_concern",
	"concern_summary",
	"lacking_aspect",
	"concept",
	"concept_reason",
	"restated_concern",
	"restated_lacking_aspect",
	"restated_concept",
	"restated_concept_reason",
	"selected_quote",
	"quote_reason",
	"advice",
	"analysis_time",
	"advice_time",
}

// LogRow is the flattened, append-only record of one completed session.
type LogRow struct {
	ID                    uuid.UUID `json:"id"`
	Timestamp             time.Time `json:"timestamp"`
	Source                Source    `json:"source"`
	Email                 string    `json:"email"`
	OriginalConcern       string    `json:"original_concern"`
	ConcernSummary        string    `json:"concern_summary"`
	LackingAspect         string    `json:"lacking_aspect"`
	Concept               string    `json:"concept"`
	ConceptReason         string    `json:"concept_reason"`
	RestatedConcern       string    `json:"restated_concern"`
	RestatedLackingAspect string    `json:"restated_lacking_aspect"`
	RestatedConcept       string    `json:"restated_concept"`
	RestatedConceptReason string    `json:"restated_concept_reason"`
	SelectedQuote         string    `json:"selected_quote"`
	QuoteReason           string    `json:"quote_reason"`
	Advice                string    `json:"advice"`
	AnalysisSeconds       float64   `json:"analysis_time"`
	AdviceSeconds         float64   `json:"advice_time"`
}

// NewLogRow flattens a classification/advice pair with its provenance.
func NewLogRow(id uuid.UUID, ts time.Time, prov Provenance, c ClassificationRecord, a AdviceRecord, analysis, advice time.Duration) LogRow {
	return LogRow{
		ID:                    id,
		Timestamp:             ts,
		Source:                prov.Source,
		Email:                 prov.Email,
		OriginalConcern:       c.RawInput,
		ConcernSummary:        c.Summary,
		LackingAspect:         c.LackingAspect,
		Concept:               c.ChosenSubConcept,
		ConceptReason:         c.Reason,
		RestatedConcern:       a.Summary,
		RestatedLackingAspect: a.LackingAspect,
		RestatedConcept:       a.ChosenSubConcept,
		RestatedConceptReason: a.Reason,
		SelectedQuote:         a.SelectedPassage,
		QuoteReason:           a.PassageReason,
		Advice:                a.Advice,
		AnalysisSeconds:       analysis.Seconds(),
		AdviceSeconds:         advice.Seconds(),
	}
}

// Records rebuilds the pair the row was flattened from.
func (r LogRow) Records() (ClassificationRecord, AdviceRecord) {
	c := ClassificationRecord{
		RawInput:         r.OriginalConcern,
		IsWorry:          true,
		Summary:          r.ConcernSummary,
		LackingAspect:    r.LackingAspect,
		ChosenSubConcept: r.Concept,
		Reason:           r.ConceptReason,
	}
	a := AdviceRecord{
		Summary:          r.RestatedConcern,
		LackingAspect:    r.RestatedLackingAspect,
		ChosenSubConcept: r.RestatedConcept,
		Reason:           r.RestatedConceptReason,
		SelectedPassage:  r.SelectedQuote,
		PassageReason:    r.QuoteReason,
		Advice:           r.Advice,
	}
	return c, a
}

// Values renders the row in LogColumns order.
func (r LogRow) Values() []string {
	return []string{
		r.Timestamp.Format(timestampLayout),
		string(r.Source),
		r.Email,
		r.OriginalConcern,
		r.ConcernSummary,
		r.LackingAspect,
		r.Concept,
		r.ConceptReason,
		r.RestatedConcern,
		r.RestatedLackingAspect,
		r.RestatedConcept,
		r.RestatedConceptReason,
		r.SelectedQuote,
		r.QuoteReason,
		r.Advice,
		strconv.FormatFloat(r.AnalysisSeconds, 'f', -1, 64),
		strconv.FormatFloat(r.AdviceSeconds, 'f', -1, 64),
	}
}
