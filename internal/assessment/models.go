package assessment

import "fmt"

// Dimension is one of the three top-level traits the assessment measures.
type Dimension string

const (
	DimAlignment      Dimension = "alignment"
	DimExecution      Dimension = "execution"
	DimAccountability Dimension = "accountability"
)

// Dimensions lists the closed set in canonical order.
func Dimensions() []Dimension {
	return []Dimension{DimAlignment, DimExecution, DimAccountability}
}

func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimAlignment, DimExecution, DimAccountability:
		return Dimension(s), nil
	}
	return "", fmt.Errorf("unknown dimension %q", s)
}

// Subscale is a measurement facet within a dimension.
type Subscale string

const (
	SubPersonalDiscipline  Subscale = "pd"
	SubCollectiveSystems   Subscale = "cs"
	SubObservableBehaviors Subscale = "ob"
)

// Subscales lists the closed set in canonical order.
func Subscales() []Subscale {
	return []Subscale{SubPersonalDiscipline, SubCollectiveSystems, SubObservableBehaviors}
}

func ParseSubscale(s string) (Subscale, error) {
	switch Subscale(s) {
	case SubPersonalDiscipline, SubCollectiveSystems, SubObservableBehaviors:
		return Subscale(s), nil
	}
	return "", fmt.Errorf("unknown subscale %q", s)
}

// Question is an immutable catalog entry within a question version.
// Order is the canonical identity (1..36); shuffling never changes it.
type Question struct {
	Order      int       `json:"question_order"`
	Text       string    `json:"text"`
	Dimension  Dimension `json:"dimension"`
	Subscale   Subscale  `json:"subscale"`
	IsReversed bool      `json:"is_reversed"`
}

// DimensionResult carries every derived number for one dimension.
// Pd, Cs, Ob are 0-100 integers; Composite is a 0-100 float; Strength
// is the user-facing 1.0-10.0 score at one decimal place.
type DimensionResult struct {
	Pd        int     `json:"pd"`
	Cs        int     `json:"cs"`
	Ob        int     `json:"ob"`
	Composite float64 `json:"composite"`
	Strength  float64 `json:"strength"`
}
