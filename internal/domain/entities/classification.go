package entities

import "fmt"

// Classification is an ACMG-style pathogenicity call. Zero means no classification.
type Classification int

const (
	ClassificationNone Classification = iota
	Benign
	LikelyBenign
	UnknownSignificance
	LikelyPathogenic
	Pathogenic
)

// Valid reports whether c is one of the five assignable classes.
func (c Classification) Valid() bool {
	return c >= Benign && c <= Pathogenic
}

func (c Classification) String() string {
	switch c {
	case ClassificationNone:
		return "None"
	case Benign:
		return "Benign"
	case LikelyBenign:
		return "Likely Benign"
	case UnknownSignificance:
		return "Unknown Significance"
	case LikelyPathogenic:
		return "Likely Pathogenic"
	case Pathogenic:
		return "Pathogenic"
	default:
		return fmt.Sprintf("Classification(%d)", int(c))
	}
}

// ParseClassification accepts the numeric form 1..5.
func ParseClassification(v int64) (Classification, error) {
	c := Classification(v)
	if !c.Valid() {
		return ClassificationNone, fmt.Errorf("%w: classification must be 1..5, got %d", ErrInvalidInput, v)
	}
	return c, nil
}
