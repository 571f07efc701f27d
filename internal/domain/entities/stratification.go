package entities

import "strings"

// FilterBucket is one of the mutually exclusive triage buckets a variant lands in.
// The order of the constants is the precedence order used by stratification.
type FilterBucket int

const (
	BucketBenign FilterBucket = iota
	BucketLikelyBenign
	BucketUnknownSignificance
	BucketLikelyPathogenic
	BucketPathogenic
	BucketNotHeterozygous
	BucketNotAutosomal
	BucketNotExACRare
	BucketNot1KGRare
	BucketPass
)

// FilterBuckets lists every bucket in precedence order.
var FilterBuckets = []FilterBucket{
	BucketBenign,
	BucketLikelyBenign,
	BucketUnknownSignificance,
	BucketLikelyPathogenic,
	BucketPathogenic,
	BucketNotHeterozygous,
	BucketNotAutosomal,
	BucketNotExACRare,
	BucketNot1KGRare,
	BucketPass,
}

func (b FilterBucket) String() string {
	switch b {
	case BucketBenign:
		return "Benign"
	case BucketLikelyBenign:
		return "Likely Benign"
	case BucketUnknownSignificance:
		return "Unknown Significance"
	case BucketLikelyPathogenic:
		return "Likely Pathogenic"
	case BucketPathogenic:
		return "Pathogenic"
	case BucketNotHeterozygous:
		return "Not Heterozygous"
	case BucketNotAutosomal:
		return "Not Autosomal"
	case BucketNotExACRare:
		return "Not ExAC Rare"
	case BucketNot1KGRare:
		return "Not 1KG Rare"
	case BucketPass:
		return "Other"
	default:
		return "Unknown"
	}
}

// MarshalText renders the bucket by name in JSON output.
func (b FilterBucket) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// BucketForClassification maps an authorised classification to its bucket.
func BucketForClassification(c Classification) (FilterBucket, bool) {
	if !c.Valid() {
		return 0, false
	}
	return FilterBucket(int(c) - 1), true
}

// Population codes reported for each frequency source.
var (
	ExACPopulations = []string{"AFR", "AMR", "EAS", "FIN", "NFE", "OTH", "SAS"}
	KGPopulations   = []string{"AFR", "AMR", "EAS", "EUR", "SAS"}
)

// ExACProp returns the Variant property key holding the ExAC frequency for pop.
func ExACProp(pop string) string { return "exac" + titleCode(pop) }

// KGProp returns the Variant property key holding the 1000 Genomes frequency for pop.
func KGProp(pop string) string { return "kgPhase3" + titleCode(pop) + "Af" }

func titleCode(pop string) string {
	if pop == "" {
		return pop
	}
	return pop[:1] + strings.ToLower(pop[1:])
}

// Conservation holds per-base conservation scores; nil means not annotated.
type Conservation struct {
	GERP      *float64 `json:"gerp,omitempty"`
	PhyloP    *float64 `json:"phylo_p,omitempty"`
	PhastCons *float64 `json:"phast_cons,omitempty"`
}

// VariantRecord is one stratified variant.
type VariantRecord struct {
	NodeID            string             `json:"node_id"`
	VariantID         string             `json:"variant_id"`
	Symbols           []string           `json:"symbols"`
	Inheritance       string             `json:"inheritance"`
	Classification    Classification     `json:"classification"`
	Filter            FilterBucket       `json:"filter"`
	// ExAC and KG hold population frequencies rounded to two decimals. A
	// present key with value 0 means below 0.005, not absent from the
	// population; missing data has no key. Filters use the unrounded values.
	ExAC              map[string]float64 `json:"exac,omitempty"`
	KG                map[string]float64 `json:"kg,omitempty"`
	Conservation      Conservation       `json:"conservation"`
	Occurrence        int                `json:"occurrence"`
	InternalFrequency float64            `json:"internal_frequency"`
}

// BucketCount is the aggregate size of one bucket.
type BucketCount struct {
	Bucket FilterBucket `json:"bucket"`
	Count  int          `json:"count"`
}

// Stratification is the full result for one run and panel.
type Stratification struct {
	RunID     string          `json:"run_id"`
	Panel     string          `json:"panel"`
	TotalRuns int             `json:"total_runs"`
	Variants  []VariantRecord `json:"variants"`
	Counts    []BucketCount   `json:"counts"`
}
