package entities

import "strings"

// Node labels.
const (
	LabelUser            = "User"
	LabelVariant         = "Variant"
	LabelAnnotation      = "Annotation"
	LabelFeature         = "Feature"
	LabelSymbol          = "Symbol"
	LabelVirtualPanel    = "VirtualPanel"
	LabelRunInfo         = "RunInfo"
	LabelSample          = "Sample"
	LabelPathogenicity   = "Pathogenicity"
	LabelPanelMembership = "PanelMembership"
	LabelVariantEvent    = "VariantEvent"
	LabelFeatureEvent    = "FeatureEvent"
	LabelSymbolEvent     = "SymbolEvent"
	LabelPanelEvent      = "VirtualPanelEvent"
)

// Audit relationship types. Each may appear at most once per action or event node.
const (
	RelAddedBy            = "ADDED_BY"
	RelAddAuthorisedBy    = "ADD_AUTHORISED_BY"
	RelRemovedBy          = "REMOVED_BY"
	RelRemoveAuthorisedBy = "REMOVE_AUTHORISED_BY"
	RelAuthorisedBy       = "AUTHORISED_BY"
	RelRejectedBy         = "REJECTED_BY"
	RelHasUserEvent       = "HAS_USER_EVENT"
)

// Domain relationship types.
const (
	RelHasPathogenicity     = "HAS_PATHOGENICITY"
	RelHasMembershipAction  = "HAS_MEMBERSHIP_ACTION"
	RelHasHetVariant        = "HAS_HET_VARIANT"
	RelHasHomVariant        = "HAS_HOM_VARIANT"
	RelHasAnnotation        = "HAS_ANNOTATION"
	RelInFeature            = "IN_FEATURE"
	RelHasFeature           = "HAS_FEATURE"
	RelContainsSymbol       = "CONTAINS_SYMBOL"
	RelHasAnalysis          = "HAS_ANALYSIS"
	inheritanceRelPrefix    = "HAS_"
	inheritanceRelSuffix    = "_VARIANT"
	InheritanceHeterozygous = "HET"
	InheritanceHomozygous   = "HOM"
)

// Property keys read or written by the core.
const (
	PropDate             = "date"
	PropEvidence         = "evidence"
	PropClassification   = "classification"
	PropUserID           = "userId"
	PropVariantID        = "variantId"
	PropChromosome       = "chromosome"
	PropAnalysisID       = "analysisId"
	PropPanel            = "panel"
	PropVirtualPanelName = "virtualPanelName"
	PropSymbolID         = "symbolId"
	PropFeatureID        = "featureId"
	PropSampleID         = "sampleId"
	PropGERP             = "gerp"
	PropPhyloP           = "phyloP"
	PropPhastCons        = "phastCons"
)

// SingleEdgeTypes lists the relationship types a node may originate at most once.
// Backends that support it enforce this as a uniqueness constraint on (start node, type).
var SingleEdgeTypes = []string{
	RelAddedBy,
	RelAddAuthorisedBy,
	RelRemovedBy,
	RelRemoveAuthorisedBy,
	RelAuthorisedBy,
	RelRejectedBy,
	RelHasUserEvent,
}

// InheritanceRelTypes lists the genotype edges from RunInfo to Variant.
var InheritanceRelTypes = []string{RelHasHetVariant, RelHasHomVariant}

// InheritanceLabel strips the fixed padding from an inheritance edge type,
// turning HAS_HET_VARIANT into HET.
func InheritanceLabel(relType string) string {
	return strings.TrimSuffix(strings.TrimPrefix(relType, inheritanceRelPrefix), inheritanceRelSuffix)
}

// AlleleCount returns how many alleles an inheritance edge contributes.
func AlleleCount(relType string) int {
	if relType == RelHasHomVariant {
		return 2
	}
	return 1
}

// IdentityProps names the property that identifies a node of each label.
var IdentityProps = map[string]string{
	LabelUser:         PropUserID,
	LabelVariant:      PropVariantID,
	LabelRunInfo:      PropAnalysisID,
	LabelVirtualPanel: PropVirtualPanelName,
	LabelSymbol:       PropSymbolID,
	LabelFeature:      PropFeatureID,
	LabelSample:       PropSampleID,
}

// EventLabelFor returns the event label used for chains hanging off subjectLabel.
func EventLabelFor(subjectLabel string) (string, bool) {
	label := subjectLabel + "Event"
	return label, IsEventLabel(label)
}
