package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/ersonp/variantdb-core/internal/domain/entities"
	"github.com/ersonp/variantdb-core/internal/domain/ports"
)

// StratifyOptions tunes the stratification filters.
type StratifyOptions struct {
	// ScopeToPanel restricts internal frequency to runs analysed with the same
	// panel, plus the run being stratified whatever its panel property says.
	// The default counts every run in the store.
	ScopeToPanel bool
	// ExACThreshold and KGThreshold are the population frequencies above which
	// a variant is no longer considered rare.
	ExACThreshold float64
	KGThreshold   float64
}

// DefaultStratifyOptions returns the 1% rarity thresholds with unscoped run counts.
func DefaultStratifyOptions() StratifyOptions {
	return StratifyOptions{
		ExACThreshold: 0.01,
		KGThreshold:   0.01,
	}
}

// StratificationService buckets a run's panel variants for clinical review.
type StratificationService struct {
	graph ports.GraphDB
	opts  StratifyOptions
}

// NewStratificationService creates a new StratificationService.
func NewStratificationService(graph ports.GraphDB, opts StratifyOptions) *StratificationService {
	return &StratificationService{graph: graph, opts: opts}
}

// Stratify assigns each variant of the run that falls in the panel to exactly one filter bucket.
func (s *StratificationService) Stratify(ctx context.Context, runID, panelName string) (*entities.Stratification, error) {
	var result *entities.Stratification
	err := s.graph.View(ctx, func(tx ports.GraphTx) error {
		st := &stratifier{tx: tx, opts: s.opts, featureSymbols: make(map[string][]string)}
		var err error
		result, err = st.run(ctx, runID, panelName)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("stratifying run %s: %w", runID, err)
	}
	return result, nil
}

// stratifier holds the lookups of one Stratify call. Nothing here outlives the transaction.
type stratifier struct {
	tx             ports.GraphTx
	opts           StratifyOptions
	panelSymbols   map[string]string // symbol node id -> symbol name
	featureSymbols map[string][]string
	scopedRuns     map[string]bool
	totalRuns      int
}

func (st *stratifier) run(ctx context.Context, runID, panelName string) (*entities.Stratification, error) {
	run, err := uniqueNode(ctx, st.tx, entities.LabelRunInfo, entities.PropAnalysisID, runID)
	if err != nil {
		return nil, err
	}
	panel, err := uniqueNode(ctx, st.tx, entities.LabelVirtualPanel, entities.PropVirtualPanelName, panelName)
	if err != nil {
		return nil, err
	}
	if err := st.loadPanel(ctx, panel); err != nil {
		return nil, err
	}
	if err := st.loadRunTotals(ctx, run.ID, panelName); err != nil {
		return nil, err
	}

	genotypes, err := st.tx.Relationships(ctx, run.ID, entities.Outgoing, entities.InheritanceRelTypes...)
	if err != nil {
		return nil, fmt.Errorf("reading run genotypes: %w", err)
	}

	seen := make(map[string]bool, len(genotypes))
	records := make([]entities.VariantRecord, 0, len(genotypes))
	for _, g := range genotypes {
		if seen[g.EndID] {
			continue
		}
		seen[g.EndID] = true

		symbols, err := st.variantPanelSymbols(ctx, g.EndID)
		if err != nil {
			return nil, err
		}
		if len(symbols) == 0 {
			continue
		}
		rec, err := st.record(ctx, g, symbols)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].VariantID != records[j].VariantID {
			return records[i].VariantID < records[j].VariantID
		}
		return records[i].NodeID < records[j].NodeID
	})

	return &entities.Stratification{
		RunID:     runID,
		Panel:     panelName,
		TotalRuns: st.totalRuns,
		Variants:  records,
		Counts:    countBuckets(records),
	}, nil
}

func (st *stratifier) loadPanel(ctx context.Context, panel entities.Node) error {
	rels, err := st.tx.Relationships(ctx, panel.ID, entities.Outgoing, entities.RelContainsSymbol)
	if err != nil {
		return fmt.Errorf("reading panel symbols: %w", err)
	}
	st.panelSymbols = make(map[string]string, len(rels))
	for _, r := range rels {
		sym, err := st.tx.Node(ctx, r.EndID)
		if err != nil {
			return err
		}
		st.panelSymbols[sym.ID] = sym.String(entities.PropSymbolID)
	}
	return nil
}

// loadRunTotals counts the runs used as the internal frequency denominator.
func (st *stratifier) loadRunTotals(ctx context.Context, runID, panelName string) error {
	if !st.opts.ScopeToPanel {
		n, err := st.tx.CountNodes(ctx, entities.LabelRunInfo)
		if err != nil {
			return fmt.Errorf("counting runs: %w", err)
		}
		st.totalRuns = n
		return nil
	}

	runs, err := st.tx.FindNodes(ctx, entities.LabelRunInfo, entities.PropPanel, panelName)
	if err != nil {
		return fmt.Errorf("finding panel runs: %w", err)
	}
	st.scopedRuns = map[string]bool{runID: true}
	for _, r := range runs {
		st.scopedRuns[r.ID] = true
	}
	st.totalRuns = len(st.scopedRuns)
	return nil
}

// variantPanelSymbols follows Variant -> Annotation -> Feature <- Symbol and
// keeps the symbols the panel contains, each once, sorted.
func (st *stratifier) variantPanelSymbols(ctx context.Context, variantID string) ([]string, error) {
	annotations, err := st.tx.Relationships(ctx, variantID, entities.Outgoing, entities.RelHasAnnotation)
	if err != nil {
		return nil, fmt.Errorf("reading annotations: %w", err)
	}
	names := make(map[string]bool)
	for _, a := range annotations {
		features, err := st.tx.Relationships(ctx, a.EndID, entities.Outgoing, entities.RelInFeature)
		if err != nil {
			return nil, fmt.Errorf("reading annotation features: %w", err)
		}
		for _, f := range features {
			symbolIDs, err := st.symbolsOfFeature(ctx, f.EndID)
			if err != nil {
				return nil, err
			}
			for _, id := range symbolIDs {
				if name, ok := st.panelSymbols[id]; ok {
					names[name] = true
				}
			}
		}
	}
	out := make([]string, 0, len(names))
	for n := range names {
		out = append(out, n)
	}
	sort.Strings(out)
	return out, nil
}

func (st *stratifier) symbolsOfFeature(ctx context.Context, featureID string) ([]string, error) {
	if ids, ok := st.featureSymbols[featureID]; ok {
		return ids, nil
	}
	rels, err := st.tx.Relationships(ctx, featureID, entities.Incoming, entities.RelHasFeature)
	if err != nil {
		return nil, fmt.Errorf("reading feature symbols: %w", err)
	}
	ids := make([]string, 0, len(rels))
	for _, r := range rels {
		ids = append(ids, r.StartID)
	}
	st.featureSymbols[featureID] = ids
	return ids, nil
}

func (st *stratifier) record(ctx context.Context, genotype entities.Relationship, symbols []string) (entities.VariantRecord, error) {
	variant, err := st.tx.Node(ctx, genotype.EndID)
	if err != nil {
		return entities.VariantRecord{}, err
	}
	classification, err := currentClassification(ctx, st.tx, variant.ID)
	if err != nil {
		return entities.VariantRecord{}, err
	}
	occurrence, err := st.occurrence(ctx, variant.ID)
	if err != nil {
		return entities.VariantRecord{}, err
	}

	rec := entities.VariantRecord{
		NodeID:         variant.ID,
		VariantID:      variant.String(entities.PropVariantID),
		Symbols:        symbols,
		Inheritance:    entities.InheritanceLabel(genotype.Type),
		Classification: classification,
		ExAC:           make(map[string]float64),
		KG:             make(map[string]float64),
		Conservation: entities.Conservation{
			GERP:      optionalFloat(variant, entities.PropGERP),
			PhyloP:    optionalFloat(variant, entities.PropPhyloP),
			PhastCons: optionalFloat(variant, entities.PropPhastCons),
		},
		Occurrence: occurrence,
	}
	if st.totalRuns > 0 {
		rec.InternalFrequency = round2(float64(occurrence) / float64(2*st.totalRuns))
	}

	in := filterInput{
		classification: classification,
		homozygous:     genotype.Type == entities.RelHasHomVariant,
		autosomal:      isAutosomal(variant),
	}
	for _, pop := range entities.ExACPopulations {
		if f, ok := variant.Float(entities.ExACProp(pop)); ok {
			rec.ExAC[pop] = round2(f)
			in.exac = append(in.exac, f)
		}
	}
	for _, pop := range entities.KGPopulations {
		if f, ok := variant.Float(entities.KGProp(pop)); ok {
			rec.KG[pop] = round2(f)
			in.kg = append(in.kg, f)
		}
	}
	rec.Filter = assignFilter(in, st.opts)
	return rec, nil
}

// occurrence counts alleles observed across runs: heterozygous edges add one,
// homozygous edges add two.
func (st *stratifier) occurrence(ctx context.Context, variantID string) (int, error) {
	rels, err := st.tx.Relationships(ctx, variantID, entities.Incoming, entities.InheritanceRelTypes...)
	if err != nil {
		return 0, fmt.Errorf("reading variant genotypes: %w", err)
	}
	n := 0
	for _, r := range rels {
		if st.scopedRuns != nil && !st.scopedRuns[r.StartID] {
			continue
		}
		n += entities.AlleleCount(r.Type)
	}
	return n, nil
}

// filterInput is what the bucket precedence rules look at.
type filterInput struct {
	classification entities.Classification
	homozygous     bool
	autosomal      bool
	exac           []float64
	kg             []float64
}

// assignFilter picks the first matching bucket in precedence order.
func assignFilter(in filterInput, opts StratifyOptions) entities.FilterBucket {
	if b, ok := entities.BucketForClassification(in.classification); ok {
		return b
	}
	if in.homozygous {
		return entities.BucketNotHeterozygous
	}
	if !in.autosomal {
		return entities.BucketNotAutosomal
	}
	if anyAbove(in.exac, opts.ExACThreshold) {
		return entities.BucketNotExACRare
	}
	if anyAbove(in.kg, opts.KGThreshold) {
		return entities.BucketNot1KGRare
	}
	return entities.BucketPass
}

func anyAbove(values []float64, threshold float64) bool {
	for _, v := range values {
		if v > threshold {
			return true
		}
	}
	return false
}

func countBuckets(records []entities.VariantRecord) []entities.BucketCount {
	counts := make(map[entities.FilterBucket]int, len(entities.FilterBuckets))
	for _, r := range records {
		counts[r.Filter]++
	}
	out := make([]entities.BucketCount, 0, len(entities.FilterBuckets))
	for _, b := range entities.FilterBuckets {
		out = append(out, entities.BucketCount{Bucket: b, Count: counts[b]})
	}
	return out
}

// isAutosomal reads the chromosome from the chromosome property, falling back
// to the contig prefix of the variant id (e.g. "7:140453136A>T").
func isAutosomal(variant entities.Node) bool {
	chrom := variant.String(entities.PropChromosome)
	if chrom == "" {
		if n, ok := variant.Int(entities.PropChromosome); ok {
			chrom = strconv.FormatInt(n, 10)
		}
	}
	if chrom == "" {
		chrom, _, _ = strings.Cut(variant.String(entities.PropVariantID), ":")
	}
	chrom = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(chrom)), "chr")
	n, err := strconv.Atoi(chrom)
	return err == nil && n >= 1 && n <= 22
}

func uniqueNode(ctx context.Context, tx ports.GraphTx, label, key, value string) (entities.Node, error) {
	nodes, err := tx.FindNodes(ctx, label, key, value)
	if err != nil {
		return entities.Node{}, fmt.Errorf("finding %s: %w", label, err)
	}
	switch len(nodes) {
	case 0:
		return entities.Node{}, fmt.Errorf("%w: %s with %s=%s", entities.ErrNotFound, label, key, value)
	case 1:
		return nodes[0], nil
	default:
		return entities.Node{}, fmt.Errorf("%w: %d %s nodes share %s=%s", entities.ErrInternalInconsistency, len(nodes), label, key, value)
	}
}

func optionalFloat(n entities.Node, key string) *float64 {
	f, ok := n.Float(key)
	if !ok {
		return nil
	}
	return &f
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
