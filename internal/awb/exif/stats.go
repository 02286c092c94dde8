package exif

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// PointStats summarises the frames matched to one map point.
type PointStats struct {
	Alias   string
	Count   int
	MeanRpG float64
	StdRpG  float64
	MeanBpG float64
	StdBpG  float64
	MeanCCT float64
}

// Stats is the aggregate over one import's matches.
type Stats struct {
	Total     int
	Matched   int
	Unmatched int

	// PerPoint is sorted by descending frame count, then alias.
	PerPoint []PointStats

	// CCTBVCorrelation is the Pearson correlation between colour
	// temperature and brightness over all frames; scenes that get
	// brighter as they get bluer show up here.
	CCTBVCorrelation float64
}

// ComputeStats aggregates matches into per-point coverage statistics.
func ComputeStats(matches []Match) *Stats {
	s := &Stats{Total: len(matches)}
	if len(matches) == 0 {
		return s
	}

	byAlias := make(map[string][]Match)
	cct := make([]float64, 0, len(matches))
	bv := make([]float64, 0, len(matches))
	for _, m := range matches {
		cct = append(cct, m.Frame.CCT)
		bv = append(bv, m.Frame.BV)
		if !m.Matched {
			s.Unmatched++
			continue
		}
		s.Matched++
		byAlias[m.Alias] = append(byAlias[m.Alias], m)
	}

	if len(matches) > 1 {
		s.CCTBVCorrelation = stat.Correlation(cct, bv, nil)
	}

	for alias, ms := range byAlias {
		rpg := make([]float64, len(ms))
		bpg := make([]float64, len(ms))
		cs := make([]float64, len(ms))
		for i, m := range ms {
			rpg[i] = m.Frame.RpG
			bpg[i] = m.Frame.BpG
			cs[i] = m.Frame.CCT
		}
		ps := PointStats{
			Alias:   alias,
			Count:   len(ms),
			MeanRpG: stat.Mean(rpg, nil),
			MeanBpG: stat.Mean(bpg, nil),
			MeanCCT: stat.Mean(cs, nil),
		}
		if len(ms) > 1 {
			ps.StdRpG = stat.StdDev(rpg, nil)
			ps.StdBpG = stat.StdDev(bpg, nil)
		}
		s.PerPoint = append(s.PerPoint, ps)
	}

	sort.Slice(s.PerPoint, func(i, j int) bool {
		if s.PerPoint[i].Count != s.PerPoint[j].Count {
			return s.PerPoint[i].Count > s.PerPoint[j].Count
		}
		return s.PerPoint[i].Alias < s.PerPoint[j].Alias
	})
	return s
}
