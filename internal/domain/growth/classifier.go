package growth

import "math"

// Classifier converts a measurement set into a nutritional status using the
// growth reference table. Pure: identical inputs always yield identical
// output, with no clock or I/O dependency.
type Classifier struct {
	standards *Standards
}

// NewClassifier wires the classifier to a reference table.
func NewClassifier(standards *Standards) *Classifier {
	return &Classifier{standards: standards}
}

// Classify assesses stunting (height-for-age), wasting (weight-for-height)
// and underweight (weight-for-age) for one child. Ages or sexes outside the
// reference domain fail with out_of_range_input and no partial result.
func (c *Classifier) Classify(ms MeasurementSet, ageMonths int, sex Sex) (NutritionalStatus, error) {
	heightRef, err := c.standards.HeightForAge(ageMonths, sex)
	if err != nil {
		return NutritionalStatus{}, err
	}
	weightRef, err := c.standards.WeightForAge(ageMonths, sex)
	if err != nil {
		return NutritionalStatus{}, err
	}
	wfhRef, err := c.standards.WeightForHeight(ms.Height.Value, sex)
	if err != nil {
		return NutritionalStatus{}, err
	}

	stunting := assess(zScore(ms.Height.Value, heightRef))
	wasting := assess(zScore(ms.Weight.Value, wfhRef))
	underweight := assess(zScore(ms.Weight.Value, weightRef))
	overall := overallRisk(stunting, wasting, underweight)

	return NutritionalStatus{
		Stunting:        stunting,
		Wasting:         wasting,
		Underweight:     underweight,
		OverallRisk:     overall,
		Recommendations: recommendations(stunting, wasting, underweight, ageMonths, overall),
	}, nil
}

// Annotate returns a copy of the measurement set with Z-scores and
// percentiles filled in against the age/sex references. The input is left
// untouched.
func (c *Classifier) Annotate(ms MeasurementSet, ageMonths int, sex Sex) (MeasurementSet, error) {
	refs := []struct {
		m      *Measurement
		lookup func() (Reference, error)
	}{
		{&ms.Height, func() (Reference, error) { return c.standards.HeightForAge(ageMonths, sex) }},
		{&ms.Weight, func() (Reference, error) { return c.standards.WeightForAge(ageMonths, sex) }},
		{&ms.MUAC, func() (Reference, error) { return c.standards.MUACForAge(ageMonths, sex) }},
		{&ms.HeadCircumference, func() (Reference, error) { return c.standards.HeadCircumferenceForAge(ageMonths, sex) }},
	}
	for _, ref := range refs {
		r, err := ref.lookup()
		if err != nil {
			return MeasurementSet{}, err
		}
		z := zScore(ref.m.Value, r)
		p := percentileFromZ(z)
		ref.m.ZScore = &z
		ref.m.Percentile = &p
	}
	return ms, nil
}

func zScore(observed float64, ref Reference) float64 {
	return (observed - ref.Mean) / ref.SD
}

// assess applies the uniform WHO cutoffs: >= -2 normal, [-3,-2) moderate,
// < -3 severe.
func assess(z float64) IndicatorAssessment {
	switch {
	case z >= -2:
		return IndicatorAssessment{Status: SeverityNormal, ZScore: z, RiskLevel: RiskLow}
	case z >= -3:
		return IndicatorAssessment{Status: SeverityModerate, ZScore: z, RiskLevel: RiskMedium}
	default:
		return IndicatorAssessment{Status: SeveritySevere, ZScore: z, RiskLevel: RiskHigh}
	}
}

// overallRisk escalates to critical only under the co-morbidity rule: two or
// more indicators simultaneously severe. A single severe indicator caps at
// high.
func overallRisk(indicators ...IndicatorAssessment) RiskLevel {
	severe, moderate := 0, 0
	for _, ind := range indicators {
		switch ind.Status {
		case SeveritySevere:
			severe++
		case SeverityModerate:
			moderate++
		}
	}
	switch {
	case severe >= 2:
		return RiskCritical
	case severe == 1:
		return RiskHigh
	case moderate > 0:
		return RiskMedium
	default:
		return RiskLow
	}
}

// percentileFromZ maps a Z-score through the standard normal CDF, clamped
// to [0,100].
func percentileFromZ(z float64) float64 {
	p := 50 * (1 + math.Erf(z/math.Sqrt2))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
