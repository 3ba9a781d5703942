package growth

import (
	"fmt"

	apperrors "github.com/smallsteps/growthscreen/pkg/errors"
)

// CodeOutOfRangeInput marks ages or sexes outside the reference table domain.
const CodeOutOfRangeInput = "out_of_range_input"

// MaxAgeMonths bounds the supported reference domain.
const MaxAgeMonths = 60

// Reference holds the population mean and standard deviation used to
// convert an observed measurement into a Z-score.
type Reference struct {
	Mean float64
	SD   float64
}

// refCurve stores mean/SD knots sampled at knotAges; lookups interpolate
// linearly between the surrounding knots.
type refCurve struct {
	mean []float64
	sd   []float64
}

// linearRef approximates a measurement-for-measurement reference
// (weight-for-height) as a line over the second measurement.
type linearRef struct {
	slope     float64
	intercept float64
	sd        float64
}

var knotAges = []int{0, 6, 12, 24, 36, 48, 60}

// Standards is the age/sex-indexed growth reference table. The values are
// WHO growth standard approximations sampled at the knot ages above.
type Standards struct {
	heightForAge    map[Sex]refCurve
	weightForAge    map[Sex]refCurve
	muacForAge      map[Sex]refCurve
	headForAge      map[Sex]refCurve
	weightForHeight map[Sex]linearRef
}

// NewStandards builds the reference table for ages 0-60 months.
func NewStandards() *Standards {
	return &Standards{
		heightForAge: map[Sex]refCurve{
			SexMale: {
				mean: []float64{49.9, 67.6, 75.7, 87.1, 96.1, 103.3, 110.0},
				sd:   []float64{1.9, 2.3, 2.5, 3.0, 3.6, 4.1, 4.6},
			},
			SexFemale: {
				mean: []float64{49.1, 65.7, 74.0, 85.7, 95.1, 102.7, 109.4},
				sd:   []float64{1.9, 2.3, 2.6, 3.0, 3.7, 4.3, 4.8},
			},
		},
		weightForAge: map[Sex]refCurve{
			SexMale: {
				mean: []float64{3.3, 7.9, 9.6, 12.2, 14.3, 16.3, 18.3},
				sd:   []float64{0.4, 0.9, 1.1, 1.4, 1.7, 2.0, 2.3},
			},
			SexFemale: {
				mean: []float64{3.2, 7.3, 8.9, 11.5, 13.9, 16.1, 18.2},
				sd:   []float64{0.4, 0.9, 1.1, 1.4, 1.8, 2.2, 2.6},
			},
		},
		muacForAge: map[Sex]refCurve{
			SexMale: {
				mean: []float64{10.6, 13.9, 14.6, 15.2, 15.7, 16.1, 16.5},
				sd:   []float64{0.9, 1.0, 1.0, 1.1, 1.1, 1.2, 1.2},
			},
			SexFemale: {
				mean: []float64{10.2, 13.5, 14.2, 14.9, 15.5, 16.0, 16.4},
				sd:   []float64{0.9, 1.0, 1.0, 1.1, 1.1, 1.2, 1.2},
			},
		},
		headForAge: map[Sex]refCurve{
			SexMale: {
				mean: []float64{34.5, 43.3, 46.1, 48.3, 49.6, 50.5, 51.1},
				sd:   []float64{1.2, 1.3, 1.4, 1.4, 1.5, 1.5, 1.6},
			},
			SexFemale: {
				mean: []float64{33.9, 42.2, 44.9, 47.2, 48.6, 49.5, 50.2},
				sd:   []float64{1.2, 1.3, 1.4, 1.4, 1.5, 1.5, 1.6},
			},
		},
		weightForHeight: map[Sex]linearRef{
			SexMale:   {slope: 0.228, intercept: -7.4, sd: 1.0},
			SexFemale: {slope: 0.225, intercept: -7.4, sd: 1.0},
		},
	}
}

// InDomain reports whether the reference table covers the given child.
func (s *Standards) InDomain(ageMonths int, sex Sex) bool {
	return sex.Valid() && ageMonths >= 0 && ageMonths <= MaxAgeMonths
}

// HeightForAge returns the stature reference for the given age bucket.
func (s *Standards) HeightForAge(ageMonths int, sex Sex) (Reference, error) {
	return s.lookup(s.heightForAge, ageMonths, sex)
}

// WeightForAge returns the body mass reference for the given age bucket.
func (s *Standards) WeightForAge(ageMonths int, sex Sex) (Reference, error) {
	return s.lookup(s.weightForAge, ageMonths, sex)
}

// MUACForAge returns the mid-upper-arm circumference reference.
func (s *Standards) MUACForAge(ageMonths int, sex Sex) (Reference, error) {
	return s.lookup(s.muacForAge, ageMonths, sex)
}

// HeadCircumferenceForAge returns the head circumference reference.
func (s *Standards) HeadCircumferenceForAge(ageMonths int, sex Sex) (Reference, error) {
	return s.lookup(s.headForAge, ageMonths, sex)
}

// WeightForHeight returns the expected weight for a child of the given
// stature, independent of age.
func (s *Standards) WeightForHeight(heightCm float64, sex Sex) (Reference, error) {
	line, ok := s.weightForHeight[sex]
	if !ok {
		return Reference{}, s.domainError(0, sex)
	}
	if heightCm <= 0 {
		return Reference{}, apperrors.Wrap(CodeOutOfRangeInput, fmt.Sprintf("height %.1fcm outside reference domain", heightCm), nil)
	}
	return Reference{Mean: line.slope*heightCm + line.intercept, SD: line.sd}, nil
}

func (s *Standards) lookup(table map[Sex]refCurve, ageMonths int, sex Sex) (Reference, error) {
	if !s.InDomain(ageMonths, sex) {
		return Reference{}, s.domainError(ageMonths, sex)
	}
	curve := table[sex]
	return Reference{
		Mean: interpolate(curve.mean, ageMonths),
		SD:   interpolate(curve.sd, ageMonths),
	}, nil
}

func (s *Standards) domainError(ageMonths int, sex Sex) error {
	return apperrors.Wrap(CodeOutOfRangeInput,
		fmt.Sprintf("age %d months, sex %q outside supported growth standard domain (0-%d months, M/F)", ageMonths, sex, MaxAgeMonths), nil)
}

func interpolate(values []float64, ageMonths int) float64 {
	for i := 1; i < len(knotAges); i++ {
		if ageMonths > knotAges[i] {
			continue
		}
		lo, hi := knotAges[i-1], knotAges[i]
		frac := float64(ageMonths-lo) / float64(hi-lo)
		return values[i-1] + frac*(values[i]-values[i-1])
	}
	return values[len(values)-1]
}
