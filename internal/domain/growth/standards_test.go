package growth

import (
	"testing"

	"github.com/stretchr/testify/require"

	apperrors "github.com/smallsteps/growthscreen/pkg/errors"
)

func TestStandardsKnotLookup(t *testing.T) {
	s := NewStandards()

	ref, err := s.HeightForAge(0, SexMale)
	require.NoError(t, err)
	require.Equal(t, 49.9, ref.Mean)
	require.Equal(t, 1.9, ref.SD)

	ref, err = s.HeightForAge(60, SexFemale)
	require.NoError(t, err)
	require.Equal(t, 109.4, ref.Mean)
}

func TestStandardsInterpolatesBetweenKnots(t *testing.T) {
	s := NewStandards()

	// 18 months sits halfway between the 12 and 24 month knots.
	ref, err := s.WeightForAge(18, SexMale)
	require.NoError(t, err)
	require.InDelta(t, (9.6+12.2)/2, ref.Mean, 1e-9)
	require.InDelta(t, (1.1+1.4)/2, ref.SD, 1e-9)
}

func TestStandardsMeansIncreaseWithAge(t *testing.T) {
	s := NewStandards()
	prev := 0.0
	for age := 0; age <= MaxAgeMonths; age++ {
		ref, err := s.HeightForAge(age, SexFemale)
		require.NoError(t, err)
		require.Greater(t, ref.Mean, prev, "age %d", age)
		prev = ref.Mean
	}
}

func TestStandardsDomain(t *testing.T) {
	s := NewStandards()

	require.True(t, s.InDomain(0, SexMale))
	require.True(t, s.InDomain(60, SexFemale))
	require.False(t, s.InDomain(-1, SexMale))
	require.False(t, s.InDomain(61, SexMale))
	require.False(t, s.InDomain(24, Sex("unknown")))

	_, err := s.MUACForAge(61, SexMale)
	require.True(t, apperrors.IsCode(err, CodeOutOfRangeInput))

	_, err = s.WeightForHeight(0, SexFemale)
	require.True(t, apperrors.IsCode(err, CodeOutOfRangeInput))
}
