package growth

// Sex identifies the reference population for a child.
type Sex string

const (
	SexMale   Sex = "M"
	SexFemale Sex = "F"
)

// Valid reports whether the value is one of the supported sexes.
func (s Sex) Valid() bool {
	return s == SexMale || s == SexFemale
}

// Severity is the numeric classification tier for a single indicator.
// The core classifier produces three tiers; "mild" labels shown by some
// presentation layers are a display relabeling, never a fourth bucket here.
type Severity string

const (
	SeverityNormal   Severity = "normal"
	SeverityModerate Severity = "moderate"
	SeveritySevere   Severity = "severe"
)

// RiskLevel grades the urgency of follow-up care.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Measurement is a single anthropometric value. Immutable once produced;
// annotation returns a copy rather than mutating in place.
type Measurement struct {
	Value      float64  `json:"value"`
	Unit       string   `json:"unit"`
	Confidence float64  `json:"confidence"`
	ZScore     *float64 `json:"z_score,omitempty"`
	Percentile *float64 `json:"percentile,omitempty"`
}

// MeasurementSet groups the four measurements taken per scan.
type MeasurementSet struct {
	Height            Measurement `json:"height"`
	Weight            Measurement `json:"weight"`
	MUAC              Measurement `json:"muac"`
	HeadCircumference Measurement `json:"head_circumference"`
}

// IndicatorAssessment is the classification of one malnutrition indicator.
type IndicatorAssessment struct {
	Status    Severity  `json:"status"`
	ZScore    float64   `json:"z_score"`
	RiskLevel RiskLevel `json:"risk_level"`
}

// NutritionalStatus is the full classification output.
type NutritionalStatus struct {
	Stunting        IndicatorAssessment `json:"stunting"`
	Wasting         IndicatorAssessment `json:"wasting"`
	Underweight     IndicatorAssessment `json:"underweight"`
	OverallRisk     RiskLevel           `json:"overall_risk"`
	Recommendations []string            `json:"recommendations"`
}

const (
	UnitCentimeters = "cm"
	UnitKilograms   = "kg"
)
