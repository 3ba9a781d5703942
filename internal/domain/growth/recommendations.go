package growth

// recommendations builds the deterministic advice list for a classification.
// Indicator-specific entries come first, then age-specific feeding advice,
// always terminated by a follow-up entry keyed on the overall risk.
func recommendations(stunting, wasting, underweight IndicatorAssessment, ageMonths int, overall RiskLevel) []string {
	var out []string

	if stunting.Status != SeverityNormal {
		out = append(out, "Signs of stunting detected. Ensure adequate nutrition and monitor growth closely.")
		if stunting.Status == SeveritySevere {
			out = append(out, "Severe stunting detected. Seek immediate nutritional intervention.")
		}
	}
	if wasting.Status != SeverityNormal {
		out = append(out, "Signs of wasting detected. Focus on nutrient-dense foods.")
		if wasting.Status == SeveritySevere {
			out = append(out, "Severe acute malnutrition. Emergency treatment needed.")
		}
	}
	if underweight.Status != SeverityNormal {
		out = append(out, "Child is underweight. Increase caloric intake and protein-rich foods.")
		if underweight.Status == SeveritySevere {
			out = append(out, "Severe underweight. Immediate medical attention required.")
		}
	}

	if len(out) > 0 {
		out = append(out, "Refer caregiver for nutritional counseling.")
	} else {
		out = append(out, "Growth appears normal. Continue regular monitoring.")
	}

	switch {
	case ageMonths < 6:
		out = append(out, "Exclusive breastfeeding recommended until 6 months.")
	case ageMonths < 24:
		out = append(out, "Continue breastfeeding while introducing complementary foods.")
		out = append(out, "Ensure iron-rich foods to prevent anemia.")
	}

	out = append(out, followUp(overall))
	return out
}

func followUp(overall RiskLevel) string {
	switch overall {
	case RiskHigh, RiskCritical:
		return "Refer immediately for clinical assessment."
	case RiskMedium:
		return "Follow up with a health worker in 2 weeks."
	default:
		return "Follow up at the next routine visit in 4-6 weeks."
	}
}
