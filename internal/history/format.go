package history

import (
	"math"
	"math/big"
	"strconv"

	"prediction-history/internal/predict"
)

const (
	affirmative = "Si"
	negative    = "No"
)

// booleanFields are the health indicators the API encodes as 1.0 / 0.0.
var booleanFields = map[string]bool{
	"Stroke":               true,
	"HighBp":               true,
	"HeartDiseaseorAttack": true,
	"PhysActivity":         true,
	"Smoker":               true,
	"HighChol":             true,
}

// genHlthLabels maps the self-reported general health ordinal, best to worst.
var genHlthLabels = [...]string{"Excelente", "Buena", "Regular", "Mala", "Muy mala"}

// FormatValue renders one health field of a record for the detail modal.
//
// GenHlth values outside 1..5 render as "".
func FormatValue(key string, value float64) string {
	if booleanFields[key] {
		if value == 1.0 {
			return affirmative
		}
		return negative
	}

	switch key {
	case "GenHlth":
		if value != math.Trunc(value) || value < 1 || value > float64(len(genHlthLabels)) {
			return ""
		}
		return genHlthLabels[int(value)-1]
	case "PhysHlth", "MentHlth":
		return formatNumber(value) + " días"
	case "Age":
		return formatNumber(value) + " años"
	case "BMI":
		return toFixed(value, 2)
	case "prediction":
		return FormatPercent(value)
	}
	return formatNumber(value)
}

// FormatPercent renders a probability as a percentage with two decimals, e.g. 0.8734 -> "87.34%".
func FormatPercent(p float64) string {
	return toFixed(p*100, 2) + "%"
}

// ProbabilityCell is the table's risk probability column: blank for the no-risk class.
func ProbabilityCell(r predict.Record) string {
	if !r.AtRisk() {
		return ""
	}
	return FormatPercent(r.Prediction)
}

// RiskCell is the table's "has risk" column.
func RiskCell(r predict.Record) string {
	if !r.AtRisk() {
		return negative
	}
	return affirmative
}

// formatNumber prints the shortest decimal that round-trips, so 30 stays "30".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// toFixed formats v with digits decimals, rounding the exact binary value to
// nearest. Exact ties round away from zero, so 0.125 gives "0.13" where
// strconv alone would give "0.12".
func toFixed(v float64, digits int) string {
	if isDecimalTie(v, digits) {
		v = math.Nextafter(v, math.Copysign(math.Inf(1), v))
	}
	return strconv.FormatFloat(v, 'f', digits, 64)
}

// isDecimalTie reports whether v*10^digits lies exactly halfway between two integers.
func isDecimalTie(v float64, digits int) bool {
	if v == 0 || math.IsInf(v, 0) || math.IsNaN(v) {
		return false
	}
	r := new(big.Rat).SetFloat64(v)
	scale := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	r.Mul(r, new(big.Rat).SetInt(scale))
	r.Mul(r, big.NewRat(2, 1))
	return r.IsInt() && r.Num().Bit(0) == 1
}
