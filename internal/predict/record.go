package predict

// Record is one historical prediction as returned by GET /predict/.
//
// Field names mirror the API's JSON keys. Health indicators come back as
// numbers (1.0 = yes), so they are decoded as float64 and interpreted at
// display time. Class is a float64 too; the API may send 1.0 for 1.
type Record struct {
	Date       string  `json:"date"`
	Class      float64 `json:"class"`
	Prediction float64 `json:"prediction"`

	Stroke               float64 `json:"Stroke"`
	HighBp               float64 `json:"HighBp"`
	HeartDiseaseorAttack float64 `json:"HeartDiseaseorAttack"`
	PhysActivity         float64 `json:"PhysActivity"`
	Smoker               float64 `json:"Smoker"`
	HighChol             float64 `json:"HighChol"`
	GenHlth              float64 `json:"GenHlth"`
	PhysHlth             float64 `json:"PhysHlth"`
	MentHlth             float64 `json:"MentHlth"`
	Age                  float64 `json:"Age"`
	BMI                  float64 `json:"BMI"`
}

// AtRisk reports whether the record carries the risk class.
func (r Record) AtRisk() bool {
	return r.Class != 0
}
