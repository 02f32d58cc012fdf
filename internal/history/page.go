package history

import "prediction-history/internal/predict"

// Page is the render model of a history view.
type Page struct {
	ViewID  string
	Loading bool
	Rows    []Row
	Detail  *Detail
}

// Row is one table row.
type Row struct {
	Index       int
	Date        string
	Risk        string
	Probability string
	Style       string
}

// Detail is the content of the detail modal.
type Detail struct {
	Fields []DetailField
}

// DetailField is one labelled, formatted value in the modal.
type DetailField struct {
	Key   string
	Label string
	Value string
}

// detailFields lists the modal entries in display order.
var detailFields = []struct {
	key   string
	label string
	value func(predict.Record) float64
}{
	{"Stroke", "Historial de derrame cerebral", func(r predict.Record) float64 { return r.Stroke }},
	{"HighBp", "Presion Arterial Alta", func(r predict.Record) float64 { return r.HighBp }},
	{"HeartDiseaseorAttack", "Enfermedad Cardiovascular", func(r predict.Record) float64 { return r.HeartDiseaseorAttack }},
	{"PhysActivity", "Actividad Física en el último mes", func(r predict.Record) float64 { return r.PhysActivity }},
	{"Smoker", "Fumador Habitual", func(r predict.Record) float64 { return r.Smoker }},
	{"HighChol", "Colesterol Alto", func(r predict.Record) float64 { return r.HighChol }},
	{"GenHlth", "Salud General", func(r predict.Record) float64 { return r.GenHlth }},
	{"PhysHlth", "Problemas con su Salud Física", func(r predict.Record) float64 { return r.PhysHlth }},
	{"MentHlth", "Problemas con su Salud Mental", func(r predict.Record) float64 { return r.MentHlth }},
	{"Age", "Edad", func(r predict.Record) float64 { return r.Age }},
	{"BMI", "Índice de Masa Corporal (BMI)", func(r predict.Record) float64 { return r.BMI }},
	{"prediction", "Predicción de riesgo", func(r predict.Record) float64 { return r.Prediction }},
}

// BuildPage maps view state to what the template renders.
func BuildPage(viewID string, s State) Page {
	p := Page{
		ViewID:  viewID,
		Loading: !s.Loaded(),
	}

	if s.Loaded() {
		p.Rows = make([]Row, len(s.Records))
		for i, r := range s.Records {
			p.Rows[i] = Row{
				Index:       i,
				Date:        r.Date,
				Risk:        RiskCell(r),
				Probability: ProbabilityCell(r),
				Style:       RowStyle(r.Class),
			}
		}
	}

	if s.DetailOpen() {
		p.Detail = BuildDetail(*s.Selected)
	}
	return p
}

// BuildDetail formats every health field of r.
func BuildDetail(r predict.Record) *Detail {
	d := &Detail{Fields: make([]DetailField, len(detailFields))}
	for i, f := range detailFields {
		d.Fields[i] = DetailField{
			Key:   f.key,
			Label: f.label,
			Value: FormatValue(f.key, f.value(r)),
		}
	}
	return d
}
