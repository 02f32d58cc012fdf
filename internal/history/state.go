package history

import "prediction-history/internal/predict"

// State is the view state of one mounted history view.
//
// Records == nil means the history has not arrived (loading); an empty,
// non-nil slice means the API returned no predictions.
type State struct {
	Records       []predict.Record
	Selected      *predict.Record
	DetailVisible bool
}

// Loaded reports whether records are present.
func (s State) Loaded() bool {
	return s.Records != nil
}

// DetailOpen reports whether the detail modal should be shown.
func (s State) DetailOpen() bool {
	return s.DetailVisible && s.Selected != nil
}

// WithRecords stores the fetched history.
func (s State) WithRecords(recs []predict.Record) State {
	s.Records = recs
	return s
}

// Select marks item as selected and opens the detail modal.
func (s State) Select(item predict.Record) State {
	s.Selected = &item
	s.DetailVisible = true
	return s
}

// CloseDetail hides the modal and clears the selection.
func (s State) CloseDetail() State {
	s.DetailVisible = false
	s.Selected = nil
	return s
}

// Record returns the loaded record at index.
func (s State) Record(index int) (predict.Record, bool) {
	if index < 0 || index >= len(s.Records) {
		return predict.Record{}, false
	}
	return s.Records[index], true
}
