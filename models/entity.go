package models

type EntityLabel string

const (
	LabelPerson       EntityLabel = "PERSON"
	LabelOrganization EntityLabel = "ORGANIZATION"
	LabelLocation     EntityLabel = "LOCATION"
	LabelDate         EntityLabel = "DATE"
	LabelOther        EntityLabel = "OTHER"
)

// EntityLabels is the closed label set requested from the model.
func EntityLabels() []EntityLabel {
	return []EntityLabel{LabelPerson, LabelOrganization, LabelLocation, LabelDate, LabelOther}
}

// Entity is a named span found in the document.
type Entity struct {
	Text  string      `json:"text"`
	Label EntityLabel `json:"label"`
}

// Known reports whether the label is one of EntityLabels.
func (e Entity) Known() bool {
	for _, l := range EntityLabels() {
		if e.Label == l {
			return true
		}
	}
	return false
}
