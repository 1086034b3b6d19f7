package entities

// Attribute is one descriptive column of an item, e.g. ethnicity or age group.
type Attribute struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Item is a unit being rated. Items come from the catalog and are never
// modified by the rating flow.
type Item struct {
	ID         string      `json:"id"`
	Attributes []Attribute `json:"attributes"`
}

// Attribute returns the value of the named attribute
func (i Item) Attribute(name string) (string, bool) {
	for _, a := range i.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttributeMap returns the attributes keyed by name
func (i Item) AttributeMap() map[string]string {
	m := make(map[string]string, len(i.Attributes))
	for _, a := range i.Attributes {
		m[a.Name] = a.Value
	}
	return m
}
