package models

// Setting is a keyed application setting. Value is the legacy scalar field
// kept for backward compatibility; Values is the current extensible form and
// always exists once a document has been migrated to the current schema.
type Setting struct {
	ID        string         `json:"id"`
	Value     string         `json:"value"`
	Values    map[string]any `json:"values"`
	ModelType string         `json:"modelType"`
}

// Normalize pins the discriminator and guarantees Values is non-nil.
func (s *Setting) Normalize() {
	if s.Values == nil {
		s.Values = map[string]any{}
	}
	s.ModelType = ModelTypeSetting
}
