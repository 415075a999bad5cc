package schemas

// QueryResult is the JSON document printed by each CLI query command.
type QueryResult struct {
	Command  string `json:"command"`
	URL      string `json:"url"`
	Selector string `json:"selector"`
	// Found is false when the selector matched nothing. Value is omitted then.
	Found  bool           `json:"found"`
	Value  interface{}    `json:"value,omitempty"`
	Values []interface{}  `json:"values,omitempty"`
	Fields []FieldOutcome `json:"fields,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// FieldOutcome reports one field of a form fill.
type FieldOutcome struct {
	Name     string `json:"name"`
	Selector string `json:"selector"`
	Filled   bool   `json:"filled"`
	Error    string `json:"error,omitempty"`
}
