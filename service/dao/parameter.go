package dao

// StatusParameter is the parameter name matched against record status.
const StatusParameter = "Status"

type Parameter struct {
	Name  string
	Value interface{}
}

func NewParameter(name string, values ...string) *Parameter {
	if len(values) == 1 {
		return &Parameter{Name: name, Value: values[0]}
	}
	return &Parameter{Name: name, Value: values}
}

// WithStatus returns a status filter parameter
func WithStatus(statuses ...string) *Parameter {
	return NewParameter(StatusParameter, statuses...)
}

// Statuses returns status values requested by parameters, nil means any.
func Statuses(parameters []*Parameter) []string {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != StatusParameter {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			return []string{actual}
		case []string:
			return actual
		}
	}
	return nil
}
