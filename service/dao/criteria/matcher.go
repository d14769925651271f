package criteria

import (
	"github.com/viant/carealloc/service/dao"
)

// FilterByStatus returns true when status satisfies status parameters, no
// status parameter matches everything.
func FilterByStatus(status string, parameters []*dao.Parameter) bool {
	statuses := dao.Statuses(parameters)
	if statuses == nil {
		return true
	}
	for _, candidate := range statuses {
		if status == candidate {
			return true
		}
	}
	return false
}
