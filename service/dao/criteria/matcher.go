package criteria

import (
	"github.com/viant/steer/service/dao"
)

// FilterByStatus evaluates the optional "Status" list parameter against the
// supplied value.  An empty parameter set matches everything.
func FilterByStatus(status string, parameters []*dao.Parameter) bool {
	for _, parameter := range parameters {
		if parameter == nil || parameter.Name != "Status" {
			continue
		}
		switch actual := parameter.Value.(type) {
		case string:
			return status == actual
		case []string:
			for _, candidate := range actual {
				if status == candidate {
					return true
				}
			}
			return false
		}
	}
	return true
}
