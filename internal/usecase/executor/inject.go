package executor

import "browser-replay/internal/domain/entity"

// inject substitutes supplied values into every placeholder of params.
// Unknown names are left as literal placeholder text.
func inject(params entity.StepParams, values map[string]string) entity.StepParams {
	return params.MapText(func(s string) string {
		return entity.ReplacePlaceholders(s, func(name string) (string, bool) {
			v, ok := values[name]
			return v, ok
		})
	})
}
