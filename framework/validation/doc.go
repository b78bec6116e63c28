// Package validation checks flat string maps, such as environment settings,
// against pipe-separated rule strings.
//
// # Basic Usage
//
//	v := validation.Make(map[string]string{
//	    "APP_ENV":  "staging",
//	    "APP_PORT": "8000",
//	}, validation.Rules{
//	    "APP_ENV":  "required|in:local,production,testing",
//	    "APP_PORT": "required|integer|gte:1|lte:65535",
//	})
//
//	if err := v.Err(); err != nil {
//	    // err is *validation.Errors; Bag maps field → messages
//	}
//
// # Available Rules
//
//   - required       field must be present and non-empty
//   - sometimes      skip the remaining rules when the field is empty
//   - integer        parses as a base-10 int
//   - boolean        accepted by strconv.ParseBool
//   - min:n / max:n  length bounds in UTF-8 characters
//   - in:a,b,c       one of the listed values
//   - each_in:a,b,c  comma-separated list whose items are all listed
//   - alpha_dash     letters, numbers, dashes, underscores
//   - regex:pattern  must match the pattern (the pattern may not contain "|")
//   - gte:n / lte:n  numeric bounds
//
// Rules for a field stop at the first failure.
package validation
