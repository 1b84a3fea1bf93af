package utils

// F64Ptr returns a pointer to the given float64 value.
func F64Ptr(v float64) *float64 { return &v }

// StrPtr returns a pointer to the given string, or nil for an empty string.
func StrPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
