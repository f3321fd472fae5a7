package ptr

func String(s string) *string {
	return &s
}

func Int64(i int64) *int64 {
	return &i
}

// NonEmptyString returns nil for "", so optional params stay unset.
func NonEmptyString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
