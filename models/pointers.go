package models

// Helper functions for creating pointers (exported for use by other packages)
func StringPtr(v string) *string { return &v }
func IntPtr(v int) *int          { return &v }
func Int64Ptr(v int64) *int64    { return &v }
func BoolPtr(v bool) *bool       { return &v }

// Helper functions for safely dereferencing pointers with defaults
func IntVal(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

func BoolVal(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func StringVal(p *string, def string) string {
	if p == nil {
		return def
	}
	return *p
}
