package assert

// NotNil panics when a required dependency was not provided.
func NotNil(value any) {
	if value == nil {
		panic("expected value to be not nil")
	}
}

func NotEmptyStr(str string) {
	if str == "" {
		panic("expected string to be non-empty")
	}
}

// Positive panics on a zero or negative count.
func Positive(n int) {
	if n <= 0 {
		panic("expected a positive number")
	}
}
