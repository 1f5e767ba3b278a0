package log

import "fmt"

// LazySprintf is a struct that, when its String method is called, formats
// the arguments with fmt.Sprintf. Use it to avoid formatting log lines that
// are filtered out.
type LazySprintf struct {
	format string
	args   []interface{}
}

// NewLazySprintf defers fmt.Sprintf until the Stringer interface is invoked.
func NewLazySprintf(format string, args ...interface{}) *LazySprintf {
	return &LazySprintf{format, args}
}

func (l *LazySprintf) String() string {
	return fmt.Sprintf(l.format, l.args...)
}
