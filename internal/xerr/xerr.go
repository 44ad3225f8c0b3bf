// Package xerr provides the data-carrying error style used throughout
// edgebridge: an error that wraps another error and an arbitrary piece
// of associated data, so log lines can print structured context
// without building ad-hoc fmt.Errorf chains.
package xerr

import "fmt"

// DataErr pairs a description with an optional wrapped error and an
// optional data value (the request path, the offending header, the
// backend URL, ...).
type DataErr struct {
	Desc   string
	Detail error
	Data   any
}

func New(desc string, detail error, data any) DataErr {
	return DataErr{Desc: desc, Detail: detail, Data: data}
}

func (e DataErr) Error() string {
	switch {
	case e.Data != nil && e.Detail != nil:
		return fmt.Sprintf("%s: %s, data: %v", e.Desc, e.Detail.Error(), e.Data)
	case e.Data != nil:
		return fmt.Sprintf("%s, data: %v", e.Desc, e.Data)
	case e.Detail != nil:
		return fmt.Sprintf("%s: %s", e.Desc, e.Detail.Error())
	default:
		return e.Desc
	}
}

func (e DataErr) Unwrap() error {
	return e.Detail
}
