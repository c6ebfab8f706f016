//go:build !cgo

package transform

import "errors"

func newDuckDB(Options) (Engine, error) {
	return nil, errors.New("transform engine duckdb requires a cgo build")
}
