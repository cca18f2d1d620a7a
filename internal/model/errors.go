package model

import "errors"

var (
	ErrFetchFailed = errors.New("fetch failed")
	ErrNoData      = errors.New("no data found")
	ErrEmptyQuery  = errors.New("empty query")
)
