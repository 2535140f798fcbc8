package domain

import "errors"

var (
	// ErrInvalidQuery is returned when the search query is empty after trimming
	ErrInvalidQuery = errors.New("invalid search query")

	// ErrNoLiveData is returned when every configured retailer failed to
	// return data. Distinct from an empty result set: the caller should
	// render "try again later" rather than "nothing found".
	ErrNoLiveData = errors.New("no live data available from any retailer")

	// ErrBlocked is returned when a retailer served a bot challenge and the
	// identity-rotation retry was also blocked
	ErrBlocked = errors.New("blocked by retailer anti-bot protection")

	// ErrRetailerUnavailable is returned when a retailer request failed after retry
	ErrRetailerUnavailable = errors.New("retailer unavailable")

	// ErrNoPrice is returned when a listing has no parseable price
	ErrNoPrice = errors.New("no parseable price")

	// ErrCacheMiss is returned when a result is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrUnknownRetailer is returned for detail lookups against a retailer
	// with no configured adapter
	ErrUnknownRetailer = errors.New("unknown retailer")
)
