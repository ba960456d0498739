package marketdata

import "errors"

// ErrUpstreamUnavailable marks a retryable vendor failure. The decision
// core never absorbs it; retry policy belongs to the caller.
var ErrUpstreamUnavailable = errors.New("market data upstream unavailable")

// ErrNoData means the source is reachable but has nothing for the symbol
// yet; callers treat it as insufficient data.
var ErrNoData = errors.New("no candle data")
