package marketdata

// instrumentToken maps NSE trading symbols to Kite instrument tokens.
// Static map covering the default universe; unknown symbols fall back to
// zero and are rejected by the callers.
var instrumentTokens = map[string]uint32{
	"RELIANCE":   738561,
	"TCS":        2953217,
	"HDFCBANK":   341249,
	"INFY":       408065,
	"HCLTECH":    1850625,
	"LT":         2939649,
	"SBIN":       779521,
	"ICICIBANK":  1270529,
	"AXISBANK":   1510401,
	"KOTAKBANK":  492033,
	"ITC":        424961,
	"TATAMOTORS": 884737,
	"TITAN":      897537,
	"JSWSTEEL":   3001089,
	"ULTRACEMCO": 2952193,
	"BAJFINANCE": 81153,
	"HDFCLIFE":   119553,
	"BHARTIARTL": 2714625,
	"ASIANPAINT": 60417,
	"MARUTI":     2815745,
}

func instrumentToken(symbol string) (uint32, bool) {
	token, ok := instrumentTokens[symbol]
	return token, ok
}
