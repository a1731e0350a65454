package pricing

import "math"

// normCDF is the standard normal cumulative distribution.
func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func d1d2(s, k, t, r, sigma float64) (float64, float64) {
	d1 := (math.Log(s/k) + (r+sigma*sigma/2)*t) / (sigma * math.Sqrt(t))
	d2 := d1 - sigma*math.Sqrt(t)
	return d1, d2
}

// CallValue is the Black-Scholes value of a European call.
// s spot, k strike, t time to expiry in years, r rate, sigma volatility.
func CallValue(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return math.Max(s-k, 0)
	}
	d1, d2 := d1d2(s, k, t, r, sigma)
	return s*normCDF(d1) - k*math.Exp(-r*t)*normCDF(d2)
}

// PutValue is the Black-Scholes value of a European put.
func PutValue(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		return math.Max(k-s, 0)
	}
	d1, d2 := d1d2(s, k, t, r, sigma)
	return k*math.Exp(-r*t)*normCDF(-d2) - s*normCDF(-d1)
}

// CallDelta is in [0, 1].
func CallDelta(s, k, t, r, sigma float64) float64 {
	if t <= 0 {
		if s > k {
			return 1
		}
		return 0
	}
	d1, _ := d1d2(s, k, t, r, sigma)
	return normCDF(d1)
}

// PutDelta is in [-1, 0].
func PutDelta(s, k, t, r, sigma float64) float64 {
	return CallDelta(s, k, t, r, sigma) - 1
}

// Forward compounds spot continuously at r for t years.
func Forward(s, r, t float64) float64 {
	return s * math.Exp(r*t)
}
