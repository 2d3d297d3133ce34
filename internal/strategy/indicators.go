package strategy

import "math"

// Indicator helpers return slices aligned to the input length, with NaN for
// positions the window cannot fill yet. Callers treat NaN as "undefined" and
// emit no signal there.

func sma(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	var sum float64
	for i := range x {
		sum += x[i]
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		if i >= p {
			sum -= x[i-p]
		}
		out[i] = sum / float64(p)
	}
	return out
}

// ema matches the recursive form seeded with the first value: alpha=2/(p+1),
// defined from index 0.
func ema(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	if len(x) == 0 {
		return out
	}
	alpha := 2.0 / float64(p+1)
	out[0] = x[0]
	for i := 1; i < len(x); i++ {
		out[i] = alpha*x[i] + (1-alpha)*out[i-1]
	}
	return out
}

// emaAlpha smooths with a fixed alpha, carrying the last value across NaN
// inputs. Used for the KDJ K and D lines (alpha = 1/m).
func emaAlpha(x []float64, alpha float64) []float64 {
	out := make([]float64, len(x))
	prev := math.NaN()
	for i, v := range x {
		if math.IsNaN(v) {
			out[i] = prev
			continue
		}
		if math.IsNaN(prev) {
			out[i] = v
		} else {
			out[i] = alpha*v + (1-alpha)*prev
		}
		prev = out[i]
	}
	return out
}

// meanStd computes the rolling mean and sample standard deviation (n-1
// denominator) over window p.
func meanStd(x []float64, p int) (mean, std []float64) {
	n := len(x)
	mean = make([]float64, n)
	std = make([]float64, n)
	var sum, sum2 float64
	for i := 0; i < n; i++ {
		sum += x[i]
		sum2 += x[i] * x[i]
		if i < p-1 {
			mean[i] = math.NaN()
			std[i] = math.NaN()
			continue
		}
		if i >= p {
			sum -= x[i-p]
			sum2 -= x[i-p] * x[i-p]
		}
		m := sum / float64(p)
		v := (sum2 - float64(p)*m*m) / float64(p-1)
		if v < 0 {
			v = 0
		}
		mean[i] = m
		std[i] = math.Sqrt(v)
	}
	return mean, std
}

func rollingMax(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		max := x[i]
		for j := i - p + 1; j < i; j++ {
			if x[j] > max {
				max = x[j]
			}
		}
		out[i] = max
	}
	return out
}

func rollingMin(x []float64, p int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < p-1 {
			out[i] = math.NaN()
			continue
		}
		min := x[i]
		for j := i - p + 1; j < i; j++ {
			if x[j] < min {
				min = x[j]
			}
		}
		out[i] = min
	}
	return out
}

// rsi uses simple rolling means of gains and losses, defined from index p.
// A window with zero losses yields 100 through the +Inf ratio; an all-flat
// window yields NaN. Both fall out of the IEEE arithmetic.
func rsi(close []float64, p int) []float64 {
	out := make([]float64, len(close))
	var gainSum, lossSum float64
	for i := range close {
		if i == 0 {
			out[0] = math.NaN()
			continue
		}
		delta := close[i] - close[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
		if i > p {
			old := close[i-p] - close[i-p-1]
			if old > 0 {
				gainSum -= old
			} else {
				lossSum += old
			}
		}
		if i < p {
			out[i] = math.NaN()
			continue
		}
		rs := (gainSum / float64(p)) / (lossSum / float64(p))
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// pctChange is the relative change against the value n bars back, defined
// from index n.
func pctChange(x []float64, n int) []float64 {
	out := make([]float64, len(x))
	for i := range x {
		if i < n {
			out[i] = math.NaN()
			continue
		}
		out[i] = x[i]/x[i-n] - 1
	}
	return out
}

// kdj computes the stochastic K, D and J lines. The raw stochastic uses
// partial windows at the start, and a zero-range window keeps the previous
// smoothed values.
func kdj(high, low, close []float64, n, m1, m2 int) (k, d, j []float64) {
	rsv := make([]float64, len(close))
	for i := range close {
		lo, hi := low[i], high[i]
		from := i - n + 1
		if from < 0 {
			from = 0
		}
		for idx := from; idx < i; idx++ {
			if low[idx] < lo {
				lo = low[idx]
			}
			if high[idx] > hi {
				hi = high[idx]
			}
		}
		if hi == lo {
			rsv[i] = math.NaN()
			continue
		}
		rsv[i] = (close[i] - lo) / (hi - lo) * 100
	}

	k = emaAlpha(rsv, 1/float64(m1))
	d = emaAlpha(k, 1/float64(m2))
	j = make([]float64, len(k))
	for i := range k {
		j[i] = 3*k[i] - 2*d[i]
	}
	return k, d, j
}
