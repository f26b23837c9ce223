package walkby

// Smooth denoises a 24-point metric series with a scalar recursive
// filter and produces a one-step-ahead forecast. Hours with value <= 0
// carry no data (not "data of zero") and are skipped entirely: the
// filter runs over the ordered subsequence of measured hours, the
// smoothed value is written back to each measured hour, and unmeasured
// hours keep their original value so gaps are never fabricated.
//
// For each measurement z:
//
//	x_pred = x ; P_pred = P + Q
//	K = P_pred / (P_pred + R)
//	x = x_pred + K*(z - x_pred) ; P = (1 - K)*P_pred
//
// The filter's final estimate is the baseline forecast. When at least 3
// measured hours exist, the forecast blends the filter estimate with a
// short-horizon trend from the last two vs the prior two measurements.
// With fewer than 2 measured hours, filtering is skipped and the last
// known value (or 0) is returned unchanged as both output and forecast.
func Smooth(series []float64, p AnalysisParams) (smoothed []float64, predicted float64) {
	smoothed = make([]float64, len(series))
	copy(smoothed, series)

	var idx []int
	var zs []float64
	for i, v := range series {
		if v > 0 {
			idx = append(idx, i)
			zs = append(zs, v)
		}
	}

	if len(zs) < 2 {
		if len(zs) == 1 {
			return smoothed, zs[0]
		}
		return smoothed, 0
	}

	st := FilterState{
		X: zs[0],
		P: p.FilterInitialCovariance,
		Q: p.FilterProcessNoise,
		R: p.FilterMeasurementNoise,
	}
	for i, z := range zs {
		xPred := st.X
		pPred := st.P + st.Q
		gain := pPred / (pPred + st.R)
		st.X = xPred + gain*(z-xPred)
		st.P = (1 - gain) * pPred
		smoothed[idx[i]] = st.X
	}

	predicted = st.X
	if len(zs) >= 3 {
		n := len(zs)
		last2 := (zs[n-1] + zs[n-2]) / 2
		prev2 := meanOr(zs[maxInt(0, n-4):n-2], 0)
		trend := last2 - prev2
		predicted = p.ForecastFilterWeight*st.X +
			(1-p.ForecastFilterWeight)*(last2+trend)
	}
	if predicted < 0 {
		predicted = 0
	}
	return smoothed, predicted
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
