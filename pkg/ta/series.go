package ta

// Last 取序列倒数第position+1个值，position为0时即最新值
func Last(s []float64, position int) float64 {
	return s[len(s)-1-position]
}

// LastValues 取序列末尾最多size个值
func LastValues(s []float64, size int) []float64 {
	if l := len(s); l > size {
		return s[l-size:]
	}
	return s
}

// Lowest 最近period根K线中的最低价
func Lowest(low []float64, period int) float64 {
	minVal := low[len(low)-1]
	for _, value := range LastValues(low, period) {
		if value < minVal {
			minVal = value
		}
	}
	return minVal
}

// Highest 最近period根K线中的最高价
func Highest(high []float64, period int) float64 {
	maxVal := high[len(high)-1]
	for _, value := range LastValues(high, period) {
		if value > maxVal {
			maxVal = value
		}
	}
	return maxVal
}
