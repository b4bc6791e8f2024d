package chain

import (
	"math"
	"math/big"
)

// WeiToBNB wei转BNB浮点数，仅用于展示与额度判断
func WeiToBNB(wei *big.Int) float64 {
	if wei == nil {
		return 0
	}
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18)).Float64()
	return f
}

// BNBToWei BNB浮点数转wei
func BNBToWei(bnb float64) *big.Int {
	if bnb <= 0 {
		return big.NewInt(0)
	}
	f := new(big.Float).Mul(big.NewFloat(bnb), big.NewFloat(1e18))
	wei, _ := f.Int(nil)
	return wei
}

// FromTokenUnits 按代币精度把最小单位转为可读数量
func FromTokenUnits(amount *big.Int, decimals int) float64 {
	if amount == nil {
		return 0
	}
	scale := new(big.Float).SetFloat64(math.Pow10(decimals))
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(amount), scale).Float64()
	return f
}

// ToTokenUnits 可读数量转最小单位
func ToTokenUnits(amount float64, decimals int) *big.Int {
	if amount <= 0 {
		return big.NewInt(0)
	}
	scale := new(big.Float).SetFloat64(math.Pow10(decimals))
	f := new(big.Float).Mul(new(big.Float).SetFloat64(amount), scale)
	units, _ := f.Int(nil)
	return units
}
