package ml

// SparseVector 定长特征行的非零项，Indices严格递增
type SparseVector struct {
	Dim     int
	Indices []int
	Values  []float64
}

// NNZ 非零项个数
func (v SparseVector) NNZ() int {
	return len(v.Indices)
}

// Dense 展开为稠密向量，供工具和测试使用
func (v SparseVector) Dense() []float64 {
	out := make([]float64, v.Dim)
	for i, idx := range v.Indices {
		if idx >= 0 && idx < v.Dim {
			out[idx] = v.Values[i]
		}
	}
	return out
}
