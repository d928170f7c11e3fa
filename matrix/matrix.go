package matrix

import (
	"gonum.org/v1/gonum/mat"
)

// Sparse 是行主序的稀疏用户×物品交互矩阵。
// 只在训练管线内部存活：构建 → 因子分解 → 丢弃。
type Sparse struct {
	rows  []map[int]float64
	nCols int
}

// NewSparse 创建 nRows × nCols 的空稀疏矩阵。
func NewSparse(nRows, nCols int) *Sparse {
	return &Sparse{
		rows:  make([]map[int]float64, nRows),
		nCols: nCols,
	}
}

// Dims 返回矩阵维度。
func (s *Sparse) Dims() (rows, cols int) {
	return len(s.rows), s.nCols
}

// Set 写入一个单元格。同一 (i,j) 重复写入时后写覆盖先写——
// 语义是“当前关系强度”，不是频次累加。
func (s *Sparse) Set(i, j int, v float64) {
	if s.rows[i] == nil {
		s.rows[i] = make(map[int]float64)
	}
	s.rows[i][j] = v
}

// Get 读取一个单元格；未观测到的 pair 为 0。
func (s *Sparse) Get(i, j int) float64 {
	if s.rows[i] == nil {
		return 0
	}
	return s.rows[i][j]
}

// Row 返回第 i 行的非零单元（只读视图）。
func (s *Sparse) Row(i int) map[int]float64 {
	return s.rows[i]
}

// NNZ 返回非零单元数。
func (s *Sparse) NNZ() int {
	n := 0
	for _, r := range s.rows {
		n += len(r)
	}
	return n
}

// ToDense 转为 gonum 稠密矩阵，供因子分解使用。
// 训练是全量批处理，矩阵规模受训练批次约束，稠密化在此处是可接受的。
func (s *Sparse) ToDense() *mat.Dense {
	d := mat.NewDense(len(s.rows), s.nCols, nil)
	for i, row := range s.rows {
		for j, v := range row {
			d.Set(i, j, v)
		}
	}
	return d
}
