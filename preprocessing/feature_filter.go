// Package preprocessing は学習前のデータセット変換を提供する
package preprocessing

import (
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
	"github.com/YuminosukeSato/treetrim/pkg/log"
)

// FeatureFilter は名前で指定した特徴量列をデータセットから取り除く
// 入力の行列と名前列は変更せず、常に新しい値を返す。
type FeatureFilter struct {
	// Drop は取り除く特徴量名
	Drop []string
}

// NewFeatureFilter は新しいFeatureFilterを作成する
//
// 使用例:
//
//	filter := preprocessing.NewFeatureFilter("age", "zip")
//	XFiltered, names, err := filter.Transform(X, featureNames)
func NewFeatureFilter(names ...string) *FeatureFilter {
	return &FeatureFilter{Drop: names}
}

// Transform は Drop に含まれる列を削除した行列と名前列を返す
// 残る列の相対順序は保たれる。
//
// パラメータ:
//   - X: 特徴量行列 (n_samples × n_features)
//   - names: 列に対応する特徴量名 (長さ n_features)
//
// 戻り値:
//   - *mat.Dense: 列を削除した新しい行列
//   - []string: 削除後の特徴量名
//   - error: 名前が見つからない場合は FeatureNotFoundError。この場合は何も削除しない
func (f *FeatureFilter) Transform(X mat.Matrix, names []string) (*mat.Dense, []string, error) {
	rows, cols := X.Dims()
	if len(names) != cols {
		return nil, nil, errors.NewDimensionError("FeatureFilter.Transform", cols, len(names), 1)
	}

	// すべての名前を先に解決してから削除する（all-or-nothing）
	drop := make(map[int]bool, len(f.Drop))
	var missing []string
	for _, name := range f.Drop {
		idx := indexOf(names, name)
		if idx < 0 {
			missing = append(missing, name)
			continue
		}
		drop[idx] = true
	}
	if len(missing) > 0 {
		return nil, nil, errors.NewFeatureNotFoundError("FeatureFilter.Transform", missing)
	}

	kept := make([]int, 0, cols-len(drop))
	keptNames := make([]string, 0, cols-len(drop))
	for j := 0; j < cols; j++ {
		if !drop[j] {
			kept = append(kept, j)
			keptNames = append(keptNames, names[j])
		}
	}
	if len(kept) == 0 {
		return nil, nil, errors.NewValueError("FeatureFilter.Transform", "cannot remove every feature")
	}

	out := mat.NewDense(rows, len(kept), nil)
	for i := 0; i < rows; i++ {
		for k, j := range kept {
			out.Set(i, k, X.At(i, j))
		}
	}

	if len(drop) > 0 {
		log.GetLoggerWithName("preprocessing").Debug("Features filtered",
			log.OperationKey, log.OperationFilter,
			log.FeaturesKey, len(keptNames),
			log.FilteredKey, f.Drop)
	}
	return out, keptNames, nil
}

// indexOf は最初に一致した位置を返す。見つからなければ -1
func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
