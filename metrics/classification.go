// Package metrics は分類モデルの評価指標を提供する
package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/treetrim/pkg/errors"
)

// ConfusionMatrix は混同行列を計算する
// 行が真のラベル、列が予測ラベルで、どちらも labels の順に並ぶ。
// labels が nil の場合は yTrue と yPred に現れるラベルの昇順を用いる。
// labels に含まれないラベルを持つサンプルは数えない。
func ConfusionMatrix(yTrue, yPred *mat.VecDense, labels []float64) (*mat.Dense, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "empty vector")
	}
	if yPred.Len() != n {
		return nil, errors.NewDimensionError("ConfusionMatrix", n, yPred.Len(), 0)
	}

	if labels == nil {
		labels = uniqueLabels(yTrue, yPred)
	}
	if len(labels) == 0 {
		return nil, errors.NewValueError("ConfusionMatrix", "labels must not be empty")
	}

	index := make(map[float64]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return nil, errors.NewValueError("ConfusionMatrix", "labels must be unique")
		}
		index[l] = i
	}

	cm := mat.NewDense(len(labels), len(labels), nil)
	for i := 0; i < n; i++ {
		r, okTrue := index[yTrue.AtVec(i)]
		c, okPred := index[yPred.AtVec(i)]
		if !okTrue || !okPred {
			continue
		}
		cm.Set(r, c, cm.At(r, c)+1)
	}
	return cm, nil
}

// Accuracy は正解率を計算する
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	// 入力検証
	n := yTrue.Len()
	if n == 0 {
		return 0, errors.NewValueError("Accuracy", "empty vector")
	}
	if yPred.Len() != n {
		return 0, errors.NewDimensionError("Accuracy", n, yPred.Len(), 0)
	}

	correct := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) == yPred.AtVec(i) {
			correct++
		}
	}
	return float64(correct) / float64(n), nil
}

func uniqueLabels(vecs ...*mat.VecDense) []float64 {
	seen := make(map[float64]bool)
	var labels []float64
	for _, v := range vecs {
		for i := 0; i < v.Len(); i++ {
			l := v.AtVec(i)
			if !seen[l] {
				seen[l] = true
				labels = append(labels, l)
			}
		}
	}
	sort.Float64s(labels)
	return labels
}
