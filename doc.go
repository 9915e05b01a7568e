// Package treetrim trains classification decision trees and turns them into
// self-describing nested reports that a visualization or API layer can render
// without touching the model.
//
// A report lists every node with its split condition, impurity, sample and
// class counts, and the weighted and percentage impurity decrease of each
// split. It is merged with model-quality figures: ranked feature importances,
// a cross-validated confusion matrix and accuracy, and the tree's total depth
// and node count.
//
// # Quick Start
//
//	package main
//
//	import (
//	    "encoding/json"
//	    "fmt"
//	    "log"
//
//	    "github.com/YuminosukeSato/treetrim/trimmer"
//	)
//
//	func main() {
//	    ds, err := trimmer.NewDataset(
//	        [][]float64{{0, 0}, {1, 1}, {2, 2}, {3, 3}},
//	        []string{"A", "B"},
//	        []trimmer.Label{"0", "0", "1", "1"},
//	    )
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//
//	    m, err := trimmer.NewTreeModel(ds, trimmer.DefaultHyperparameters())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    if err := m.Fit(); err != nil {
//	        log.Fatal(err)
//	    }
//
//	    report, err := trimmer.BuildReport(m)
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    out, _ := json.Marshal(report)
//	    fmt.Println(string(out))
//	}
//
// # Trimming
//
// A user who wants a node gone picks a reason and SuggestTrim returns the
// hyperparameter change that removes it on retraining:
//
//	node, _ := report.Find("RL")
//	update, err := trimmer.SuggestTrim(node, trimmer.ReasonLimitDepth)
//	params, err := params.Apply(update)
//
// # Packages
//
//   - trimmer: datasets, hyperparameters, the tree model wrapper, the report
//     serializer and quality summary, and trim suggestions
//   - session: per-user training sessions behind opaque handles
//   - render: tree graphs (graphviz) and importance charts (gonum/plot)
//   - sklearn/tree: CART decision tree induction
//   - sklearn/model_selection: KFold, StratifiedKFold and CrossValPredict
//   - metrics: confusion matrix and accuracy
//   - preprocessing: feature filtering by name
//   - core/model, core/parallel: estimator interfaces and parallel helpers
//   - pkg/errors, pkg/log: structured errors and logging
//
// The treetrim command in cmd/treetrim runs the whole pipeline from a YAML
// job file.
package treetrim
