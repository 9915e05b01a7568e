/*
Package trimmer turns a fitted classification tree into a self-describing
nested report and proposes hyperparameter changes that prune selected nodes.

A TreeModel binds a Dataset and Hyperparameters to an induction capability
(CART from sklearn/tree by default). BuildReport then walks the fitted node
arrays with TreeSerializer and merges the result with a QualitySummary:

	m, err := trimmer.NewTreeModel(ds, trimmer.DefaultHyperparameters())
	if err != nil {
		return err
	}
	if err := m.Fit(); err != nil {
		return err
	}
	report, err := trimmer.BuildReport(m)

Every internal node of the report lists its children RIGHT first, then LEFT.
Consumers index children by position; do not reorder them.

When the root impurity is zero the percentage impurity decrease of every node
is nil (JSON null) and an UndefinedMetricWarning is emitted once per
serialization.

A non-zero min_impurity_decrease is raised by 1e-4 before induction, so a
split whose weighted decrease equals the configured value is pruned.
*/
package trimmer
