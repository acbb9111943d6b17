package spec

// DependencyGraph maps a model name to the set of model names it directly
// depends on. Primitives and unknown references are not nodes.
type DependencyGraph map[string]map[string]struct{}

// BuildDependencyGraph intersects each model's referenced names with the
// known model set. Dangling references are dropped with a diagnostic rather
// than failing: documents routinely point at types they never define.
func BuildDependencyGraph(models []SchemaModel) (DependencyGraph, []Diagnostic) {
	known := make(map[string]struct{}, len(models))
	for _, m := range models {
		known[m.Name] = struct{}{}
	}

	var diags []Diagnostic
	graph := make(DependencyGraph, len(models))
	for _, m := range models {
		edges := make(map[string]struct{}, len(m.Referenced))
		for _, ref := range m.Referenced {
			if _, ok := known[ref]; !ok {
				diags = append(diags, Diagnostic{
					Code:    UnresolvedReference,
					Subject: m.Name,
					Message: "dropped edge to unknown definition " + ref,
				})
				continue
			}
			edges[ref] = struct{}{}
		}
		graph[m.Name] = edges
	}
	return graph, diags
}

// OrderModels linearizes models so every model follows the models it
// depends on. Each round selects the earliest-extracted model whose
// dependencies are all emitted; when none qualifies the earliest-extracted
// remaining model is force-selected, breaking the cycle deterministically.
//
// Exactly one model leaves the remaining set per round, so the loop runs
// len(models) times and always terminates. Selection looks only at
// extraction order and the graph, so identical input yields an identical
// order.
func OrderModels(models []SchemaModel, graph DependencyGraph) ([]SchemaModel, []Diagnostic) {
	remaining := make([]bool, len(models))
	for i := range remaining {
		remaining[i] = true
	}
	unresolved := make(map[string]map[string]struct{}, len(models))
	for _, m := range models {
		deps := make(map[string]struct{}, len(graph[m.Name]))
		for d := range graph[m.Name] {
			deps[d] = struct{}{}
		}
		unresolved[m.Name] = deps
	}

	var diags []Diagnostic
	ordered := make([]SchemaModel, 0, len(models))
	for len(ordered) < len(models) {
		pick := -1
		for i, m := range models {
			if remaining[i] && len(unresolved[m.Name]) == 0 {
				pick = i
				break
			}
		}
		if pick < 0 {
			// Cycle: force the earliest-extracted remaining model.
			for i := range models {
				if remaining[i] {
					pick = i
					break
				}
			}
			diags = append(diags, Diagnostic{
				Code:    CyclicDependency,
				Subject: models[pick].Name,
				Message: "dependency cycle broken at this definition",
			})
		}
		selected := models[pick]
		remaining[pick] = false
		ordered = append(ordered, selected)
		for _, deps := range unresolved {
			delete(deps, selected.Name)
		}
	}
	return ordered, diags
}
