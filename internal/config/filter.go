package config

// FilterOnly retains the transitive closure of dependsOn starting from names,
// per spec.md §4.4. An empty names leaves cfg unchanged. Unknown names are
// rejected. Retained processes' DependsOn lists are pruned to the retained
// set.
func FilterOnly(cfg *ResolvedConfig, names []string) (*ResolvedConfig, error) {
	if len(names) == 0 {
		return cfg, nil
	}
	for _, n := range names {
		if _, ok := cfg.Processes[n]; !ok {
			return nil, fail("unknown process %q in --only", n)
		}
	}

	keep := make(map[string]bool, len(cfg.Processes))
	var visit func(name string)
	visit = func(name string) {
		if keep[name] {
			return
		}
		keep[name] = true
		for _, dep := range cfg.Processes[name].DependsOn {
			visit(dep)
		}
	}
	for _, n := range names {
		visit(n)
	}

	return pruneTo(cfg, keep)
}

// FilterExclude removes the named processes, per spec.md §4.4. Unknown names
// are rejected. Dependents' DependsOn lists are pruned; a list emptied by
// pruning becomes nil.
func FilterExclude(cfg *ResolvedConfig, names []string) (*ResolvedConfig, error) {
	if len(names) == 0 {
		return cfg, nil
	}
	excluded := make(map[string]bool, len(names))
	for _, n := range names {
		if _, ok := cfg.Processes[n]; !ok {
			return nil, fail("unknown process %q in --exclude", n)
		}
		excluded[n] = true
	}

	keep := make(map[string]bool, len(cfg.Processes))
	for name := range cfg.Processes {
		if !excluded[name] {
			keep[name] = true
		}
	}

	return pruneTo(cfg, keep)
}

// FilterByPlatform removes processes whose Platform list excludes
// currentOS, per spec.md §4.4. A platform-unavailable prerequisite simply
// disappears; its dependents survive with it pruned from their DependsOn.
func FilterByPlatform(cfg *ResolvedConfig, currentOS string) (*ResolvedConfig, error) {
	keep := make(map[string]bool, len(cfg.Processes))
	for name, rec := range cfg.Processes {
		if len(rec.Platform) == 0 {
			keep[name] = true
			continue
		}
		for _, p := range rec.Platform {
			if p == currentOS {
				keep[name] = true
				break
			}
		}
	}
	return pruneTo(cfg, keep)
}

// pruneTo returns a copy of cfg retaining only the processes in keep, with
// every retained process's DependsOn pruned to names also in keep. An error
// is raised if this leaves no processes, per spec.md §4.4's final rule.
func pruneTo(cfg *ResolvedConfig, keep map[string]bool) (*ResolvedConfig, error) {
	if len(keep) == 0 {
		return nil, fail("filtering leaves no processes")
	}

	out := cfg.Clone()
	out.Processes = make(map[string]*ProcessRecord, len(keep))
	out.Order = nil

	for _, name := range cfg.Order {
		if !keep[name] {
			continue
		}
		rec := *cfg.Processes[name]
		rec.DependsOn = pruneDeps(rec.DependsOn, keep)
		out.Processes[name] = &rec
		out.Order = append(out.Order, name)
	}

	if len(out.Processes) == 0 {
		return nil, fail("filtering leaves no processes")
	}

	return out, nil
}

func pruneDeps(deps []string, keep map[string]bool) []string {
	if len(deps) == 0 {
		return nil
	}
	var pruned []string
	for _, d := range deps {
		if keep[d] {
			pruned = append(pruned, d)
		}
	}
	return pruned
}
