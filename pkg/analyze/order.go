package analyze

import (
	"fmt"
	"sort"
	"strings"
)

// CycleError reports reactive declarations that depend on each other
type CycleError struct {
	// Assignees of the declarations left unordered, in source order
	Names []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("cyclical reactive declaration: %s", strings.Join(e.Names, ", "))
}

// orderReactive sorts declarations so each runs after every declaration
// that assigns one of its dependencies. Ties go to source order.
func orderReactive(decls []*ReactiveDeclaration) ([]*ReactiveDeclaration, error) {
	n := len(decls)
	if n < 2 {
		return decls, nil
	}

	assignedBy := make(map[string][]int)
	for i, d := range decls {
		for _, name := range d.Assignees {
			assignedBy[name] = append(assignedBy[name], i)
		}
	}

	// edges[y] holds every x that must run after y
	edges := make([][]int, n)
	inDegree := make([]int, n)
	for x, d := range decls {
		seen := make(map[int]bool)
		for _, dep := range d.Dependencies {
			for _, y := range assignedBy[dep] {
				if y == x || seen[y] {
					continue
				}
				seen[y] = true
				edges[y] = append(edges[y], x)
				inDegree[x]++
			}
		}
	}

	var ready []int
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	ordered := make([]*ReactiveDeclaration, 0, n)
	for len(ready) > 0 {
		next := ready[0]
		ready = ready[1:]
		ordered = append(ordered, decls[next])

		for _, x := range edges[next] {
			inDegree[x]--
			if inDegree[x] == 0 {
				i := sort.SearchInts(ready, x)
				ready = append(ready, 0)
				copy(ready[i+1:], ready[i:])
				ready[i] = x
			}
		}
	}

	if len(ordered) < n {
		var names []string
		for i, d := range decls {
			if inDegree[i] > 0 {
				names = append(names, d.Assignees...)
			}
		}
		return nil, &CycleError{Names: names}
	}
	return ordered, nil
}
