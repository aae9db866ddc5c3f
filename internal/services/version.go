package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var constraintRe = regexp.MustCompile(`^([><=!]+)(.+)$`)

// parseConstraint splits a requirement like ">=1.0.0" into operator and
// version. A bare version means exact match.
func parseConstraint(requirement string) (op, version string) {
	m := constraintRe.FindStringSubmatch(strings.TrimSpace(requirement))
	if m == nil {
		return "==", strings.TrimSpace(requirement)
	}
	return m[1], strings.TrimSpace(m[2])
}

// parseVersion turns a dotted version string into integer fields. Anything
// unparseable collapses to (0).
func parseVersion(version string) []int {
	parts := strings.Split(version, ".")
	fields := make([]int, 0, len(parts))
	for _, part := range parts {
		n, err := strconv.Atoi(part)
		if err != nil {
			return []int{0}
		}
		fields = append(fields, n)
	}
	return fields
}

// compareVersions orders two dotted versions: -1, 0 or 1. Missing fields
// compare as zero, so "1.0" equals "1.0.0".
func compareVersions(a, b string) int {
	av, bv := parseVersion(a), parseVersion(b)
	for i := 0; i < len(av) || i < len(bv); i++ {
		var x, y int
		if i < len(av) {
			x = av[i]
		}
		if i < len(bv) {
			y = bv[i]
		}
		if x != y {
			if x < y {
				return -1
			}
			return 1
		}
	}
	return 0
}

// satisfies checks an installed version against a requirement string.
func satisfies(installed, requirement string) (bool, error) {
	op, required := parseConstraint(requirement)
	cmp := compareVersions(installed, required)

	switch op {
	case "==":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return false, fmt.Errorf("unknown version operator: %s", op)
	}
}
