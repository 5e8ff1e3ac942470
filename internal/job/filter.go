package job

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Op is a filter comparison operator.
type Op string

const (
	OpEq   Op = "="
	OpEqEq Op = "=="
	OpGt   Op = ">"
	OpGe   Op = ">="
	OpLt   Op = "<"
	OpLe   Op = "<="
	OpNe   Op = "!="
	OpRe   Op = "~"
)

var validOps = []Op{OpGe, OpLe, OpEqEq, OpNe, OpRe, OpEq, OpGt, OpLt}

// FilterPredicate is a single (key, op, value) metadata predicate.
type FilterPredicate struct {
	Key   string
	Op    Op
	Value string

	valueInt    int64
	valueIsInt  bool
	isPrefix    bool   // Op == OpEq and Value ends in '*'
	prefixValue string // Value with trailing '*' stripped
	regex       *regexp.Regexp
}

// ParseFilter parses a "key<op>value" expression, e.g. "size>=1024" or
// "name=foo*" or "tag~^v[0-9]". Returns an error for a malformed
// expression (unknown operator, missing key, or an invalid regex).
func ParseFilter(expr string) (FilterPredicate, error) {
	var key, opStr, value string
	found := false
	for _, op := range validOps {
		if idx := strings.Index(expr, string(op)); idx > 0 {
			key = expr[:idx]
			opStr = string(op)
			value = expr[idx+len(op):]
			found = true
			break
		}
	}
	if !found {
		return FilterPredicate{}, fmt.Errorf("filter: malformed expression %q", expr)
	}

	p := FilterPredicate{Key: key, Op: Op(opStr), Value: value}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		p.valueInt, p.valueIsInt = n, true
	}

	if p.Op == OpEq && strings.HasSuffix(value, "*") {
		p.isPrefix = true
		p.prefixValue = strings.TrimSuffix(value, "*")
	}

	if p.Op == OpRe {
		re, err := regexp.Compile(value)
		if err != nil {
			return FilterPredicate{}, fmt.Errorf("filter: invalid regex %q: %w", value, err)
		}
		p.regex = re
	}

	return p, nil
}

// Evaluate checks the predicate against a parsed metadata map. If the
// predicate's key is absent from mm, it returns (true, true): "match, but
// record missing-key annotation".
func (p FilterPredicate) Evaluate(mm MetadataMap) (pass bool, missing bool) {
	v, ok := mm[p.Key]
	if !ok {
		return true, true
	}

	switch p.Op {
	case OpRe:
		s := fmt.Sprint(v)
		loc := p.regex.FindStringIndex(s)
		return loc != nil && loc[0] == 0, false
	case OpEq, OpEqEq:
		if p.isPrefix {
			s, isStr := v.(string)
			return isStr && strings.HasPrefix(s, p.prefixValue), false
		}
		return compareEq(v, p), false
	case OpNe:
		return !compareEq(v, p), false
	case OpGt, OpGe, OpLt, OpLe:
		return compareOrdered(v, p), false
	default:
		return false, false
	}
}

func compareEq(v any, p FilterPredicate) bool {
	if n, ok := v.(int64); ok && p.valueIsInt {
		return n == p.valueInt
	}
	return fmt.Sprint(v) == p.Value
}

func compareOrdered(v any, p FilterPredicate) bool {
	n, isInt := v.(int64)
	if !isInt || !p.valueIsInt {
		// No well-defined ordering across mismatched types; fall back to
		// lexicographic comparison on the string form.
		return compareOrderedString(fmt.Sprint(v), p.Value, p.Op)
	}
	switch p.Op {
	case OpGt:
		return n > p.valueInt
	case OpGe:
		return n >= p.valueInt
	case OpLt:
		return n < p.valueInt
	case OpLe:
		return n <= p.valueInt
	}
	return false
}

func compareOrderedString(a, b string, op Op) bool {
	switch op {
	case OpGt:
		return a > b
	case OpGe:
		return a >= b
	case OpLt:
		return a < b
	case OpLe:
		return a <= b
	}
	return false
}

// EvaluateAll evaluates every predicate against a candidate's metadata.
// Short-circuits on the first predicate that evaluates false. Missing
// keys are collected (not short-circuiting) so the caller can annotate
// the candidate even when it otherwise passes.
func EvaluateAll(predicates []FilterPredicate, metadata string) (pass bool, missingKeys []string) {
	if len(predicates) == 0 {
		return true, nil
	}
	mm := ParseMetadata(metadata)
	for _, p := range predicates {
		ok, missing := p.Evaluate(mm)
		if !ok {
			return false, nil
		}
		if missing {
			missingKeys = append(missingKeys, p.Key)
		}
	}
	return true, missingKeys
}
