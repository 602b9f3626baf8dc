// Copyright 2025 Author(s) of db2i-mcp-server
// SPDX-License-Identifier: Apache-2.0

// Package sqlsec implements the SQL security validator: length,
// forbidden-keyword, and read-only enforcement against a compiled
// SQL statement. Every check is a regular-expression pass over the
// statement text; there is no parse step, so there is no separate
// fallback path and no warning for a statement that fails to parse.
package sqlsec

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ibmi-tools/db2i-mcp-server/pkg/config"
	"github.com/ibmi-tools/db2i-mcp-server/pkg/errs"
)

// dangerousStatements is the top-level statement deny-list enforced
// under read-only policy.
var dangerousStatements = map[string]bool{
	"INSERT": true, "UPDATE": true, "DELETE": true, "REPLACE": true, "MERGE": true, "TRUNCATE": true,
	"DROP": true, "CREATE": true, "ALTER": true, "RENAME": true,
	"CALL": true, "EXEC": true, "EXECUTE": true, "SET": true, "DECLARE": true,
	"GRANT": true, "REVOKE": true, "DENY": true,
	"LOAD": true, "IMPORT": true, "EXPORT": true, "BULK": true,
	"SHUTDOWN": true, "RESTART": true, "KILL": true, "STOP": true, "START": true,
	"BACKUP": true, "RESTORE": true, "DUMP": true,
	"LOCK": true, "UNLOCK": true,
	"COMMIT": true, "ROLLBACK": true, "SAVEPOINT": true,
}

// dangerousFunctions is the deny-list of function-call identifiers.
var dangerousFunctions = map[string]bool{
	"SYSTEM": true, "EXEC": true, "EVAL": true, "LOAD_EXTENSION": true, "EXECUTE_IMMEDIATE": true,
	"QCMDEXC": true, "XP_CMDSHELL": true,
}

var (
	wordRe        = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)
	funcCallRe    = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
	unionSelectRe = regexp.MustCompile(`(?i)UNION(?:\s+ALL)?\s+SELECT\b.*\bINTO\b`)
	semiDangerRe  *regexp.Regexp
)

func init() {
	var kws []string
	for k := range dangerousStatements {
		kws = append(kws, k)
	}
	semiDangerRe = regexp.MustCompile(`(?i);\s*(` + strings.Join(kws, "|") + `)\b`)
}

// Violation describes one rule failure.
type Violation struct {
	Rule    string
	Message string
}

// Check runs every security rule against sql, resolving missing policy
// fields to the system defaults (read_only=true, max_query_length=10000,
// no forbidden keywords). It returns every violation found (never
// fail-fast) so callers can report a complete list, and a single
// aggregated error when any rule failed.
func Check(sql string, policy *config.ToolSecurityPolicy) ([]Violation, error) {
	var violations []Violation

	maxLen := policy.MaxQueryLengthOrDefault()
	if len(sql) > maxLen {
		violations = append(violations, Violation{
			Rule:    "max_query_length",
			Message: fmt.Sprintf("statement length %d exceeds max_query_length %d", len(sql), maxLen),
		})
	}

	for _, kw := range policy.ForbiddenKeywordsOrDefault() {
		if containsWord(sql, kw) {
			violations = append(violations, Violation{
				Rule:    "forbidden_keyword",
				Message: fmt.Sprintf("Forbidden keyword: %s", kw),
			})
		}
	}

	if policy.ReadOnlyOrDefault() {
		violations = append(violations, checkReadOnly(sql)...)
	}

	if len(violations) == 0 {
		return nil, nil
	}

	msgs := make([]string, len(violations))
	for i, v := range violations {
		msgs[i] = v.Message
	}
	return violations, errs.New(errs.KindValidation, "SQL security policy violation(s): "+strings.Join(msgs, "; "))
}

// checkReadOnly applies the statement-type, dangerous-function, UNION,
// and chaining checks.
func checkReadOnly(sql string) []Violation {
	var out []Violation

	if stmt, ok := topLevelStatement(sql); ok && dangerousStatements[stmt] {
		out = append(out, Violation{
			Rule:    "read_only",
			Message: fmt.Sprintf("Write operation '%s' detected", stmt),
		})
	}

	for _, m := range funcCallRe.FindAllStringSubmatch(sql, -1) {
		name := strings.ToUpper(m[1])
		if dangerousFunctions[name] {
			out = append(out, Violation{
				Rule:    "dangerous_function",
				Message: fmt.Sprintf("Dangerous function call detected: %s", name),
			})
		}
	}

	if rhs, ok := unionRightHandSide(sql); ok && !isPureSelect(rhs) {
		out = append(out, Violation{
			Rule:    "union_rhs",
			Message: "UNION right-hand statement is not a pure SELECT",
		})
	}

	if semiDangerRe.MatchString(sql) {
		out = append(out, Violation{
			Rule:    "statement_chaining",
			Message: "statement chaining into a dangerous keyword detected",
		})
	}
	if unionSelectRe.MatchString(sql) {
		out = append(out, Violation{
			Rule:    "union_select_into",
			Message: "UNION SELECT ... INTO pattern detected",
		})
	}

	return dedupe(out)
}

// topLevelStatement returns the first keyword of sql, skipping a leading
// WITH (CTE) clause so a WITH-prefixed SELECT still reads as a SELECT.
func topLevelStatement(sql string) (string, bool) {
	words := wordRe.FindAllString(sql, -1)
	if len(words) == 0 {
		return "", false
	}
	first := strings.ToUpper(words[0])
	if first == "WITH" {
		// A WITH clause is only a SELECT-shape unless its body turns out
		// to perform a write; scan forward for the first statement
		// keyword after the CTE's closing parenthesis depth returns to
		// zero, approximated here by looking for the next top-level verb.
		for _, w := range words[1:] {
			u := strings.ToUpper(w)
			if dangerousStatements[u] || u == "SELECT" {
				return u, true
			}
		}
		return first, true
	}
	return first, true
}

// unionRightHandSide returns the statement text following the first
// UNION [ALL] keyword, if any.
func unionRightHandSide(sql string) (string, bool) {
	re := regexp.MustCompile(`(?i)\bUNION\b(?:\s+ALL)?\s*`)
	loc := re.FindStringIndex(sql)
	if loc == nil {
		return "", false
	}
	return strings.TrimSpace(sql[loc[1]:]), true
}

func isPureSelect(stmt string) bool {
	words := wordRe.FindAllString(stmt, -1)
	if len(words) == 0 {
		return false
	}
	return strings.EqualFold(words[0], "SELECT")
}

// containsWord matches kw as a whole word, case-insensitively, against
// sql.
func containsWord(sql, kw string) bool {
	pattern := `(?i)\b` + regexp.QuoteMeta(kw) + `\b`
	ok, _ := regexp.MatchString(pattern, sql)
	return ok
}

func dedupe(vs []Violation) []Violation {
	seen := map[string]bool{}
	var out []Violation
	for _, v := range vs {
		key := v.Rule + "|" + v.Message
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}
