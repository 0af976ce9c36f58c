package filter

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/bakkerme/jobwatch/internal/config"
	"github.com/bakkerme/jobwatch/internal/core"
)

// Rule decides whether a new posting is kept. With result "drop" matching
// postings are removed; with "pass" only matching postings are kept.
//
// The expression sees:
//
//	title.value, title.length, link, host, query
type Rule struct {
	name    string
	result  string
	program *vm.Program
}

func NewRule(cfg *config.PostingRule) (*Rule, error) {
	if cfg == nil {
		return nil, fmt.Errorf("posting rule config is required")
	}
	if cfg.Name == "" || cfg.Rule == "" {
		return nil, fmt.Errorf("rule name and expression are required")
	}
	if cfg.Result != "pass" && cfg.Result != "drop" {
		return nil, fmt.Errorf("rule result must be 'pass' or 'drop'")
	}
	program, err := expr.Compile(cfg.Rule, expr.Env(ruleEnv("", core.Posting{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compile posting rule: %w", err)
	}
	return &Rule{
		name:    cfg.Name,
		result:  cfg.Result,
		program: program,
	}, nil
}

func (r *Rule) Name() string {
	return r.name
}

// Keep reports whether the posting survives the rule. On an evaluation error
// the posting is kept and the error returned for logging.
func (r *Rule) Keep(query string, posting core.Posting) (bool, error) {
	out, err := expr.Run(r.program, ruleEnv(query, posting))
	if err != nil {
		return true, fmt.Errorf("rule %s: %w", r.name, err)
	}
	matched, ok := out.(bool)
	if !ok {
		return true, fmt.Errorf("rule %s did not return bool", r.name)
	}
	if r.result == "drop" {
		return !matched, nil
	}
	return matched, nil
}

func ruleEnv(query string, posting core.Posting) map[string]interface{} {
	host := ""
	if u, err := url.Parse(posting.Link); err == nil {
		host = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
	}
	return map[string]interface{}{
		"title": map[string]interface{}{
			"value":  posting.Title,
			"length": len(posting.Title),
		},
		"link":  posting.Link,
		"host":  host,
		"query": query,
	}
}
