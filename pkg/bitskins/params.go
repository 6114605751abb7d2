package bitskins

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// param declares one query parameter of an endpoint. Each operation lists its
// params and encodeParams applies the rules in one place.
type param struct {
	name string

	// value is nil when the caller left the parameter unset.
	value *string
	// fallback is sent when value is nil. Empty omits the parameter.
	fallback string

	// list params are joined with a bare comma and must not be empty.
	list   []string
	isList bool
	limit  int

	// oneOf restricts the encoded value to a fixed set.
	oneOf []string
	// only restricts a parameter to a single title. The fallback is only sent
	// for that title and an explicit value for any other title is rejected.
	only Game
	// rule is a per-value check that may depend on the target title. It
	// returns a failure reason or "".
	rule func(value string, game Game) string
}

func strp(s string) *string { return &s }

func gameParam(g Game) param {
	return param{name: "app_id", value: strp(strconv.Itoa(int(g)))}
}

func pageParam(page int) param {
	p := param{name: "page", value: strp(strconv.Itoa(page)), fallback: "1"}
	if page == 0 {
		p.value = nil
	}
	p.rule = func(v string, _ Game) string {
		if page < 0 {
			return "must not be negative"
		}
		return ""
	}
	return p
}

func textParam(name, v string) param {
	if v == "" {
		return param{name: name}
	}
	return param{name: name, value: strp(v)}
}

func decimalParam(name string, v *decimal.Decimal) param {
	if v == nil {
		return param{name: name}
	}
	return param{name: name, value: strp(v.String())}
}

// flagParam encodes a title specific filter as 1 or 0.
func flagParam(name string, v *bool, only Game) param {
	p := param{name: name, fallback: "0", only: only}
	if v != nil {
		p.value = strp(map[bool]string{true: "1", false: "0"}[*v])
	}
	return p
}

// boolParam encodes a flag as the literal strings true or false.
func boolParam(name string, v *bool) param {
	if v == nil {
		return param{name: name}
	}
	return param{name: name, value: strp(strconv.FormatBool(*v)), oneOf: []string{"true", "false"}}
}

func listParam(name string, items []string) param {
	return param{name: name, list: items, isList: true, limit: MaxBatchItems}
}

// encodeParams validates params against game and renders the query fragment
// in declaration order. List values keep their commas unescaped since the
// service splits the raw query string.
func encodeParams(op string, game Game, params ...param) (string, error) {
	var parts []string
	for _, p := range params {
		if p.isList {
			if len(p.list) == 0 {
				return "", usageErr(op, p.name, "at least one entry is required")
			}
			if p.limit > 0 && len(p.list) > p.limit {
				return "", usageErr(op, p.name, "at most %d entries are allowed, got %d", p.limit, len(p.list))
			}
			escaped := make([]string, len(p.list))
			for i, item := range p.list {
				if p.rule != nil {
					if reason := p.rule(item, game); reason != "" {
						return "", usageErr(op, p.name, "entry %d: %s", i, reason)
					}
				}
				escaped[i] = url.QueryEscape(item)
			}
			parts = append(parts, p.name+"="+strings.Join(escaped, ","))
			continue
		}

		if p.only != 0 && game != p.only {
			if p.value != nil {
				return "", usageErr(op, p.name, "only applies to app %d", int(p.only))
			}
			continue
		}

		var v string
		switch {
		case p.value != nil:
			v = *p.value
		case p.fallback != "":
			v = p.fallback
		default:
			continue
		}

		if len(p.oneOf) > 0 && !contains(p.oneOf, v) {
			return "", usageErr(op, p.name, "must be one of %s, got %q", strings.Join(p.oneOf, ", "), v)
		}
		if p.rule != nil {
			if reason := p.rule(v, game); reason != "" {
				return "", usageErr(op, p.name, "%s", reason)
			}
		}
		parts = append(parts, p.name+"="+url.QueryEscape(v))
	}
	return strings.Join(parts, "&"), nil
}

func contains(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func itoaAll(ns []int) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = strconv.Itoa(n)
	}
	return out
}

func itemIDRule(v string, _ Game) string {
	switch {
	case strings.TrimSpace(v) == "":
		return "item id must not be blank"
	case strings.Contains(v, ","):
		return "item id must not contain a comma"
	}
	return ""
}

func priceRule(allowInstant bool) func(string, Game) string {
	return func(v string, _ Game) string {
		if allowInstant && v == InstantPrice {
			return ""
		}
		d, err := decimal.NewFromString(v)
		if err != nil {
			return "price " + strconv.Quote(v) + " is not a decimal number"
		}
		if !d.IsPositive() {
			return "price must be positive"
		}
		return ""
	}
}
