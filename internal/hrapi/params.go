package hrapi

import (
	"net/url"
	"strings"
)

type Param struct {
	Key   string
	Value string
}

// Params is an ordered query string. Encode keeps insertion order, which
// url.Values does not.
type Params []Param

// Add appends key=value unless value is blank.
func (p Params) Add(key, value string) Params {
	value = strings.TrimSpace(value)
	if value == "" {
		return p
	}
	return append(p, Param{Key: key, Value: value})
}

func (p Params) Encode() string {
	if len(p) == 0 {
		return ""
	}
	var b strings.Builder
	for i, param := range p {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(param.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(param.Value))
	}
	return b.String()
}
