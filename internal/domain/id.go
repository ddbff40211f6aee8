package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// IDKind tells which identifier scheme a CompanyID came from.
type IDKind uint8

const (
	IDNone IDKind = iota
	IDNumeric
	IDToken
)

// CompanyID identifies a company across both fixture generations: numeric ids
// (companyId) and legacy string tokens such as "T1". Values are normalised at
// construction so that comparing two ids is plain equality.
type CompanyID struct {
	kind  IDKind
	num   int64
	token string
}

func NumericID(n int64) CompanyID { return CompanyID{kind: IDNumeric, num: n} }

func TokenID(s string) CompanyID {
	s = strings.TrimSpace(s)
	if s == "" {
		return CompanyID{}
	}
	return CompanyID{kind: IDToken, token: s}
}

// ParseCompanyID normalises a route segment or query value. Anything that
// parses as a base-10 integer, or a number with no fractional part such as
// "7.0", becomes numeric, so "7", "7.0", 7 and 7.0 all compare equal.
func ParseCompanyID(s string) CompanyID {
	s = strings.TrimSpace(s)
	if s == "" {
		return CompanyID{}
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return NumericID(n)
	}
	if n, ok := integralFloat(s); ok {
		return NumericID(n)
	}
	return TokenID(s)
}

func integralFloat(s string) (int64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func (id CompanyID) Kind() IDKind { return id.kind }
func (id CompanyID) IsZero() bool { return id.kind == IDNone }
func (id CompanyID) Equal(o CompanyID) bool { return id == o }

// Int returns the numeric value for numeric ids.
func (id CompanyID) Int() (int64, bool) {
	if id.kind != IDNumeric {
		return 0, false
	}
	return id.num, true
}

func (id CompanyID) String() string {
	switch id.kind {
	case IDNumeric:
		return strconv.FormatInt(id.num, 10)
	case IDToken:
		return id.token
	default:
		return ""
	}
}

func (id CompanyID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case IDNumeric:
		return []byte(strconv.FormatInt(id.num, 10)), nil
	case IDToken:
		return json.Marshal(id.token)
	default:
		return []byte("null"), nil
	}
}

func (id *CompanyID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = CompanyID{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ParseCompanyID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("company id: %w", err)
	}
	if v, err := n.Int64(); err == nil {
		*id = NumericID(v)
		return nil
	}
	// 7.0 style numbers from loosely typed producers
	v, ok := integralFloat(n.String())
	if !ok {
		return fmt.Errorf("company id: %q is not an integer", n.String())
	}
	*id = NumericID(v)
	return nil
}
