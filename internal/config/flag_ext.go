package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type strFlag struct {
	v   string
	set bool
}

func (f *strFlag) String() string     { return f.v }
func (f *strFlag) Set(s string) error { f.v, f.set = s, true; return nil }

type intFlag struct {
	v   int
	set bool
}

func (f *intFlag) String() string { return strconv.Itoa(f.v) }
func (f *intFlag) Set(s string) error {
	i, err := strconv.Atoi(s)
	if err != nil {
		return err
	}
	f.v, f.set = i, true
	return nil
}

type boolFlag struct {
	v   bool
	set bool
}

func (f *boolFlag) IsBoolFlag() bool { return true }
func (f *boolFlag) String() string   { return strconv.FormatBool(f.v) }
func (f *boolFlag) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	f.v, f.set = b, true
	return nil
}

// durationFlag also takes a bare number of seconds.
type durationFlag struct {
	v   time.Duration
	set bool
}

func (f *durationFlag) String() string { return f.v.String() }
func (f *durationFlag) Set(s string) error {
	d, err := parseDuration(s)
	if err != nil {
		return err
	}
	f.v, f.set = d, true
	return nil
}

// mapFlag parses "key=value,key=value" pairs.
type mapFlag struct {
	v   map[string]string
	set bool
}

func (f *mapFlag) String() string {
	pairs := make([]string, 0, len(f.v))
	for k, v := range f.v {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (f *mapFlag) Set(s string) error {
	m, err := parsePairs(s)
	if err != nil {
		return err
	}
	f.v, f.set = m, true
	return nil
}

func parsePairs(s string) (map[string]string, error) {
	m := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, want key=value", pair)
		}
		m[k] = v
	}
	return m, nil
}
