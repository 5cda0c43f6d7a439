package backend

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
)

type porcelainLine struct {
	final int
	hash  string
}

// parseBlamePorcelain reads `git blame --porcelain` output. Commit metadata is
// only printed the first time a commit appears, so signatures are collected
// separately and joined at the end.
func parseBlamePorcelain(r io.Reader) ([]BlameLine, error) {
	sigs := map[string]*Signature{}
	var lines []porcelainLine
	var cur string
	var curFinal int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		if strings.HasPrefix(text, "\t") {
			if cur == "" {
				return nil, fmt.Errorf("content line without header")
			}
			lines = append(lines, porcelainLine{final: curFinal, hash: cur})
			continue
		}
		key, value, _ := strings.Cut(text, " ")
		if plumbing.IsHash(key) {
			fields := strings.Fields(value)
			if len(fields) < 2 {
				return nil, fmt.Errorf("unexpected blame header: %q", text)
			}
			final, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("unexpected blame header: %q", text)
			}
			cur, curFinal = key, final
			if _, ok := sigs[cur]; !ok {
				sigs[cur] = &Signature{}
			}
			continue
		}
		if cur == "" {
			continue
		}
		sig := sigs[cur]
		switch key {
		case "author":
			sig.Name = value
		case "author-mail":
			sig.Email = strings.TrimSuffix(strings.TrimPrefix(value, "<"), ">")
		case "author-time":
			sec, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("unexpected author-time: %q", value)
			}
			sig.When = time.Unix(sec, 0)
		case "author-tz":
			if loc, ok := parseTZ(value); ok && !sig.When.IsZero() {
				sig.When = sig.When.In(loc)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(lines, func(i, j int) bool { return lines[i].final < lines[j].final })
	out := make([]BlameLine, 0, len(lines))
	for i, l := range lines {
		if l.final != i+1 {
			return nil, fmt.Errorf("blame output skips line %d", i+1)
		}
		out = append(out, BlameLine{CommitHash: l.hash, Author: *sigs[l.hash]})
	}
	return out, nil
}

// parseTZ parses offsets like "+0200" or "-0530".
func parseTZ(s string) (*time.Location, bool) {
	if len(s) != 5 || (s[0] != '+' && s[0] != '-') {
		return nil, false
	}
	hh, err1 := strconv.Atoi(s[1:3])
	mm, err2 := strconv.Atoi(s[3:5])
	if err1 != nil || err2 != nil {
		return nil, false
	}
	offset := hh*3600 + mm*60
	if s[0] == '-' {
		offset = -offset
	}
	return time.FixedZone(s, offset), true
}
