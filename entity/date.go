package entity

import (
	"fmt"
	"strings"
)

// Date is a calendar date encoded as the integer YYYYMMDD. Zero means
// unknown. The encoding is what the store persists, so ordering and prefix
// matching on the decimal text both work.
type Date int

// ParseDate parses a DICOM DA value ("20240131", or the legacy "2024.01.31").
// Anything else yields 0.
func ParseDate(s string) Date {
	s = strings.TrimSpace(s)
	if len(s) == 10 && s[4] == '.' && s[7] == '.' {
		s = s[:4] + s[5:7] + s[8:]
	}
	if len(s) != 8 {
		return 0
	}
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	d := Date(n)
	if m := d.Month(); m < 1 || m > 12 {
		return 0
	}
	if day := d.Day(); day < 1 || day > 31 {
		return 0
	}
	return d
}

// NewDate builds a Date from its parts.
func NewDate(year, month, day int) Date {
	return Date(year*10000 + month*100 + day)
}

func (d Date) Year() int  { return int(d) / 10000 }
func (d Date) Month() int { return int(d) / 100 % 100 }
func (d Date) Day() int   { return int(d) % 100 }

// IsZero reports whether the date is unknown.
func (d Date) IsZero() bool { return d == 0 }

// DA renders the DICOM form, "" when unknown.
func (d Date) DA() string {
	if d == 0 {
		return ""
	}
	return fmt.Sprintf("%08d", int(d))
}

// String renders ISO form, "" when unknown.
func (d Date) String() string {
	if d == 0 {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year(), d.Month(), d.Day())
}
