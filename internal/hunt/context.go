// Package hunt holds the core catalog-execution primitives: the
// investigation context, query parameter substitution, the backend
// capability, and result normalization.
package hunt

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind names the investigation subject type.
type Kind string

const (
	KindDevice Kind = "Device"
	KindUser   Kind = "User"
)

// DefaultTimeFrame is the logical filter span substituted into query
// text when the caller supplies none. It is unrelated to Lookback.
const DefaultTimeFrame = "7d"

var (
	deviceIDPattern = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)
	upnPattern      = regexp.MustCompile(`^[^@\s]+@[^@\s]+$`)
)

// Context carries the per-investigation inputs supplied by the CLI
// layer: the entity identifiers, the logical time frame, and the
// artifact flags.
type Context struct {
	DeviceID          string // 40-char hex device identifier
	UserPrincipalName string // local@domain
	TimeFrame         string // free-form duration string, e.g. "7d"

	Echo   bool // print each normalized table to the terminal
	Export bool // write a CSV extract per non-empty table
}

// Validate applies the identifier format patterns. A malformed
// identifier is dropped (treated as absent) rather than aborting the
// run; one warning per dropped identifier is returned. An empty
// TimeFrame is replaced with DefaultTimeFrame.
func (c *Context) Validate() []string {
	var warnings []string
	if c.DeviceID != "" && !deviceIDPattern.MatchString(c.DeviceID) {
		warnings = append(warnings, fmt.Sprintf("device id %q is not a 40-char hex string; ignoring it", c.DeviceID))
		c.DeviceID = ""
	}
	if c.UserPrincipalName != "" && !upnPattern.MatchString(c.UserPrincipalName) {
		warnings = append(warnings, fmt.Sprintf("user principal name %q is not local@domain; ignoring it", c.UserPrincipalName))
		c.UserPrincipalName = ""
	}
	if c.TimeFrame == "" {
		c.TimeFrame = DefaultTimeFrame
	}
	return warnings
}

// EntityID returns the identifier of the investigation subject for the
// given kind.
func (c Context) EntityID(kind Kind) string {
	if kind == KindUser {
		return c.UserPrincipalName
	}
	return c.DeviceID
}

// RenderQuery substitutes the {DeviceId}, {TimeFrame} and
// {UserPrincipalName} placeholders in a query template with the context
// values. Substitution is purely textual: absent values substitute as
// empty strings and no query-language escaping is applied, so
// identifier validation is the only guard against hostile input.
// TimeFrame in particular is interpolated raw.
func RenderQuery(template string, c Context) string {
	return strings.NewReplacer(
		"{DeviceId}", c.DeviceID,
		"{TimeFrame}", c.TimeFrame,
		"{UserPrincipalName}", c.UserPrincipalName,
	).Replace(template)
}
