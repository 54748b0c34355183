//go:build !linux

package medium

import "github.com/basecall-labs/sigseek/api"

// Probe has no portable answer off Linux; callers fall back to the
// conservative sequential policy.
func Probe(path string) api.Medium {
	return api.MediumUnknown
}
