package policy

import (
	"context"
	"strings"
)

// Review modes recognised by the engine.
const (
	ModeAsk  = "ask"  // pause at the review checkpoint (default)
	ModeAuto = "auto" // run unattended, no human checkpoint
	ModeDeny = "deny" // block the task before planning
)

// Policy represents the review settings for a task submission.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList filter by task kind regardless of Mode.
//
// A nil *Policy means "every task is reviewed" - the module exists to insert
// the human checkpoint, so ask is the zero-cost default.
type Policy struct {
	Mode      string   // ask / auto / deny      (default = ask)
	AllowList []string // kinds exempt from review (run unattended)
	BlockList []string // kinds always blocked
}

// Config represents the declarative, serialisable form of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// Mode resolution per task kind.  BlockList wins, then AllowList exempts the
// kind from review, then the configured Mode applies.
func (p *Policy) ModeFor(kind string) string {
	if p == nil {
		return ModeAsk
	}
	normalized := strings.ToLower(kind)
	for _, blocked := range p.BlockList {
		if normalized == strings.ToLower(blocked) {
			return ModeDeny
		}
	}
	for _, allowed := range p.AllowList {
		if normalized == strings.ToLower(allowed) {
			return ModeAuto
		}
	}
	switch p.Mode {
	case ModeAuto, ModeDeny:
		return p.Mode
	}
	return ModeAsk
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy or nil.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
