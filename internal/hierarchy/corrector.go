// Package hierarchy corrects section nesting with an external judgment
// oracle, working bottom-up one tree level at a time.
package hierarchy

import (
	"context"
	"log/slog"
	"time"

	"github.com/obaidtambo/doc-struct/internal/doctree"
	"github.com/obaidtambo/doc-struct/internal/judge"
)

// Oracle answers one natural-language question. judge.Client satisfies it;
// tests use deterministic stubs.
type Oracle interface {
	Judge(ctx context.Context, prompt string) (string, error)
}

const (
	decisionKey     = "decision"
	relationshipKey = "relationship"

	Belongs = "BELONGS"
	Promote = "PROMOTE"
	Sibling = "SIBLING"
	Child   = "CHILD"
)

var (
	promotionValues = []string{Belongs, Promote}
	demotionValues  = []string{Sibling, Child}
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 5 * time.Second
)

// Kind names a structural correction.
type Kind string

const (
	KindPromotion Kind = "promotion"
	KindDemotion  Kind = "demotion"
)

// Correction records one applied move. From and To are parent section ids;
// an empty id means the document's top level.
type Correction struct {
	Kind      Kind   `json:"kind"`
	NodeID    string `json:"node_id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Reasoning string `json:"reasoning,omitempty"`
}

// Report summarizes a correction run.
type Report struct {
	Corrections  []Correction `json:"corrections"`
	Checks       int          `json:"checks"`
	Inconclusive int          `json:"inconclusive"`
}

// Options tunes a Corrector. Zero values select the defaults.
type Options struct {
	MaxAttempts int
	// RetryDelay is the fixed wait between attempts. Negative disables it.
	RetryDelay time.Duration
	Policy     Policy
	Prompts    *Prompts
}

// Corrector applies promotion and demotion judgments to a tree.
type Corrector struct {
	oracle   Oracle
	log      *slog.Logger
	attempts int
	delay    time.Duration
	policy   Policy
	prompts  *Prompts
}

func NewCorrector(oracle Oracle, log *slog.Logger, opts Options) *Corrector {
	c := &Corrector{
		oracle:   oracle,
		log:      log,
		attempts: opts.MaxAttempts,
		delay:    opts.RetryDelay,
		policy:   opts.Policy,
		prompts:  opts.Prompts,
	}
	if c.attempts <= 0 {
		c.attempts = DefaultMaxAttempts
	}
	if c.delay == 0 {
		c.delay = DefaultRetryDelay
	}
	if c.delay < 0 {
		c.delay = 0
	}
	if c.policy == nil {
		c.policy = DefaultPolicy{}
	}
	if c.prompts == nil {
		c.prompts = DefaultPrompts()
	}
	return c
}

// Correct mutates tree in place. Levels are processed deepest first; each
// level's membership is fixed before any of its nodes move. Oracle
// failures only make a single check inconclusive. The returned error is
// non-nil only when ctx ends or a prompt cannot be rendered.
func (c *Corrector) Correct(ctx context.Context, tree *doctree.DocumentTree) (*Report, error) {
	report := &Report{Corrections: []Correction{}}
	if tree == nil || len(tree.Structure) == 0 {
		return report, nil
	}
	log := c.log.With("doc_id", tree.DocumentID)
	ix := newIndex(tree)

	for depth := len(ix.levels) - 1; depth >= 0; depth-- {
		level := append([]string(nil), ix.levels[depth]...)
		log.Debug("correcting level", "depth", depth, "nodes", len(level))
		for _, id := range level {
			if err := c.visit(ctx, ix, id, report, log); err != nil {
				return report, err
			}
		}
	}

	log.Info("hierarchy correction complete",
		"checks", report.Checks,
		"corrections", len(report.Corrections),
		"inconclusive", report.Inconclusive,
	)
	return report, nil
}

func (c *Corrector) visit(ctx context.Context, ix *index, id string, report *Report, log *slog.Logger) error {
	node, ok := ix.nodes[id]
	if !ok {
		return nil
	}
	parentID := ix.parent[id]
	if parentID != topLevel && !ix.has(parentID) {
		return nil
	}

	if parentID != topLevel {
		moved, err := c.checkPromotion(ctx, ix, node, parentID, report, log)
		if err != nil || moved {
			return err
		}
	}
	return c.checkDemotion(ctx, ix, node, parentID, report, log)
}

func (c *Corrector) checkPromotion(ctx context.Context, ix *index, node *doctree.SectionNode, parentID string, report *Report, log *slog.Logger) (bool, error) {
	parent := ix.nodes[parentID]
	grandparentID := ix.parent[parentID]

	prompt, err := render(c.prompts.Promotion, promptData{
		Context: c.view(ix, grandparentID),
		Parent:  nodeView{ID: parentID, Summary: summarize(parent)},
		Node:    nodeView{ID: node.ID, Summary: summarize(node)},
	})
	if err != nil {
		return false, err
	}
	v, ok, err := c.ask(ctx, prompt, decisionKey, promotionValues, report, log)
	if err != nil || !ok || v.Value != Promote {
		return false, err
	}

	from := ix.children(parentID)
	i := position(*from, node.ID)
	if i < 0 {
		log.Warn("promoted node missing from parent", "node", node.ID, "parent", parentID)
		return false, nil
	}
	detach(from, i)

	to := ix.children(grandparentID)
	at := c.policy.PromoteIndex(len(*to), position(*to, parentID), grandparentID == topLevel)
	attach(to, at, node)

	node.Promoted = true
	ix.parent[node.ID] = grandparentID
	c.record(report, log, Correction{
		Kind: KindPromotion, NodeID: node.ID, From: parentID, To: grandparentID, Reasoning: v.Reasoning,
	})
	return true, nil
}

func (c *Corrector) checkDemotion(ctx context.Context, ix *index, node *doctree.SectionNode, parentID string, report *Report, log *slog.Logger) error {
	siblings := ix.children(parentID)
	i := position(*siblings, node.ID)
	if i < 0 || i+1 >= len(*siblings) {
		return nil
	}
	next := (*siblings)[i+1]

	prompt, err := render(c.prompts.Demotion, promptData{
		Context: c.view(ix, parentID),
		Node:    nodeView{ID: node.ID, Summary: summarize(node)},
		Next:    nodeView{ID: next.ID, Summary: summarize(next)},
	})
	if err != nil {
		return err
	}
	v, ok, err := c.ask(ctx, prompt, relationshipKey, demotionValues, report, log)
	if err != nil || !ok || v.Value != Child {
		return err
	}

	// The oracle call does not touch the tree, so next is still at i+1.
	detach(siblings, i+1)
	attach(&node.Children, c.policy.DemoteIndex(len(node.Children)), next)

	next.Demoted = true
	ix.parent[next.ID] = node.ID
	c.record(report, log, Correction{
		Kind: KindDemotion, NodeID: next.ID, From: parentID, To: node.ID, Reasoning: v.Reasoning,
	})
	return nil
}

func (c *Corrector) view(ix *index, id string) nodeView {
	if id == topLevel {
		return nodeView{Summary: documentTop}
	}
	return nodeView{ID: id, Summary: summarize(ix.nodes[id])}
}

// ask queries the oracle until it returns a valid verdict or attempts run
// out. ok is false when the check is inconclusive.
func (c *Corrector) ask(ctx context.Context, prompt, key string, allowed []string, report *Report, log *slog.Logger) (judge.Verdict, bool, error) {
	report.Checks++
	for attempt := 1; attempt <= c.attempts; attempt++ {
		raw, err := c.oracle.Judge(ctx, prompt)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return judge.Verdict{}, false, ctxErr
		}
		if err == nil {
			v, perr := judge.ParseVerdict(raw, key, allowed)
			if perr == nil {
				return v, true, nil
			}
			err = perr
		}
		log.Warn("oracle attempt failed", "key", key, "attempt", attempt, "max_attempts", c.attempts, "error", err)

		if attempt < c.attempts && c.delay > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return judge.Verdict{}, false, ctx.Err()
			}
		}
	}
	report.Inconclusive++
	return judge.Verdict{}, false, nil
}

func (c *Corrector) record(report *Report, log *slog.Logger, corr Correction) {
	report.Corrections = append(report.Corrections, corr)
	log.Info("hierarchy corrected",
		"kind", corr.Kind,
		"node", corr.NodeID,
		"from", orTop(corr.From),
		"to", orTop(corr.To),
	)
}

func orTop(id string) string {
	if id == topLevel {
		return "top"
	}
	return id
}

var _ Oracle = judge.Client(nil)
