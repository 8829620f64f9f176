// Package generator synthesizes random fault trees of controlled
// complexity for benchmarking and regression testing. Generation is
// fully determined by the seed.
package generator

import (
	"fmt"
	"math/rand/v2"

	"github.com/dd0wney/cluso-riskgraph/pkg/mef"
)

// Config shapes the generated tree.
type Config struct {
	// Seed fixes the random stream.
	Seed uint64

	// NumBasicEvents is the number of distinct basic events.
	// Non-positive means 100.
	NumBasicEvents int

	// AvgArgs is the average gate argument count. Values below 2 are
	// raised to 3.
	AvgArgs float64

	// WeightAnd, WeightOr, and WeightAtLeast set the relative gate type
	// frequencies. All zero means OR-heavy (1, 2, 0.3).
	WeightAnd, WeightOr, WeightAtLeast float64

	// MinProb and MaxProb bound the uniform probability assignment.
	// Both zero means [0.01, 0.1].
	MinProb, MaxProb float64

	// CommonEventFraction is the chance an argument slot reuses an
	// existing basic event instead of creating a new one.
	CommonEventFraction float64
}

func (c *Config) applyDefaults() {
	if c.NumBasicEvents <= 0 {
		c.NumBasicEvents = 100
	}
	if c.AvgArgs < 2 {
		c.AvgArgs = 3
	}
	if c.WeightAnd == 0 && c.WeightOr == 0 && c.WeightAtLeast == 0 {
		c.WeightAnd, c.WeightOr, c.WeightAtLeast = 1, 2, 0.3
	}
	if c.MinProb == 0 && c.MaxProb == 0 {
		c.MinProb, c.MaxProb = 0.01, 0.1
	}
}

// Generate builds a model with a single fault tree named "root".
func Generate(cfg Config) (*mef.Model, error) {
	cfg.applyDefaults()
	if cfg.MaxProb < cfg.MinProb || cfg.MinProb < 0 || cfg.MaxProb > 1 {
		return nil, fmt.Errorf("probability bounds [%g, %g] are invalid", cfg.MinProb, cfg.MaxProb)
	}
	if cfg.NumBasicEvents < 2 {
		return nil, fmt.Errorf("need at least two basic events, got %d", cfg.NumBasicEvents)
	}

	g := &builder{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x5851f42d4c957f2d)),
	}
	model := mef.NewModel(fmt.Sprintf("generated-%d", cfg.Seed))
	tree := mef.NewFaultTree("root")

	top := g.newGate()
	if err := tree.AddGate(top); err != nil {
		return nil, err
	}

	// Breadth-first expansion: argument slots become new gates while
	// the basic-event budget lasts, then leaves.
	queue := []*mef.Gate{top}
	for len(queue) > 0 {
		gate := queue[0]
		queue = queue[1:]

		args := g.argCount()
		for i := 0; i < args; i++ {
			if g.created < cfg.NumBasicEvents && g.rng.Float64() < g.gateChance() {
				child := g.newGate()
				if err := tree.AddGate(child); err != nil {
					return nil, err
				}
				gate.AddArg(child)
				queue = append(queue, child)
				continue
			}
			if ev := g.pickEvent(model, gate); ev != nil {
				gate.AddArg(ev)
			}
		}
		if gate.Connective() == mef.AtLeast {
			// Randomize k in [2, n-1] after the arity is known.
			n := len(gate.Args())
			k := 2
			if n > 3 {
				k += int(g.rng.Uint64() % uint64(n-3+1))
			}
			if k >= n && n > 1 {
				k = n - 1
			}
			if k < 2 {
				k = 2
			}
			gate.SetMinNumber(k)
		}
	}

	// Spend any leftover budget on a flat OR below the top gate so the
	// requested event count is exact.
	if g.created < cfg.NumBasicEvents {
		spill := g.newGateOf(mef.Or)
		if err := tree.AddGate(spill); err != nil {
			return nil, err
		}
		top.AddArg(spill)
		for g.created < cfg.NumBasicEvents {
			spill.AddArg(g.newEvent(model))
		}
	}

	if err := tree.SetTop(top); err != nil {
		return nil, err
	}
	if err := model.AddFaultTree(tree); err != nil {
		return nil, err
	}
	return model, nil
}

type builder struct {
	cfg      Config
	rng      *rand.Rand
	numGates int
	created  int
	events   []*mef.BasicEvent
}

func (b *builder) newGate() *mef.Gate {
	return b.newGateOf(b.randomConnective())
}

func (b *builder) newGateOf(conn mef.Connective) *mef.Gate {
	name := fmt.Sprintf("G%d", b.numGates)
	b.numGates++
	if conn == mef.AtLeast {
		return mef.NewVoteGate(name, 2)
	}
	return mef.NewGate(name, conn)
}

func (b *builder) randomConnective() mef.Connective {
	total := b.cfg.WeightAnd + b.cfg.WeightOr + b.cfg.WeightAtLeast
	roll := b.rng.Float64() * total
	switch {
	case roll < b.cfg.WeightAnd:
		return mef.And
	case roll < b.cfg.WeightAnd+b.cfg.WeightOr:
		return mef.Or
	default:
		return mef.AtLeast
	}
}

// argCount draws the arity around the configured average, at least 2.
func (b *builder) argCount() int {
	n := int(b.cfg.AvgArgs + (b.rng.Float64()-0.5)*2)
	if n < 2 {
		n = 2
	}
	return n
}

// gateChance keeps the expected tree size near the event budget.
func (b *builder) gateChance() float64 {
	remaining := float64(b.cfg.NumBasicEvents-b.created) / float64(b.cfg.NumBasicEvents)
	return 0.4 * remaining
}

// pickEvent returns a leaf for one argument slot, reusing an existing
// event for common-cause structure when the dice say so. A nil return
// means no non-duplicate leaf is available for this gate.
func (b *builder) pickEvent(model *mef.Model, gate *mef.Gate) *mef.BasicEvent {
	shared := len(b.events) > 0 &&
		(b.created >= b.cfg.NumBasicEvents || b.rng.Float64() < b.cfg.CommonEventFraction)
	if shared {
		for try := 0; try < 8; try++ {
			ev := b.events[b.rng.Uint64()%uint64(len(b.events))]
			if !hasArg(gate, ev) {
				return ev
			}
		}
		if b.created >= b.cfg.NumBasicEvents {
			for _, ev := range b.events {
				if !hasArg(gate, ev) {
					return ev
				}
			}
			return nil
		}
	}
	if b.created >= b.cfg.NumBasicEvents {
		return nil
	}
	return b.newEvent(model)
}

func hasArg(gate *mef.Gate, n mef.Node) bool {
	for _, arg := range gate.Args() {
		if arg.Node == n {
			return true
		}
	}
	return false
}

func (b *builder) newEvent(model *mef.Model) *mef.BasicEvent {
	b.created++
	p := b.cfg.MinProb + b.rng.Float64()*(b.cfg.MaxProb-b.cfg.MinProb)
	ev := mef.NewBasicEvent(fmt.Sprintf("E%d", b.created), mef.NewConstant(p))
	b.events = append(b.events, ev)
	model.AddBasicEvent(ev)
	return ev
}
