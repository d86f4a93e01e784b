package runtime

import (
	"fmt"
	"sort"

	"github.com/Harshitk-cp/clawguild/internal/domain"
)

// Registry dispatches plan builds to the runtime of the agents being
// deployed. It is read-only after construction.
type Registry struct {
	runtimes map[domain.RuntimeKind]Runtime
}

func NewRegistry(runtimes ...Runtime) *Registry {
	r := &Registry{runtimes: make(map[domain.RuntimeKind]Runtime, len(runtimes))}
	for _, rt := range runtimes {
		r.runtimes[rt.Kind()] = rt
	}
	return r
}

// DefaultRegistry knows every built-in runtime.
func DefaultRegistry() *Registry {
	return NewRegistry(OpenClaw{}, ZeroClaw{}, PicoClaw{}, NanoClaw{})
}

func (r *Registry) Get(kind domain.RuntimeKind) (Runtime, error) {
	rt, ok := r.runtimes[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown runtime %q", domain.ErrInvalidRequest, kind)
	}
	return rt, nil
}

func (r *Registry) Kinds() []string {
	out := make([]string, 0, len(r.runtimes))
	for k := range r.runtimes {
		out = append(out, string(k))
	}
	sort.Strings(out)
	return out
}

// BuildPlan builds one plan for agents sharing a host. The first agent is
// the primary. All agents must use the same runtime, and more than one
// agent requires a multi-agent runtime.
func (r *Registry) BuildPlan(agents []domain.Agent) (domain.RuntimeKind, domain.RuntimePlan, error) {
	if len(agents) == 0 {
		return "", domain.RuntimePlan{}, fmt.Errorf("%w: no agents to deploy", domain.ErrInvalidRequest)
	}

	kind := kindOf(agents[0])
	for _, a := range agents[1:] {
		if kindOf(a) != kind {
			return "", domain.RuntimePlan{}, fmt.Errorf("%w: agents use different runtimes (%s and %s)",
				domain.ErrInvalidRequest, kind, kindOf(a))
		}
	}

	rt, err := r.Get(kind)
	if err != nil {
		return "", domain.RuntimePlan{}, err
	}
	if len(agents) > 1 && !rt.SupportsMultiAgent() {
		return "", domain.RuntimePlan{}, fmt.Errorf("%w: runtime %s cannot host multiple agents",
			domain.ErrInvalidRequest, rt.Name())
	}

	ctx := Context{Primary: FromDomain(agents[0])}
	if len(agents) > 1 {
		ctx.Agents = make([]Agent, 0, len(agents))
		for _, a := range agents {
			ctx.Agents = append(ctx.Agents, FromDomain(a))
		}
	}

	plan, err := rt.BuildPlan(ctx)
	if err != nil {
		return "", domain.RuntimePlan{}, fmt.Errorf("build %s plan: %w", rt.Name(), err)
	}
	return kind, plan, nil
}

func kindOf(a domain.Agent) domain.RuntimeKind {
	if a.Runtime == "" {
		return domain.RuntimeOpenClaw
	}
	return a.Runtime
}
