package deployconfig

import (
	"fmt"

	"github.com/berthci/berth/internal/rules"
)

// Op declares how a mutation combines with the value accumulated so far.
type Op string

const (
	// OpReplace discards the accumulated value for the key.
	OpReplace Op = "replace"
	// OpMerge combines map-valued keys entry by entry.
	OpMerge Op = "merge"
	// OpAppend extends array-valued keys, earlier entries first.
	OpAppend Op = "append"
)

// Mutation kinds understood by the fold. KindHeaders and KindRedirects are
// the two side-file kinds; mutating them makes the merged configuration file
// the single source of truth for that kind.
const (
	KindHeaders          = "headers"
	KindRedirects        = "redirects"
	KindBuildCommand     = "build.command"
	KindBuildPublish     = "build.publish"
	KindBuildEnvironment = "build.environment"
	KindContexts         = "context"
)

// Mutation is one ordered operation against the deploy configuration. The
// sequence of mutations across a build is the authoritative mutation log;
// later mutations override earlier ones for the same key.
type Mutation struct {
	Kind  string
	Op    Op
	Value any
}

// Touches reports whether any mutation in the log addresses kind, whatever
// the final merged value for that kind turns out to be.
func Touches(mutations []Mutation, kind string) bool {
	for _, m := range mutations {
		if m.Kind == kind {
			return true
		}
	}
	return false
}

// Apply left-folds the mutation log into an inline configuration.
func Apply(mutations []Mutation) (Config, error) {
	var cfg Config
	for i, m := range mutations {
		if err := applyOne(&cfg, m); err != nil {
			return Config{}, fmt.Errorf("mutation %d (%s): %w", i, m.Kind, err)
		}
	}
	return cfg, nil
}

func applyOne(cfg *Config, m Mutation) error {
	switch m.Kind {
	case KindHeaders:
		value, ok := m.Value.([]rules.HeaderRule)
		if !ok {
			return fmt.Errorf("expected []rules.HeaderRule, got %T", m.Value)
		}
		switch m.Op {
		case OpReplace:
			cfg.Headers = append([]rules.HeaderRule(nil), value...)
		case OpAppend, OpMerge:
			cfg.Headers = append(cfg.Headers, value...)
		default:
			return fmt.Errorf("unsupported operation %q", m.Op)
		}

	case KindRedirects:
		value, ok := m.Value.([]rules.RedirectRule)
		if !ok {
			return fmt.Errorf("expected []rules.RedirectRule, got %T", m.Value)
		}
		switch m.Op {
		case OpReplace:
			cfg.Redirects = append([]rules.RedirectRule(nil), value...)
		case OpAppend, OpMerge:
			cfg.Redirects = append(cfg.Redirects, value...)
		default:
			return fmt.Errorf("unsupported operation %q", m.Op)
		}

	case KindBuildCommand, KindBuildPublish:
		value, ok := m.Value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", m.Value)
		}
		if m.Op != OpReplace {
			return fmt.Errorf("scalar keys only support %q, got %q", OpReplace, m.Op)
		}
		if cfg.Build == nil {
			cfg.Build = &BuildSettings{}
		}
		if m.Kind == KindBuildCommand {
			cfg.Build.Command = value
		} else {
			cfg.Build.Publish = value
		}

	case KindBuildEnvironment:
		value, ok := m.Value.(map[string]string)
		if !ok {
			return fmt.Errorf("expected map[string]string, got %T", m.Value)
		}
		if cfg.Build == nil {
			cfg.Build = &BuildSettings{}
		}
		switch m.Op {
		case OpReplace:
			cfg.Build.Environment = copyMap(value)
		case OpMerge:
			if cfg.Build.Environment == nil {
				cfg.Build.Environment = make(map[string]string, len(value))
			}
			for k, v := range value {
				cfg.Build.Environment[k] = v
			}
		default:
			return fmt.Errorf("unsupported operation %q", m.Op)
		}

	case KindContexts:
		value, ok := m.Value.(map[string]ContextConfig)
		if !ok {
			return fmt.Errorf("expected map[string]ContextConfig, got %T", m.Value)
		}
		switch m.Op {
		case OpReplace:
			cfg.Contexts = make(map[string]ContextConfig, len(value))
			for k, v := range value {
				cfg.Contexts[k] = v
			}
		case OpMerge:
			if cfg.Contexts == nil {
				cfg.Contexts = make(map[string]ContextConfig, len(value))
			}
			for k, v := range value {
				if existing, ok := cfg.Contexts[k]; ok {
					cfg.Contexts[k] = mergeContext(existing, v)
				} else {
					cfg.Contexts[k] = v
				}
			}
		default:
			return fmt.Errorf("unsupported operation %q", m.Op)
		}

	default:
		return fmt.Errorf("unknown configuration key %q", m.Kind)
	}

	return nil
}
