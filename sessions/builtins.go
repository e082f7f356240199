package sessions

import (
	"encoding/json"

	"github.com/brettbedarf/mtpview"
)

type BuiltinType = string

const (
	MemoryType   BuiltinType = "memory"
	LocalDirType BuiltinType = "localdir"
)

// RegisterBuiltins registers all built-in session types in r by default,
// or only the given ones
func RegisterBuiltins(r *Registry, types ...BuiltinType) {
	if len(types) == 0 {
		types = []BuiltinType{MemoryType, LocalDirType}
	}

	for _, t := range types {
		switch t {
		case MemoryType:
			r.Register(MemoryType, func(raw []byte) (mtpview.Session, error) {
				var cfg MemoryConfig
				if err := json.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
				m, err := NewMemory(cfg)
				if err != nil {
					return nil, err
				}
				return m, nil
			})
		case LocalDirType:
			r.Register(LocalDirType, func(raw []byte) (mtpview.Session, error) {
				var cfg LocalDirConfig
				if err := json.Unmarshal(raw, &cfg); err != nil {
					return nil, err
				}
				d, err := NewLocalDir(cfg)
				if err != nil {
					return nil, err
				}
				return d, nil
			})
		}
	}
}

func init() {
	RegisterBuiltins(defaultRegistry)
}
