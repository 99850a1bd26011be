// Package pragma loads the TOML-encoded ABI header and pragma view the
// CompilerContext consults for feature flags.
package pragma

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// FileName is the conventional pragma/ABI descriptor name looked for
// alongside a contract's source.
const FileName = "tvmgen.toml"

// Abi mirrors the subset of a TON contract ABI header this core reads.
type Abi struct {
	Version  int  `toml:"version"`
	HaveTime bool `toml:"have_time"`
}

// Doc is the on-disk pragma/ABI descriptor.
type Doc struct {
	Abi    Abi               `toml:"abi"`
	Pragma map[string]bool   `toml:"pragma"`
}

// View is the read-only lookup surface Context uses; it never mutates after
// Load returns.
type View struct {
	doc Doc
}

// Load reads and parses the pragma/ABI descriptor at path.
func Load(path string) (*View, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("pragma: read %s: %w", path, err)
	}
	var doc Doc
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("pragma: parse %s: %w", path, err)
	}
	return &View{doc: doc}, nil
}

// Default returns an empty View: every flag reads false and abi_version
// reads 0, matching a contract compiled with no ABI header pragmas at all.
func Default() *View {
	return &View{}
}

// GenerateDefault builds a View with a minimal, conservative ABI header:
// version 2, no timestamp requirement, no pragmas set.
func GenerateDefault() *View {
	return &View{doc: Doc{Abi: Abi{Version: 2}}}
}

// StoreDefault writes a View's descriptor to dir/tvmgen.toml.
func (v *View) StoreDefault(dir string) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[abi]\nversion = %d\nhave_time = %t\n\n[pragma]\n", v.doc.Abi.Version, v.doc.Abi.HaveTime)
	for name, val := range v.doc.Pragma {
		fmt.Fprintf(&b, "%s = %t\n", name, val)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("pragma: write %s: %w", path, err)
	}
	return nil
}

// AbiVersion returns the declared ABI header version.
func (v *View) AbiVersion() int {
	return v.doc.Abi.Version
}

// HaveTime reports whether the ABI header requests a message-creation
// timestamp.
func (v *View) HaveTime() bool {
	return v.doc.Abi.HaveTime
}

// Bool reports a named pragma flag. "header_time" reads the ABI header's
// time bit directly; anything else is looked up in the free-form pragma
// table, defaulting to false when absent.
func (v *View) Bool(name string) bool {
	if name == "header_time" {
		return v.doc.Abi.HaveTime
	}
	return v.doc.Pragma[name]
}
