package model

// SurfaceFormat is the artifact format version written by this generator.
const SurfaceFormat = "1.0.0"

// Surface is the public face of a generated module: what an importing module can see and
// must provide. It is all that survives of a module between generation passes.
type Surface struct {
	Format     string          `json:"format"`
	Module     string          `json:"module"`
	Package    string          `json:"package"`
	ImportPath string          `json:"importPath,omitempty"`
	TypeName   string          `json:"typeName,omitempty"`
	Beans      []SurfaceBean   `json:"beans"`
	Sockets    []SurfaceSocket `json:"sockets"`
	Types      []TypeDecl      `json:"types,omitempty"`
}

// SurfaceBean is a public bean of a generated module.
type SurfaceBean struct {
	Name string   `json:"name"`
	Type string   `json:"type"`
	Tags []string `json:"tags,omitempty"`
	// Sockets lists the module sockets the bean transitively depends on.
	Sockets []string `json:"sockets,omitempty"`
}

// SurfaceSocket is a socket a generated module expects from its importer.
type SurfaceSocket struct {
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Multi     Multi      `json:"multi,omitempty"`
	Optional  bool       `json:"optional,omitempty"`
	Selectors []Selector `json:"selectors,omitempty"`
	WiredTo   []string   `json:"wiredTo,omitempty"`
}

// Bean returns the public bean with the given name.
func (s *Surface) Bean(name string) (SurfaceBean, bool) {
	for _, b := range s.Beans {
		if b.Name == name {
			return b, true
		}
	}
	return SurfaceBean{}, false
}

// Socket returns the socket with the given name.
func (s *Surface) Socket(name string) (SurfaceSocket, bool) {
	for _, so := range s.Sockets {
		if so.Name == name {
			return so, true
		}
	}
	return SurfaceSocket{}, false
}

// Component is an imported module as seen by the importing module: its surface, the import
// filters, and whether the surface was read back from a previous pass.
type Component struct {
	Import  ModuleImport
	Surface *Surface
	Binary  bool
}

// VisibleBeans returns the surface beans that pass the import filters, in surface order.
func (c Component) VisibleBeans() []SurfaceBean {
	out := make([]SurfaceBean, 0, len(c.Surface.Beans))
	for _, b := range c.Surface.Beans {
		if c.Import.Visible(b.Name) {
			out = append(out, b)
		}
	}
	return out
}
