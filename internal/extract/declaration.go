// Package extract turns module declaration files into model descriptors.
//
// A declaration file plays the part annotations play in other DI generators: it lists a
// module's beans, their constructors and setters, the sockets the module exposes to its
// importer, the component modules it imports and the explicit wires it pins.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	stripjsoncomments "github.com/trapcodeio/go-strip-json-comments"
	"gopkg.in/yaml.v3"

	"github.com/sghaida/modwire/internal/model"
)

// Declaration is the on-disk shape of a module declaration.
type Declaration struct {
	Module     string           `json:"module" yaml:"module" validate:"required"`
	Package    string           `json:"package" yaml:"package" validate:"required"`
	ImportPath string           `json:"importPath,omitempty" yaml:"importPath,omitempty"`
	TypeName   string           `json:"typeName,omitempty" yaml:"typeName,omitempty"`
	Imports    []ImportDecl     `json:"imports,omitempty" yaml:"imports,omitempty" validate:"dive"`
	Sockets    []SocketDecl     `json:"sockets,omitempty" yaml:"sockets,omitempty" validate:"dive"`
	Beans      []BeanDecl       `json:"beans,omitempty" yaml:"beans,omitempty" validate:"dive"`
	Wires      []WireDecl       `json:"wires,omitempty" yaml:"wires,omitempty" validate:"dive"`
	Types      []model.TypeDecl `json:"types,omitempty" yaml:"types,omitempty"`

	// Path is the file the declaration was read from.
	Path string `json:"-" yaml:"-"`
	// Raw holds the file content, used for the generated file header hash.
	Raw []byte `json:"-" yaml:"-"`
}

// ImportDecl imports a component module.
type ImportDecl struct {
	Module   string   `json:"module" yaml:"module" validate:"required"`
	Includes []string `json:"includes,omitempty" yaml:"includes,omitempty"`
	Excludes []string `json:"excludes,omitempty" yaml:"excludes,omitempty"`
}

// SocketDecl declares a module socket: a value the importer must supply.
// Methods describe the functional shape of the socket bean; when empty the socket is a plain
// supplier of Type.
type SocketDecl struct {
	Name      string           `json:"name" yaml:"name" validate:"required"`
	Type      string           `json:"type" yaml:"type" validate:"required"`
	Multi     string           `json:"multi,omitempty" yaml:"multi,omitempty" validate:"omitempty,oneof=none array list set collection"`
	Optional  bool             `json:"optional,omitempty" yaml:"optional,omitempty"`
	Selectors []model.Selector `json:"selectors,omitempty" yaml:"selectors,omitempty"`
	Methods   []MethodDecl     `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// MethodDecl is one method of a socket bean.
type MethodDecl struct {
	Name    string   `json:"name" yaml:"name"`
	Params  []string `json:"params,omitempty" yaml:"params,omitempty"`
	Returns []string `json:"returns,omitempty" yaml:"returns,omitempty"`
}

// BeanDecl declares a bean.
type BeanDecl struct {
	Name         string            `json:"name" yaml:"name" validate:"required"`
	Type         string            `json:"type" yaml:"type" validate:"required"`
	Provides     string            `json:"provides,omitempty" yaml:"provides,omitempty"`
	Interface    bool              `json:"interface,omitempty" yaml:"interface,omitempty"`
	Wrapper      bool              `json:"wrapper,omitempty" yaml:"wrapper,omitempty"`
	Scope        string            `json:"scope,omitempty" yaml:"scope,omitempty" validate:"omitempty,oneof=singleton prototype"`
	Visibility   string            `json:"visibility,omitempty" yaml:"visibility,omitempty" validate:"omitempty,oneof=public private"`
	Constructors []ConstructorDecl `json:"constructors,omitempty" yaml:"constructors,omitempty" validate:"dive"`
	Optional     []OptionalDecl    `json:"optional,omitempty" yaml:"optional,omitempty" validate:"dive"`
	Nested       []NestedDecl      `json:"nested,omitempty" yaml:"nested,omitempty" validate:"dive"`
	Init         []string          `json:"init,omitempty" yaml:"init,omitempty"`
	Destroy      []string          `json:"destroy,omitempty" yaml:"destroy,omitempty"`
	Tags         []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
	Overridable  bool              `json:"overridable,omitempty" yaml:"overridable,omitempty"`
}

// ConstructorDecl is a constructor function of a bean. Its parameters are the bean's
// required sockets.
type ConstructorDecl struct {
	Name     string      `json:"name" yaml:"name" validate:"required"`
	Inject   bool        `json:"inject,omitempty" yaml:"inject,omitempty"`
	Disabled bool        `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Params   []ParamDecl `json:"params,omitempty" yaml:"params,omitempty" validate:"dive"`
}

// ParamDecl is a socket of a bean.
type ParamDecl struct {
	Name      string           `json:"name" yaml:"name" validate:"required"`
	Type      string           `json:"type" yaml:"type" validate:"required"`
	Multi     string           `json:"multi,omitempty" yaml:"multi,omitempty" validate:"omitempty,oneof=none array list set collection"`
	Selectors []model.Selector `json:"selectors,omitempty" yaml:"selectors,omitempty"`
}

// OptionalDecl is an optional socket injected through a setter method.
type OptionalDecl struct {
	ParamDecl `yaml:",inline"`
	Setter    string `json:"setter" yaml:"setter" validate:"required"`
	// Params is the number of parameters of the setter; nil means one.
	Params *int `json:"params,omitempty" yaml:"params,omitempty"`
}

// NestedDecl is a bean exposed by an accessor method of its parent bean.
type NestedDecl struct {
	Name   string `json:"name" yaml:"name" validate:"required"`
	Type   string `json:"type" yaml:"type" validate:"required"`
	Method string `json:"method" yaml:"method" validate:"required"`
}

// WireDecl pins a socket to named beans.
type WireDecl struct {
	Beans []string `json:"beans" yaml:"beans" validate:"required,min=1"`
	Into  string   `json:"into" yaml:"into" validate:"required"`
}

var (
	// ErrUnsupportedFormat is returned for files that are neither JSON nor YAML.
	ErrUnsupportedFormat = errors.New("extract: unsupported declaration format")

	json     = jsoniter.ConfigCompatibleWithStandardLibrary
	validate = validator.New()
)

// Suffixes of declaration files.
var Suffixes = []string{".module.json", ".module.yaml", ".module.yml"}

// IsDeclaration reports whether path names a declaration file.
func IsDeclaration(path string) bool {
	for _, s := range Suffixes {
		if strings.HasSuffix(path, s) {
			return true
		}
	}
	return false
}

// Load reads and decodes a declaration file.
func Load(path string) (*Declaration, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("extract: read %s: %w", filepath.ToSlash(path), err)
	}
	decl, err := Decode(path, raw)
	if err != nil {
		return nil, err
	}
	return decl, nil
}

// Decode decodes raw declaration content, choosing the format from the path extension, and
// validates the structure.
func Decode(path string, raw []byte) (*Declaration, error) {
	var decl Declaration
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.UnmarshalFromString(stripjsoncomments.Strip(string(raw)), &decl); err != nil {
			return nil, fmt.Errorf("extract: decode %s: %w", filepath.ToSlash(path), err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &decl); err != nil {
			return nil, fmt.Errorf("extract: decode %s: %w", filepath.ToSlash(path), err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.ToSlash(path))
	}
	if err := validate.Struct(&decl); err != nil {
		return nil, fmt.Errorf("extract: invalid declaration %s: %w", filepath.ToSlash(path), formatValidationError(err))
	}
	decl.Path = path
	decl.Raw = raw
	return &decl, nil
}

func formatValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		field := e.Namespace()
		switch e.Tag() {
		case "required":
			msgs = append(msgs, field+" is required")
		case "oneof":
			msgs = append(msgs, field+" must be one of: "+e.Param())
		case "min":
			msgs = append(msgs, field+" must have at least "+e.Param()+" element(s)")
		default:
			msgs = append(msgs, field+" is invalid")
		}
	}
	return errors.New(strings.Join(msgs, "; "))
}
