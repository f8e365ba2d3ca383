package emit

import "text/template"

var moduleTpl = template.Must(template.New("module").Parse(`// Code generated by modwire; DO NOT EDIT.
// Declaration: {{.Source}}
// Declaration-SHA256: {{.Hash}}

package {{.Package}}

import (
{{- range .Imports }}
	{{- if .Name }}
	{{ .Name }} "{{ .Path }}"
	{{- else }}
	"{{ .Path }}"
	{{- end }}
{{- end }}
)

// {{.TypeName}}Sockets holds the values module {{.Module}} is linked with.
type {{.TypeName}}Sockets struct {
{{- range .Sockets }}
	{{ .Field }} {{ .Type }}{{ if not .Required }} // optional{{ end }}
{{- end }}
}

// {{.TypeName}} is module {{.Module}}.
{{- if .Order }}
//
// Singletons are created in the order: {{ .Order }}.
{{- end }}
type {{.TypeName}} struct {
	*di.Module
	sockets {{.TypeName}}Sockets
{{- range .Beans }}
	{{ .Field }} {{ .HolderType }}
{{- end }}
{{- range .Components }}
	{{ .Field }} *di.Singleton[{{ .Type }}]
{{- end }}
}

// New{{.TypeName}} links module {{.Module}}. Beans are created by Start or on first use.
func New{{.TypeName}}(sockets {{.TypeName}}Sockets, opts ...di.Option) (*{{.TypeName}}, error) {
{{- if .Required }}
	if err := di.RequireSockets({{ printf "%q" .Module }},
{{- range .Required }}
		di.Socket{Name: {{ printf "%q" .Name }}, Value: sockets.{{ .Field }}},
{{- end }}
	); err != nil {
		return nil, err
	}
{{- end }}
	m := &{{.TypeName}}{Module: di.NewModule({{ printf "%q" .Module }}, opts...), sockets: sockets}
{{- range .Beans }}
	m.{{ .Field }} = di.{{ .Holder }}(m.Module, di.BeanConfig[{{ .Type }}]{
		Name: {{ printf "%q" .Name }},
		Create: func() (bean {{ .Type }}, err error) {
{{- range .Create }}
			{{ . }}
{{- end }}
		},
{{- if .Init }}
		Init: func(bean {{ .Type }}) error {
{{- range .Init }}
			{{ . }}
{{- end }}
		},
{{- end }}
{{- if .Destroy }}
		Destroy: func(bean {{ .Type }}) error {
{{- range .Destroy }}
			{{ . }}
{{- end }}
		},
{{- end }}
{{- if .Overridable }}
		Override: di.Override[{{ .Type }}](m.Module, {{ printf "%q" .Name }}),
{{- end }}
	})
{{- end }}
{{- range .Components }}
	m.{{ .Field }} = di.NewSingleton(m.Module, di.BeanConfig[{{ .Type }}]{
		Name: {{ printf "%q" .Name }},
		Create: func() (bean {{ .Type }}, err error) {
{{- range .Create }}
			{{ . }}
{{- end }}
		},
		Init: func(c {{ .Type }}) error { return c.Start() },
		Destroy: func(c {{ .Type }}) error {
			c.Stop()
			return nil
		},
	})
{{- end }}
	return m, nil
}
{{- range .Beans }}
{{- if .Public }}

// {{ .Getter }} returns bean {{ .Name }}.
func (m *{{ $.TypeName }}) {{ .Getter }}() ({{ .Type }}, error) {
	return m.{{ .Field }}.Get()
}
{{- end }}
{{- end }}
{{- range .Nested }}

func (m *{{ $.TypeName }}) {{ .Func }}() (bean {{ .Type }}, err error) {
	parent, err := m.{{ .Parent }}.Get()
	if err != nil {
		return bean, err
	}
	return parent.{{ .Method }}(), nil
}
{{- end }}
`))
