// Command modwire generates dependency injection modules from module declarations.
//
// A module declaration (*.module.json, comments allowed, or *.module.yaml) lists the beans
// of a module with their constructors, setters and lifecycle methods, the sockets the
// module expects from its importer and the component modules it imports. modwire resolves
// every socket at generation time and writes, next to each declaration, a Go file holding
// the module type, its sockets struct and its New constructor. The generated code links
// against the di runtime package; nothing is resolved by reflection at run time.
//
// Usage
//
//	modwire [-config modwire.yaml] [-roots a,b] [-check] [-watch] [-metrics :9090]
//	        [-runtime github.com/sghaida/modwire/di] [-log-level debug]
//
// Each configured root is a generation round, in order: a module importing a module declared
// in a later root waits for that round. Modules left waiting after the last root fail. A
// generated module also gets an artifact (<module>.modwire.json in the artifact directory)
// so a later run can import it without its declaration.
//
// Diagnostics are printed as
//
//	<file>: <module>[:<bean>[:<socket>]]: <severity>: <message>
//
// and the command fails when any error was reported. Modules without errors are still
// written.
//
// Flags
//
//   - -check resolves and reports without writing generated files or artifacts.
//   - -watch runs a pass, then a new one whenever a declaration under the roots changes.
//   - -metrics serves prometheus counters on /metrics while watching.
//
// Configuration
//
// modwire.yaml (or the -config file) sets roots, artifactDir, artifactCache, workers,
// suffix, environment, logLevel and metricsAddr. A .env file and MODWIRE_* variables
// override the file; flags override both.
package main
