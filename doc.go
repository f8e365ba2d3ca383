// Package modwire is a compile-time dependency injection generator for Go.
//
// A module is declared next to the code it wires, in a *.module.json (comments allowed) or
// *.module.yaml file: the beans it builds, the sockets it needs from outside, the modules it
// imports and the functions that construct, initialize and destroy each bean. The generator
// resolves every constructor parameter to a bean or socket, rejects cycles, decides the
// creation order and writes plain Go next to the declaration. Nothing is resolved by
// reflection at run time.
//
// Layout:
//
//   - cmd/modwire: the generator (one-shot, -check and -watch modes)
//   - di: the runtime the generated code links against (modules, singleton and prototype
//     beans, overrides, lifecycle)
//   - internal/...: extraction, the bean graph, socket resolution, cycle detection,
//     module composition, scheduling and code emission
//   - examples/fraud: two modules wired end to end
package modwire
